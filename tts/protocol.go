package tts

import (
	"context"
	"fmt"
)

// Actions of the command protocol.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionStop     = "stop"
	ActionGetState = "getState"
	ActionSetRate  = "setRate"
	ActionSetVoice = "setVoice"

	// ActionToggle is the shortcut command.
	ActionToggle = "toggle-play-pause"

	actionTabRemoved = "tabRemoved"
	actionTabUpdated = "tabUpdated"
)

// Request is a command protocol message.
type Request struct {
	Action string  `json:"action"`
	Text   string  `json:"text,omitempty"`
	TabID  TabID   `json:"tabId,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Voice  string  `json:"voice,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	State *Snapshot `json:"state,omitempty"`
	Error string    `json:"error,omitempty"`
}

// PlayRequest carries the optional payload of a play command.
type PlayRequest struct {
	Text  string
	TabID TabID
}

// Dispatch routes a protocol request to the matching command.
func (c *Controller) Dispatch(ctx context.Context, req Request) (Snapshot, error) {
	switch req.Action {
	case ActionPlay:
		return c.Play(ctx, PlayRequest{Text: req.Text, TabID: req.TabID})
	case ActionPause:
		return c.Pause(ctx)
	case ActionStop:
		return c.Stop(ctx)
	case ActionGetState:
		return c.GetState(ctx)
	case ActionSetRate:
		return c.SetRate(ctx, req.Rate)
	case ActionSetVoice:
		return c.SetVoice(ctx, req.Voice)
	case ActionToggle:
		return c.Toggle(ctx)
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

// Respond dispatches req and packs the outcome into a Response.
func (c *Controller) Respond(ctx context.Context, req Request) Response {
	snap, err := c.Dispatch(ctx, req)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{State: &snap}
}
