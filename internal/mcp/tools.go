package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgnsrekt/readaloud/tts"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrNoVoices is returned by list_voices when the engine cannot list voices.
var ErrNoVoices = errors.New("engine does not list voices")

type PlayArgs struct {
	Text  string    `json:"text,omitempty" jsonschema:"the text to read; omit to resume"`
	TabID tts.TabID `json:"tab_id,omitempty" jsonschema:"the page the text belongs to"`
}

type SetRateArgs struct {
	Rate float64 `json:"rate" jsonschema:"speech rate between 0.1 and 10"`
}

type SetVoiceArgs struct {
	Voice string `json:"voice" jsonschema:"voice ID as returned by list_voices"`
}

type ListVoicesArgs struct {
	Query string `json:"query,omitempty" jsonschema:"fuzzy filter on voice ID, name and language"`
}

type NoArgs struct{}

func (s *Server) handlePlay(ctx context.Context, _ *sdk.CallToolRequest, args PlayArgs) (*sdk.CallToolResult, any, error) {
	return s.dispatch(ctx, tts.Request{Action: tts.ActionPlay, Text: args.Text, TabID: args.TabID})
}

func (s *Server) handleSetRate(ctx context.Context, _ *sdk.CallToolRequest, args SetRateArgs) (*sdk.CallToolResult, any, error) {
	return s.dispatch(ctx, tts.Request{Action: tts.ActionSetRate, Rate: args.Rate})
}

func (s *Server) handleSetVoice(ctx context.Context, _ *sdk.CallToolRequest, args SetVoiceArgs) (*sdk.CallToolResult, any, error) {
	return s.dispatch(ctx, tts.Request{Action: tts.ActionSetVoice, Voice: args.Voice})
}

func (s *Server) simple(action string) sdk.ToolHandlerFor[NoArgs, any] {
	return func(ctx context.Context, _ *sdk.CallToolRequest, _ NoArgs) (*sdk.CallToolResult, any, error) {
		return s.dispatch(ctx, tts.Request{Action: action})
	}
}

func (s *Server) handleListVoices(ctx context.Context, _ *sdk.CallToolRequest, args ListVoicesArgs) (*sdk.CallToolResult, any, error) {
	if s.voices == nil {
		return nil, nil, ErrNoVoices
	}
	voices, err := s.voices.Voices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list voices: %w", err)
	}
	if args.Query != "" {
		voices = tts.MatchVoices(voices, args.Query)
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	return jsonResult(voices)
}

func (s *Server) dispatch(ctx context.Context, req tts.Request) (*sdk.CallToolResult, any, error) {
	snap, err := s.ctrl.Dispatch(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", req.Action, err)
	}
	s.logger.Debug("tool call", "action", req.Action, "state", snap.PlaybackState)
	return jsonResult(snap)
}

func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
