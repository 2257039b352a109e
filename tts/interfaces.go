package tts

import "context"

// EventType is the kind of an engine utterance event.
type EventType int

const (
	// EventStarted reports that the engine began speaking.
	EventStarted EventType = iota
	// EventEnded reports that the utterance finished naturally.
	EventEnded
	// EventInterrupted reports that the utterance was superseded or stopped.
	EventInterrupted
	// EventCancelled reports that the utterance was dropped before it started.
	EventCancelled
	// EventError reports a synthesis or playback failure.
	EventError
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventInterrupted:
		return "interrupted"
	case EventCancelled:
		return "cancelled"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow for the utterance.
func (t EventType) Terminal() bool {
	return t != EventStarted
}

// Event is emitted by an Engine for a single utterance.
type Event struct {
	Type    EventType
	Message string // set for EventError
}

// SpeakOptions are the synthesis parameters for one utterance.
type SpeakOptions struct {
	Rate  float64 // 1.0 is the engine's normal speed
	Voice string  // engine voice ID, empty for the engine default
}

// Engine is a speech capability with one outstanding utterance at a time.
//
// Speak starts an utterance and reports its progress through onEvent, which
// may be called from any goroutine, including synchronously from within
// Speak or Stop. Starting a new utterance or calling Stop supersedes the
// pending one, which then receives EventInterrupted.
type Engine interface {
	Speak(text string, opts SpeakOptions, onEvent func(Event)) error
	Pause() error
	Resume() error
	Stop() error
	Close() error
}

// Voice describes an engine voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

// VoiceLister is implemented by engines that can enumerate their voices.
type VoiceLister interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Highlighter renders the chunk being spoken on the bound page. An empty text
// clears the highlight.
type Highlighter interface {
	Highlight(tab TabID, text string) error
}

// TextSource extracts the readable text of a page, selection first.
type TextSource interface {
	GetText(ctx context.Context, tab TabID) (string, error)
}

// SettingsStore is a persistent key-value store for narration settings.
type SettingsStore interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

// Observer receives playback notifications from the controller goroutine.
// Implementations must not block and must not call back into the Controller.
type Observer interface {
	CommandHandled(action string, state PlaybackState)
	UtteranceStarted(chunkIndex, chunkCount int)
	UtteranceFinished(outcome EventType)
}

type nopObserver struct{}

func (nopObserver) CommandHandled(string, PlaybackState) {}
func (nopObserver) UtteranceStarted(int, int)            {}
func (nopObserver) UtteranceFinished(EventType)          {}
