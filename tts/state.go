package tts

import "fmt"

// PlaybackState is the state of the narration session.
type PlaybackState int

const (
	// StateStopped indicates nothing is queued.
	StateStopped PlaybackState = iota
	// StatePlaying indicates a chunk is being spoken or about to be.
	StatePlaying
	// StatePaused indicates the current utterance is held by the engine.
	StatePaused
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PlaybackState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "stopped":
		*s = StateStopped
	case "playing":
		*s = StatePlaying
	case "paused":
		*s = StatePaused
	default:
		return fmt.Errorf("unknown playback state %q", b)
	}
	return nil
}

// TabID identifies the page a session is bound to. The zero value means no
// page is bound.
type TabID int

// NoTab is the unbound TabID.
const NoTab TabID = 0

// Bound reports whether t refers to a page.
func (t TabID) Bound() bool {
	return t != NoTab
}

// Session is the single mutable narration record. It is owned by the
// Controller goroutine and never shared; collaborators receive Snapshots.
type Session struct {
	Text       string
	Chunks     []string
	ChunkIndex int
	State      PlaybackState
	Rate       float64
	Voice      string
	TabID      TabID
}

// Snapshot is a read-only copy of the Session, returned by every command.
type Snapshot struct {
	Text          string        `json:"text"`
	Chunks        []string      `json:"chunks"`
	ChunkIndex    int           `json:"chunkIndex"`
	PlaybackState PlaybackState `json:"playbackState"`
	Rate          float64       `json:"rate"`
	Voice         string        `json:"voice"`
	TabID         TabID         `json:"tabId,omitempty"`
}

// snapshot copies the session. Chunks is never nil so it encodes as [].
func (s *Session) snapshot() Snapshot {
	chunks := make([]string, len(s.Chunks))
	copy(chunks, s.Chunks)
	return Snapshot{
		Text:          s.Text,
		Chunks:        chunks,
		ChunkIndex:    s.ChunkIndex,
		PlaybackState: s.State,
		Rate:          s.Rate,
		Voice:         s.Voice,
		TabID:         s.TabID,
	}
}

// CurrentChunk returns the chunk being spoken, or "" when there is none.
func (s Snapshot) CurrentChunk() string {
	if s.PlaybackState == StateStopped || s.ChunkIndex >= len(s.Chunks) {
		return ""
	}
	return s.Chunks[s.ChunkIndex]
}

// IsActive returns true if a session is playing or paused.
func (s Snapshot) IsActive() bool {
	return s.PlaybackState == StatePlaying || s.PlaybackState == StatePaused
}

// StateMachine validates playback state transitions and runs enter hooks.
type StateMachine struct {
	transitions map[PlaybackState][]PlaybackState
	onEnter     map[PlaybackState]func(from PlaybackState)
}

// NewStateMachine creates a state machine with the playback transitions.
// Playing to Playing is a chunk restart; Stopped to Stopped is an
// unconditional stop.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[PlaybackState][]PlaybackState{
			StateStopped: {StatePlaying, StateStopped},
			StatePlaying: {StatePaused, StateStopped, StatePlaying},
			StatePaused:  {StatePlaying, StateStopped},
		},
		onEnter: make(map[PlaybackState]func(PlaybackState)),
	}
}

// CanTransition reports whether from may move to to.
func (sm *StateMachine) CanTransition(from, to PlaybackState) bool {
	for _, s := range sm.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves *state to to if the transition is valid.
func (sm *StateMachine) Transition(state *PlaybackState, to PlaybackState) bool {
	from := *state
	if !sm.CanTransition(from, to) {
		return false
	}
	*state = to
	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn(from)
	}
	return true
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state PlaybackState, fn func(from PlaybackState)) {
	sm.onEnter[state] = fn
}
