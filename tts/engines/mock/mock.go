// Package mock provides a scriptable speech engine for tests and demos.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
)

// Engine implements tts.Engine without producing audio.
//
// In manual mode (New) utterances only end when the test calls Emit or
// Finish. In simulated mode (NewSimulated) each utterance ends on its own
// after the time it would take to read it aloud.
type Engine struct {
	mu sync.Mutex

	wpm     int // 0 in manual mode
	current *utterance
	paused  bool

	// Control for testing
	failure error
	voices  []tts.Voice
	warmup  int // Voices calls that report nothing before the list appears

	// Call tracking
	speakCalls  int
	pauseCalls  int
	resumeCalls int
	stopCalls   int
	spoken      []string
	lastOptions tts.SpeakOptions
}

type utterance struct {
	text      string
	onEvent   func(tts.Event)
	timer     *time.Timer
	remaining time.Duration
	resumedAt time.Time
}

var _ tts.Engine = (*Engine)(nil)
var _ tts.VoiceLister = (*Engine)(nil)

// DefaultVoices is the voice list reported by a new engine.
var DefaultVoices = []tts.Voice{
	{ID: "mock-en", Name: "Mock English", Language: "en-US", Default: true},
	{ID: "mock-de", Name: "Mock German", Language: "de-DE"},
}

// New creates a manual mock engine.
func New() *Engine {
	return &Engine{voices: DefaultVoices}
}

// NewSimulated creates a mock engine that finishes utterances on its own,
// reading at wpm words per minute at rate 1.
func NewSimulated(wpm int) *Engine {
	e := New()
	if wpm < 1 {
		wpm = 180
	}
	e.wpm = wpm
	return e
}

// Speak starts an utterance, superseding the current one.
func (e *Engine) Speak(text string, opts tts.SpeakOptions, onEvent func(tts.Event)) error {
	e.mu.Lock()
	e.speakCalls++
	if e.failure != nil {
		err := e.failure
		e.mu.Unlock()
		return err
	}

	prev := e.detach()
	u := &utterance{text: text, onEvent: onEvent}
	e.current = u
	e.paused = false
	e.spoken = append(e.spoken, text)
	e.lastOptions = opts
	if e.wpm > 0 {
		u.remaining = Duration(text, e.wpm, opts.Rate)
		u.resumedAt = time.Now()
		u.timer = time.AfterFunc(u.remaining, func() { e.finish(u) })
	}
	e.mu.Unlock()

	if prev != nil {
		prev.onEvent(tts.Event{Type: tts.EventInterrupted})
	}
	onEvent(tts.Event{Type: tts.EventStarted})
	return nil
}

// Pause holds the current utterance.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pauseCalls++
	if e.current == nil || e.paused {
		return nil
	}
	e.paused = true
	if u := e.current; u.timer != nil {
		u.timer.Stop()
		u.remaining -= time.Since(u.resumedAt)
		if u.remaining < 0 {
			u.remaining = 0
		}
	}
	return nil
}

// Resume continues a paused utterance.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resumeCalls++
	if e.current == nil || !e.paused {
		return nil
	}
	e.paused = false
	if u := e.current; e.wpm > 0 {
		u.resumedAt = time.Now()
		u.timer = time.AfterFunc(u.remaining, func() { e.finish(u) })
	}
	return nil
}

// Stop interrupts the current utterance, if any.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.stopCalls++
	prev := e.detach()
	e.mu.Unlock()

	if prev != nil {
		prev.onEvent(tts.Event{Type: tts.EventInterrupted})
	}
	return nil
}

// Close stops the engine.
func (e *Engine) Close() error {
	return e.Stop()
}

// Voices returns the configured voices. While warming up it reports an empty
// list.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.warmup > 0 {
		e.warmup--
		return nil, nil
	}
	out := make([]tts.Voice, len(e.voices))
	copy(out, e.voices)
	return out, nil
}

// Emit delivers ev to the current utterance. A terminal event ends it. It
// reports whether an utterance was pending.
func (e *Engine) Emit(ev tts.Event) bool {
	e.mu.Lock()
	u := e.current
	if u == nil {
		e.mu.Unlock()
		return false
	}
	if ev.Type.Terminal() {
		e.detach()
	}
	e.mu.Unlock()

	u.onEvent(ev)
	return true
}

// Finish ends the current utterance naturally.
func (e *Engine) Finish() bool {
	return e.Emit(tts.Event{Type: tts.EventEnded})
}

// Fail reports a synthesis error for the current utterance.
func (e *Engine) Fail(message string) bool {
	return e.Emit(tts.Event{Type: tts.EventError, Message: message})
}

// SetFailure makes Speak return err until ClearFailure is called.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// ClearFailure removes a failure set by SetFailure.
func (e *Engine) ClearFailure() {
	e.SetFailure(nil)
}

// SetVoices replaces the reported voice list.
func (e *Engine) SetVoices(voices []tts.Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices = voices
}

// SetWarmup makes the next n Voices calls report an empty list.
func (e *Engine) SetWarmup(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warmup = n
}

// SpeakCount returns the number of Speak calls.
func (e *Engine) SpeakCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speakCalls
}

// PauseCount returns the number of Pause calls.
func (e *Engine) PauseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseCalls
}

// ResumeCount returns the number of Resume calls.
func (e *Engine) ResumeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeCalls
}

// StopCount returns the number of Stop calls.
func (e *Engine) StopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCalls
}

// Spoken returns the text of every accepted Speak call in order.
func (e *Engine) Spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.spoken))
	copy(out, e.spoken)
	return out
}

// LastSpoken returns the text of the last accepted Speak call.
func (e *Engine) LastSpoken() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.spoken) == 0 {
		return ""
	}
	return e.spoken[len(e.spoken)-1]
}

// LastOptions returns the options of the last accepted Speak call.
func (e *Engine) LastOptions() tts.SpeakOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOptions
}

// Speaking reports whether an utterance is pending and not paused.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && !e.paused
}

// Duration estimates how long text takes to read at wpm and rate.
func Duration(text string, wpm int, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	return time.Duration(float64(words) * float64(time.Minute) / (float64(wpm) * rate))
}

// detach removes the current utterance and stops its timer. e.mu must be
// held.
func (e *Engine) detach() *utterance {
	u := e.current
	if u == nil {
		return nil
	}
	if u.timer != nil {
		u.timer.Stop()
	}
	e.current = nil
	e.paused = false
	return u
}

func (e *Engine) finish(u *utterance) {
	e.mu.Lock()
	if e.current != u || e.paused {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.mu.Unlock()

	u.onEvent(tts.Event{Type: tts.EventEnded})
}
