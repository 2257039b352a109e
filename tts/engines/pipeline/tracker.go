// Package pipeline builds speech engines out of a synthesizer that renders
// text to audio bytes and a sink that plays them.
package pipeline

import (
	"sync"

	"github.com/dgnsrekt/readaloud/tts"
)

// Handle is one utterance. After a terminal event it emits nothing more.
type Handle struct {
	mu      sync.Mutex
	onEvent func(tts.Event)
	ended   bool
}

// Emit delivers ev unless the utterance already ended. It is safe on a nil
// Handle.
func (h *Handle) Emit(ev tts.Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if h.ended {
		h.mu.Unlock()
		return
	}
	if ev.Type.Terminal() {
		h.ended = true
	}
	h.mu.Unlock()

	h.onEvent(ev)
}

// Interrupt ends the utterance with EventInterrupted.
func (h *Handle) Interrupt() {
	h.Emit(tts.Event{Type: tts.EventInterrupted})
}

// Tracker holds the single outstanding utterance of an engine.
type Tracker struct {
	mu  sync.Mutex
	cur *Handle
}

// Start makes a new current utterance. The superseded one, if any, is
// returned so the caller can Interrupt it outside its own locks.
func (t *Tracker) Start(onEvent func(tts.Event)) (h, prev *Handle) {
	h = &Handle{onEvent: onEvent}

	t.mu.Lock()
	prev, t.cur = t.cur, h
	t.mu.Unlock()
	return h, prev
}

// Stop clears the current utterance and returns it.
func (t *Tracker) Stop() *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.cur
	t.cur = nil
	return prev
}

// Current reports whether h is still the outstanding utterance.
func (t *Tracker) Current(h *Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur == h
}

// Finish ends h with ev if it is still current and reports whether it was.
func (t *Tracker) Finish(h *Handle, ev tts.Event) bool {
	t.mu.Lock()
	if t.cur != h {
		t.mu.Unlock()
		return false
	}
	t.cur = nil
	t.mu.Unlock()

	h.Emit(ev)
	return true
}
