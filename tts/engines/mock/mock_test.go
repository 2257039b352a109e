package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
)

// recorder collects the events of one utterance.
type recorder struct {
	mu     sync.Mutex
	events []tts.EventType
	ended  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ended: make(chan struct{}, 1)}
}

func (r *recorder) onEvent(ev tts.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev.Type)
	r.mu.Unlock()
	if ev.Type.Terminal() {
		select {
		case r.ended <- struct{}{}:
		default:
		}
	}
}

func (r *recorder) types() []tts.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tts.EventType, len(r.events))
	copy(out, r.events)
	return out
}

func equalTypes(a, b []tts.EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSpeakEmitsStarted(t *testing.T) {
	engine := New()
	rec := newRecorder()

	if err := engine.Speak("Hello.", tts.SpeakOptions{Rate: 1.5, Voice: "mock-de"}, rec.onEvent); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if got := rec.types(); !equalTypes(got, []tts.EventType{tts.EventStarted}) {
		t.Errorf("Expected [started], got %v", got)
	}
	if !engine.Speaking() {
		t.Error("Expected engine to be speaking")
	}
	if opts := engine.LastOptions(); opts.Rate != 1.5 || opts.Voice != "mock-de" {
		t.Errorf("Expected options to be recorded, got %+v", opts)
	}
}

func TestSpeakSupersedes(t *testing.T) {
	engine := New()
	first, second := newRecorder(), newRecorder()

	_ = engine.Speak("One.", tts.SpeakOptions{}, first.onEvent)
	_ = engine.Speak("Two.", tts.SpeakOptions{}, second.onEvent)

	want := []tts.EventType{tts.EventStarted, tts.EventInterrupted}
	if got := first.types(); !equalTypes(got, want) {
		t.Errorf("Expected %v for the first utterance, got %v", want, got)
	}
	if got := engine.Spoken(); len(got) != 2 || got[1] != "Two." {
		t.Errorf("Expected both texts recorded, got %v", got)
	}

	engine.Finish()
	want = []tts.EventType{tts.EventStarted, tts.EventEnded}
	if got := second.types(); !equalTypes(got, want) {
		t.Errorf("Expected %v for the second utterance, got %v", want, got)
	}
}

func TestStop(t *testing.T) {
	engine := New()
	rec := newRecorder()

	if err := engine.Stop(); err != nil {
		t.Fatalf("Stop with nothing pending failed: %v", err)
	}

	_ = engine.Speak("Hello.", tts.SpeakOptions{}, rec.onEvent)
	_ = engine.Stop()

	if got := rec.types(); !equalTypes(got, []tts.EventType{tts.EventStarted, tts.EventInterrupted}) {
		t.Errorf("Expected started then interrupted, got %v", got)
	}
	if engine.Speaking() {
		t.Error("Expected engine to be idle after stop")
	}
	if engine.StopCount() != 2 {
		t.Errorf("Expected 2 stop calls, got %d", engine.StopCount())
	}
	if engine.Finish() {
		t.Error("Expected no pending utterance after stop")
	}
}

func TestPauseResume(t *testing.T) {
	engine := New()
	_ = engine.Speak("Hello.", tts.SpeakOptions{}, func(tts.Event) {})

	_ = engine.Pause()
	if engine.Speaking() {
		t.Error("Expected engine not to be speaking while paused")
	}

	_ = engine.Resume()
	if !engine.Speaking() {
		t.Error("Expected engine to be speaking after resume")
	}

	if engine.PauseCount() != 1 || engine.ResumeCount() != 1 {
		t.Errorf("Expected 1 pause and 1 resume, got %d and %d", engine.PauseCount(), engine.ResumeCount())
	}
}

func TestSetFailure(t *testing.T) {
	engine := New()
	want := errors.New("no audio device")
	engine.SetFailure(want)

	if err := engine.Speak("Hello.", tts.SpeakOptions{}, func(tts.Event) {}); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	if len(engine.Spoken()) != 0 {
		t.Error("Expected failed speak not to be recorded")
	}

	engine.ClearFailure()
	if err := engine.Speak("Hello.", tts.SpeakOptions{}, func(tts.Event) {}); err != nil {
		t.Errorf("Expected speak to succeed, got %v", err)
	}
	if engine.SpeakCount() != 2 {
		t.Errorf("Expected 2 speak calls, got %d", engine.SpeakCount())
	}
}

func TestFail(t *testing.T) {
	engine := New()
	var msg string
	_ = engine.Speak("Hello.", tts.SpeakOptions{}, func(ev tts.Event) {
		if ev.Type == tts.EventError {
			msg = ev.Message
		}
	})

	if !engine.Fail("synthesis failed") {
		t.Fatal("Expected a pending utterance")
	}
	if msg != "synthesis failed" {
		t.Errorf("Expected error message, got %q", msg)
	}
}

func TestVoices(t *testing.T) {
	engine := New()
	engine.SetWarmup(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		voices, err := engine.Voices(ctx)
		if err != nil {
			t.Fatalf("Voices failed: %v", err)
		}
		if len(voices) != 0 {
			t.Errorf("Expected no voices while warming up, got %d", len(voices))
		}
	}

	voices, _ := engine.Voices(ctx)
	if len(voices) != len(DefaultVoices) {
		t.Errorf("Expected %d voices, got %d", len(DefaultVoices), len(voices))
	}

	engine.SetVoices([]tts.Voice{{ID: "only"}})
	voices, _ = engine.Voices(ctx)
	if len(voices) != 1 || voices[0].ID != "only" {
		t.Errorf("Expected replaced voice list, got %v", voices)
	}
}

func TestSimulatedFinishes(t *testing.T) {
	engine := NewSimulated(60000) // one word per millisecond
	rec := newRecorder()

	_ = engine.Speak("one two three", tts.SpeakOptions{Rate: 1}, rec.onEvent)

	select {
	case <-rec.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the utterance to end on its own")
	}
	if got := rec.types(); !equalTypes(got, []tts.EventType{tts.EventStarted, tts.EventEnded}) {
		t.Errorf("Expected started then ended, got %v", got)
	}
}

func TestSimulatedPauseHoldsCompletion(t *testing.T) {
	engine := NewSimulated(600) // 100ms per word
	rec := newRecorder()

	_ = engine.Speak("one", tts.SpeakOptions{Rate: 1}, rec.onEvent)
	_ = engine.Pause()

	select {
	case <-rec.ended:
		t.Fatal("Expected a paused utterance not to end")
	case <-time.After(250 * time.Millisecond):
	}

	_ = engine.Resume()
	select {
	case <-rec.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the utterance to end after resume")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		text string
		wpm  int
		rate float64
		want time.Duration
	}{
		{"one two three", 180, 1, time.Second},
		{"one two three", 180, 2, 500 * time.Millisecond},
		{"", 60, 1, time.Second},
		{"word", 60, 0, time.Second},
	}

	for _, tt := range tests {
		if got := Duration(tt.text, tt.wpm, tt.rate); got != tt.want {
			t.Errorf("Duration(%q, %d, %v): expected %v, got %v", tt.text, tt.wpm, tt.rate, tt.want, got)
		}
	}
}
