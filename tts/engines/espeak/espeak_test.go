package espeak

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
)

// fakeProcess exits when exit is called or it is killed.
type fakeProcess struct {
	args   []string
	input  string
	done   chan error
	once   sync.Once
	mu     sync.Mutex
	halted bool
	killed bool
}

func newFakeProcess(args []string, input string) *fakeProcess {
	return &fakeProcess{args: args, input: input, done: make(chan error, 1)}
}

func (p *fakeProcess) Wait() error { return <-p.done }

func (p *fakeProcess) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = true
	return nil
}

func (p *fakeProcess) Continue() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halted = false
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) exit(err error) {
	p.once.Do(func() { p.done <- err })
}

type launcher struct {
	mu    sync.Mutex
	procs []*fakeProcess
	err   error
}

func (l *launcher) start(_ string, args []string, input string) (process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	p := newFakeProcess(args, input)
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *launcher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

func noOutput(context.Context, string, ...string) ([]byte, error) { return nil, nil }

func collect() (chan tts.Event, func(tts.Event)) {
	ch := make(chan tts.Event, 8)
	return ch, func(ev tts.Event) { ch <- ev }
}

func next(t *testing.T, ch chan tts.Event) tts.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an event")
		return tts.Event{}
	}
}

func TestSpeak(t *testing.T) {
	l := &launcher{}
	e := newEngine("espeak-ng", 175, l.start, noOutput, log.New(io.Discard))
	ch, onEvent := collect()

	if err := e.Speak("Hello there.", tts.SpeakOptions{Rate: 2, Voice: "en-gb"}, onEvent); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if ev := next(t, ch); ev.Type != tts.EventStarted {
		t.Fatalf("Expected started, got %s", ev.Type)
	}

	p := l.last()
	if got := strings.Join(p.args, " "); got != "-s 350 -v en-gb --stdin" {
		t.Errorf("Unexpected arguments %q", got)
	}
	if p.input != "Hello there." {
		t.Errorf("Expected text on stdin, got %q", p.input)
	}

	p.exit(nil)
	if ev := next(t, ch); ev.Type != tts.EventEnded {
		t.Errorf("Expected ended, got %s", ev.Type)
	}
}

func TestSpeakProcessFailure(t *testing.T) {
	l := &launcher{}
	e := newEngine("espeak-ng", 175, l.start, noOutput, log.New(io.Discard))
	ch, onEvent := collect()

	_ = e.Speak("Hello.", tts.SpeakOptions{}, onEvent)
	next(t, ch)
	l.last().exit(errors.New("exit status 1"))

	if ev := next(t, ch); ev.Type != tts.EventError {
		t.Errorf("Expected error, got %s", ev.Type)
	}
}

func TestSpeakStartFailure(t *testing.T) {
	l := &launcher{err: errors.New("permission denied")}
	e := newEngine("espeak-ng", 175, l.start, noOutput, log.New(io.Discard))

	err := e.Speak("Hello.", tts.SpeakOptions{}, func(tts.Event) {})
	var engineErr *tts.EngineError
	if !errors.As(err, &engineErr) || engineErr.Engine != Name {
		t.Errorf("Expected an espeak EngineError, got %v", err)
	}
}

func TestSpeakSupersedes(t *testing.T) {
	l := &launcher{}
	e := newEngine("espeak-ng", 175, l.start, noOutput, log.New(io.Discard))
	first, onFirst := collect()
	second, onSecond := collect()

	_ = e.Speak("One.", tts.SpeakOptions{}, onFirst)
	next(t, first)
	p1 := l.last()

	_ = e.Speak("Two.", tts.SpeakOptions{}, onSecond)
	if ev := next(t, first); ev.Type != tts.EventInterrupted {
		t.Errorf("Expected interrupted, got %s", ev.Type)
	}
	if !p1.killed {
		t.Error("Expected first process to be killed")
	}
	if ev := next(t, second); ev.Type != tts.EventStarted {
		t.Errorf("Expected started, got %s", ev.Type)
	}

	// The killed process exiting must not reach either utterance.
	select {
	case ev := <-first:
		t.Errorf("Unexpected event %s for the first utterance", ev.Type)
	case ev := <-second:
		t.Errorf("Unexpected event %s for the second utterance", ev.Type)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPauseResumeStop(t *testing.T) {
	l := &launcher{}
	e := newEngine("espeak-ng", 175, l.start, noOutput, log.New(io.Discard))
	ch, onEvent := collect()

	if err := e.Pause(); err != nil {
		t.Errorf("Expected pause with nothing running to succeed, got %v", err)
	}

	_ = e.Speak("Hello.", tts.SpeakOptions{}, onEvent)
	next(t, ch)
	p := l.last()

	_ = e.Pause()
	if !p.halted {
		t.Error("Expected process to be suspended")
	}
	_ = e.Resume()
	if p.halted {
		t.Error("Expected process to be continued")
	}

	_ = e.Stop()
	if ev := next(t, ch); ev.Type != tts.EventInterrupted {
		t.Errorf("Expected interrupted, got %s", ev.Type)
	}
	if !p.killed {
		t.Error("Expected process to be killed")
	}
}

func TestSpeed(t *testing.T) {
	tests := []struct {
		wpm  int
		rate float64
		want int
	}{
		{175, 1, 175},
		{175, 1.5, 263},
		{175, 0.1, MinSpeed},
		{175, 10, MaxSpeed},
		{175, 0, 175},
	}

	for _, tt := range tests {
		if got := Speed(tt.wpm, tt.rate); got != tt.want {
			t.Errorf("Speed(%d, %v): expected %d, got %d", tt.wpm, tt.rate, tt.want, got)
		}
	}
}

func TestVoices(t *testing.T) {
	out := `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 5  de              --/M      German             gmw/de
 2  en-us           --/F      English_(America)  gmw/en-US            (en 3)
`
	output := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if len(args) != 1 || args[0] != "--voices" {
			t.Errorf("Unexpected arguments %v", args)
		}
		return []byte(out), nil
	}
	e := newEngine("espeak-ng", 175, (&launcher{}).start, output, log.New(io.Discard))

	voices, err := e.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 3 {
		t.Fatalf("Expected 3 voices, got %d", len(voices))
	}

	v := voices[2]
	if v.ID != "en-us" || v.Name != "English (America)" || v.Gender != "female" || !v.Default {
		t.Errorf("Unexpected voice %+v", v)
	}
	if voices[0].Gender != "male" || voices[0].Default {
		t.Errorf("Unexpected voice %+v", voices[0])
	}
}
