// Package espeak speaks through the espeak-ng (or espeak) command line
// synthesizer, which plays audio itself.
package espeak

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/pipeline"
)

// Name is the engine name.
const Name = tts.EngineEspeak

// Speed bounds accepted by espeak, in words per minute.
const (
	MinSpeed = 80
	MaxSpeed = 450
)

// DefaultVoice is flagged as the default when installed.
const DefaultVoice = "en-us"

// process is a running espeak invocation.
type process interface {
	Wait() error
	Suspend() error
	Continue() error
	Kill() error
}

type startFunc func(binary string, args []string, input string) (process, error)
type outputFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Engine speaks with espeak.
type Engine struct {
	binary string
	wpm    int
	start  startFunc
	output outputFunc
	logger *log.Logger

	tracker pipeline.Tracker

	mu   sync.Mutex
	proc process
}

var (
	_ tts.Engine      = (*Engine)(nil)
	_ tts.VoiceLister = (*Engine)(nil)
)

// New creates an espeak engine.
func New(cfg tts.EspeakConfig, logger *log.Logger) (*Engine, error) {
	binary, err := findBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}
	return newEngine(binary, cfg.WordsPerMinute, startProcess, runOutput, logger), nil
}

func newEngine(binary string, wpm int, start startFunc, output outputFunc, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default().WithPrefix(Name)
	}
	return &Engine{binary: binary, wpm: wpm, start: start, output: output, logger: logger}
}

// Speed converts a rate to espeak words per minute.
func Speed(wpm int, rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	s := int(float64(wpm)*rate + 0.5)
	return min(max(s, MinSpeed), MaxSpeed)
}

// Speak starts espeak on text, interrupting the current utterance.
func (e *Engine) Speak(text string, opts tts.SpeakOptions, onEvent func(tts.Event)) error {
	args := []string{"-s", strconv.Itoa(Speed(e.wpm, opts.Rate))}
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	}
	args = append(args, "--stdin")

	e.mu.Lock()
	e.killLocked()
	h, prev := e.tracker.Start(onEvent)
	proc, err := e.start(e.binary, args, text)
	if err != nil {
		e.tracker.Stop()
		e.mu.Unlock()
		prev.Interrupt()
		return tts.NewEngineError(Name, "speak", err)
	}
	e.proc = proc
	e.mu.Unlock()

	prev.Interrupt()
	h.Emit(tts.Event{Type: tts.EventStarted})
	go e.wait(h, proc)
	return nil
}

func (e *Engine) wait(h *pipeline.Handle, proc process) {
	err := proc.Wait()

	e.mu.Lock()
	if e.proc == proc {
		e.proc = nil
	}
	e.mu.Unlock()

	if err != nil {
		e.tracker.Finish(h, tts.Event{Type: tts.EventError, Message: err.Error()})
		return
	}
	e.tracker.Finish(h, tts.Event{Type: tts.EventEnded})
}

// Pause suspends the espeak process.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	return tts.NewEngineError(Name, "pause", e.proc.Suspend())
}

// Resume continues a suspended espeak process.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	return tts.NewEngineError(Name, "resume", e.proc.Continue())
}

// Stop kills the espeak process.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.killLocked()
	prev := e.tracker.Stop()
	e.mu.Unlock()

	prev.Interrupt()
	return nil
}

// Close stops speech.
func (e *Engine) Close() error {
	return e.Stop()
}

func (e *Engine) killLocked() {
	if e.proc == nil {
		return
	}
	if err := e.proc.Kill(); err != nil {
		e.logger.Debug("kill espeak", "err", err)
	}
	e.proc = nil
}

// Voices lists the installed espeak voices.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	out, err := e.output(ctx, e.binary, "--voices")
	if err != nil {
		return nil, tts.NewEngineError(Name, "voices", err)
	}
	return parseVoices(out), nil
}

// parseVoices reads the table printed by espeak --voices:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  af              --/M      Afrikaans          gmw/af
func parseVoices(out []byte) []tts.Voice {
	var voices []tts.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		voices = append(voices, tts.Voice{
			ID:       f[1],
			Name:     strings.ReplaceAll(f[3], "_", " "),
			Language: f[1],
			Gender:   gender(f[2]),
			Default:  f[1] == DefaultVoice,
		})
	}
	return voices
}

func gender(ageGender string) string {
	switch {
	case strings.HasSuffix(ageGender, "M"):
		return "male"
	case strings.HasSuffix(ageGender, "F"):
		return "female"
	default:
		return ""
	}
}

type execProcess struct {
	cmd *exec.Cmd
}

func startProcess(binary string, args []string, input string) (process, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stdin = strings.NewReader(input)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

func (p *execProcess) Wait() error     { return p.cmd.Wait() }
func (p *execProcess) Suspend() error  { return suspend(p.cmd.Process) }
func (p *execProcess) Continue() error { return resume(p.cmd.Process) }
func (p *execProcess) Kill() error     { return p.cmd.Process.Kill() }

func runOutput(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

func findBinary(configured string) (string, error) {
	candidates := []string{"espeak-ng", "espeak"}
	if configured != "" {
		candidates = []string{configured}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s found on %s", tts.ErrEngineNotAvailable,
		strings.Join(candidates, ", "), os.Getenv("PATH"))
}
