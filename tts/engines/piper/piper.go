// Package piper speaks through the Piper neural TTS binary. Each utterance
// runs one piper process that writes raw PCM, which is played with oto.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/pipeline"
)

// Name is the engine name.
const Name = tts.EnginePiper

// Engine speaks with Piper.
type Engine struct {
	*pipeline.Engine
	synth *synthesizer
}

var _ tts.VoiceLister = (*Engine)(nil)

// runFunc runs the piper binary with args, feeding input on stdin, and
// returns its stdout.
type runFunc func(ctx context.Context, binary string, args []string, input string) ([]byte, error)

type synthesizer struct {
	binary   string
	modelDir string
	model    string
	run      runFunc
}

// New creates a Piper engine. cache may be nil.
func New(cfg tts.PiperConfig, cache pipeline.Cache, logger *log.Logger) (*Engine, error) {
	binary, err := findBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}
	player, err := audio.Open(audio.Format{SampleRate: cfg.SampleRate, Channels: 1})
	if err != nil {
		return nil, tts.NewEngineError(Name, "open audio", err)
	}
	return newEngine(cfg, binary, runPiper, player, cache, logger), nil
}

func newEngine(cfg tts.PiperConfig, binary string, run runFunc, sink pipeline.Sink, cache pipeline.Cache, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default().WithPrefix(Name)
	}
	s := &synthesizer{
		binary:   binary,
		modelDir: cfg.ModelDir,
		model:    cfg.Model,
		run:      run,
	}
	opts := []pipeline.Option{pipeline.WithTimeout(cfg.Timeout), pipeline.WithLogger(logger)}
	if cache != nil {
		opts = append(opts, pipeline.WithCache(cache))
	}
	return &Engine{Engine: pipeline.New(Name, s, sink, opts...), synth: s}
}

// Synthesize renders text to 16-bit mono PCM.
func (s *synthesizer) Synthesize(ctx context.Context, text string, opts tts.SpeakOptions) ([]byte, error) {
	args := []string{"--model", s.modelPath(opts.Voice), "--output-raw"}
	if opts.Rate > 0 && opts.Rate != 1 {
		// Piper stretches phoneme length; smaller is faster.
		args = append(args, "--length_scale", strconv.FormatFloat(1/opts.Rate, 'f', 3, 64))
	}

	pcm, err := s.run(ctx, s.binary, args, text+"\n")
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, errors.New("no audio data generated")
	}
	return pcm, nil
}

// modelPath resolves a voice to a model file. A voice that looks like a path
// is used as is.
func (s *synthesizer) modelPath(voice string) string {
	if voice == "" {
		voice = s.model
	}
	if strings.HasSuffix(voice, ".onnx") || strings.ContainsRune(voice, os.PathSeparator) {
		return voice
	}
	return filepath.Join(s.modelDir, voice+".onnx")
}

// Voices lists the models installed in the model directory.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	paths, err := filepath.Glob(filepath.Join(e.synth.modelDir, "*.onnx"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	voices := make([]tts.Voice, 0, len(paths))
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), ".onnx")
		voices = append(voices, tts.Voice{
			ID:       id,
			Name:     id,
			Language: language(id),
			Default:  id == e.synth.model,
		})
	}
	return voices, nil
}

// language maps a model name like en_US-lessac-medium to en-US.
func language(model string) string {
	locale, _, _ := strings.Cut(model, "-")
	return strings.ReplaceAll(locale, "_", "-")
}

func runPiper(ctx context.Context, binary string, args []string, input string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
			msg = msg[i+1:]
		}
		return nil, fmt.Errorf("piper: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

// findBinary resolves the piper binary, trying common install locations when
// the configured one is not on the PATH.
func findBinary(configured string) (string, error) {
	locations := []string{configured, "piper", "/usr/local/bin/piper", "/usr/bin/piper"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".local", "bin", "piper"),
			filepath.Join(home, "bin", "piper"),
		)
	}

	for _, loc := range locations {
		if loc == "" {
			continue
		}
		if path, err := exec.LookPath(loc); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: piper binary not found", tts.ErrEngineNotAvailable)
}
