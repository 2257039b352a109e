package pipeline

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/tts"
)

// Synthesizer renders text to audio bytes in the sink's format.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts tts.SpeakOptions) ([]byte, error)
}

// Sink plays audio bytes. onDone is called once data has played to the end
// and never for data that was stopped.
type Sink interface {
	Play(data []byte, onDone func()) error
	Pause()
	Resume()
	Stop()
	Close() error
}

// Cache stores synthesized audio. *cache.DiskCache implements it.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, data []byte) error
}

// Engine implements tts.Engine on a Synthesizer and a Sink.
type Engine struct {
	name    string
	synth   Synthesizer
	sink    Sink
	cache   Cache
	timeout time.Duration
	logger  *log.Logger

	tracker Tracker

	mu     sync.Mutex
	cancel context.CancelFunc
	paused bool
}

var _ tts.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables the audio cache.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithTimeout bounds a single synthesis.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine named name.
func New(name string, synth Synthesizer, sink Sink, opts ...Option) *Engine {
	e := &Engine{
		name:    name,
		synth:   synth,
		sink:    sink,
		timeout: 30 * time.Second,
		logger:  log.Default().WithPrefix(name),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return e.name
}

// Speak synthesizes text in the background and plays it. Failures are
// reported as EventError.
func (e *Engine) Speak(text string, opts tts.SpeakOptions, onEvent func(tts.Event)) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)

	e.mu.Lock()
	e.abortLocked()
	e.cancel = cancel
	e.paused = false
	h, prev := e.tracker.Start(onEvent)
	e.mu.Unlock()

	prev.Interrupt()
	go e.run(ctx, cancel, h, text, opts)
	return nil
}

// Pause holds playback. A pause during synthesis takes effect when playback
// starts.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.sink.Pause()
	return nil
}

// Resume continues playback.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.sink.Resume()
	return nil
}

// Stop interrupts the current utterance.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.abortLocked()
	e.paused = false
	prev := e.tracker.Stop()
	e.mu.Unlock()

	prev.Interrupt()
	return nil
}

// Close stops playback and releases the sink.
func (e *Engine) Close() error {
	_ = e.Stop()
	return e.sink.Close()
}

func (e *Engine) abortLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.sink.Stop()
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, h *Handle, text string, opts tts.SpeakOptions) {
	defer cancel()

	data, err := e.audio(ctx, text, opts)
	if err != nil {
		if !e.tracker.Current(h) {
			return
		}
		e.logger.Error("synthesis failed", "err", err)
		e.tracker.Finish(h, tts.Event{Type: tts.EventError, Message: err.Error()})
		return
	}

	e.mu.Lock()
	if !e.tracker.Current(h) {
		e.mu.Unlock()
		return
	}
	err = e.sink.Play(data, func() {
		e.tracker.Finish(h, tts.Event{Type: tts.EventEnded})
	})
	if err == nil && e.paused {
		e.sink.Pause()
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("playback failed", "err", err)
		e.tracker.Finish(h, tts.Event{Type: tts.EventError, Message: err.Error()})
		return
	}
	h.Emit(tts.Event{Type: tts.EventStarted})
}

// audio returns the synthesized bytes, from the cache when possible.
func (e *Engine) audio(ctx context.Context, text string, opts tts.SpeakOptions) ([]byte, error) {
	key := cache.Key(e.name, opts.Voice, strconv.FormatFloat(opts.Rate, 'f', -1, 64), text)
	if e.cache != nil {
		if data, ok := e.cache.Get(key); ok {
			e.logger.Debug("cache hit", "bytes", len(data))
			return data, nil
		}
	}

	data, err := e.synth.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, tts.NewEngineError(e.name, "synthesize", err)
	}

	if e.cache != nil {
		if err := e.cache.Put(key, data); err != nil {
			e.logger.Debug("cache put failed", "err", err)
		}
	}
	return data, nil
}
