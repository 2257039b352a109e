// Package tts narrates text through a speech engine, one chunk at a time.
package tts

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts/sentence"
)

// Settings keys.
const (
	KeyRate  = "rate"
	KeyVoice = "voice"
)

// Rate bounds accepted by SetRate.
const (
	MinRate     = 0.1
	MaxRate     = 10.0
	DefaultRate = 1.0
)

// Controller owns the narration Session. All mutation happens on the
// goroutine running Run: commands are sent to it over a channel and engine
// events are queued for it, so no two mutations race.
type Controller struct {
	engine   Engine
	pages    TextSource
	marker   Highlighter
	settings SettingsStore
	observer Observer
	logger   *log.Logger

	voiceAttempts int
	voiceDelay    time.Duration

	machine    *StateMachine
	session    Session
	generation uint64

	requests chan request
	wake     chan struct{}
	done     chan struct{}
	running  atomic.Bool

	eventsMu sync.Mutex
	events   []utteranceEvent
}

type request struct {
	action string
	fn     func(ctx context.Context)
	ctx    context.Context
	reply  chan Snapshot
}

type utteranceEvent struct {
	generation uint64
	Event
}

// Option configures a Controller.
type Option func(*Controller)

// WithTextSource sets the page text collaborator used by Toggle.
func WithTextSource(s TextSource) Option {
	return func(c *Controller) { c.pages = s }
}

// WithHighlighter sets the highlight collaborator.
func WithHighlighter(h Highlighter) Option {
	return func(c *Controller) { c.marker = h }
}

// WithSettings sets the persistent settings store.
func WithSettings(s SettingsStore) Option {
	return func(c *Controller) { c.settings = s }
}

// WithObserver sets the playback observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithDefaults sets the rate and voice used until others are saved.
func WithDefaults(rate float64, voice string) Option {
	return func(c *Controller) {
		if validRate(rate) {
			c.session.Rate = rate
		}
		c.session.Voice = voice
	}
}

// WithVoiceRetry sets how often Init polls the engine for its voice list.
func WithVoiceRetry(attempts int, delay time.Duration) Option {
	return func(c *Controller) {
		c.voiceAttempts = attempts
		c.voiceDelay = delay
	}
}

// NewController creates a controller driving engine.
func NewController(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:        engine,
		observer:      nopObserver{},
		logger:        log.Default().WithPrefix("controller"),
		voiceAttempts: DefaultVoiceAttempts,
		voiceDelay:    DefaultVoiceDelay,
		machine:       NewStateMachine(),
		session:       Session{Rate: DefaultRate},
		requests:      make(chan request),
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.machine.OnEnter(StateStopped, func(from PlaybackState) {
		if from != StateStopped {
			c.logger.Debug("playback stopped", "from", from)
		}
	})

	return c
}

// Init loads the persisted rate and voice. On first run, when no voice has
// been saved or configured, it saves the engine's default voice. It must be
// called before Run.
func (c *Controller) Init(ctx context.Context) error {
	if c.running.Load() {
		return ErrControllerRunning
	}
	if c.settings == nil {
		return nil
	}

	values, err := c.settings.Get(ctx, KeyRate, KeyVoice)
	if err != nil {
		c.logger.Warn("could not load settings", "err", err)
		return nil
	}

	if v, ok := values[KeyRate]; ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || !validRate(rate) {
			c.logger.Warn("ignoring stored rate", "rate", v)
		} else {
			c.session.Rate = rate
		}
	}
	if v := values[KeyVoice]; v != "" {
		c.session.Voice = v
		return nil
	}
	if c.session.Voice != "" {
		return nil
	}

	lister, ok := c.engine.(VoiceLister)
	if !ok {
		return nil
	}
	voices, err := LoadVoices(ctx, lister, c.voiceAttempts, c.voiceDelay)
	if err != nil {
		c.logger.Warn("could not list voices", "err", err)
		return nil
	}
	if v, ok := DefaultVoice(voices); ok {
		c.session.Voice = v.ID
		c.persist(ctx, map[string]string{KeyVoice: v.ID})
		c.logger.Info("saved default voice", "voice", v.ID)
	}
	return nil
}

// Run processes commands and engine events until ctx is done. The engine is
// stopped on return.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrControllerRunning
	}
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			if err := c.engine.Stop(); err != nil {
				c.logger.Debug("engine stop on shutdown", "err", err)
			}
			return ctx.Err()
		case <-c.wake:
			c.drainEvents()
		case req := <-c.requests:
			c.drainEvents()
			req.fn(req.ctx)
			c.observer.CommandHandled(req.action, c.session.State)
			req.reply <- c.session.snapshot()
		}
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// do runs fn on the controller goroutine and returns the resulting snapshot.
func (c *Controller) do(ctx context.Context, action string, fn func(ctx context.Context)) (Snapshot, error) {
	req := request{action: action, fn: fn, ctx: ctx, reply: make(chan Snapshot, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return Snapshot{}, ErrControllerShutdown
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-req.reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrControllerShutdown
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Play starts, restarts or resumes narration.
//
// From Paused with no text it resumes the engine without speaking again.
// Otherwise it binds req.TabID when set, replaces the text when req.Text is
// set, and speaks the chunk at the current index.
func (c *Controller) Play(ctx context.Context, req PlayRequest) (Snapshot, error) {
	return c.do(ctx, ActionPlay, func(context.Context) { c.play(req) })
}

// Pause holds the current utterance. It only has an effect while Playing.
func (c *Controller) Pause(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, ActionPause, func(context.Context) { c.pause() })
}

// Stop ends narration and clears the text. The bound tab is kept.
func (c *Controller) Stop(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, ActionStop, func(context.Context) { c.stop() })
}

// GetState returns the current snapshot.
func (c *Controller) GetState(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, ActionGetState, func(context.Context) {})
}

// SetRate stores the speech rate and restarts the current chunk if playing.
// Rates outside [MinRate, MaxRate] are ignored.
func (c *Controller) SetRate(ctx context.Context, rate float64) (Snapshot, error) {
	return c.do(ctx, ActionSetRate, func(ctx context.Context) {
		if !validRate(rate) {
			c.logger.Warn("ignoring rate", "rate", rate)
			return
		}
		c.session.Rate = rate
		c.persist(ctx, map[string]string{KeyRate: strconv.FormatFloat(rate, 'f', -1, 64)})
		c.restartIfPlaying()
	})
}

// SetVoice stores the voice and restarts the current chunk if playing.
func (c *Controller) SetVoice(ctx context.Context, voice string) (Snapshot, error) {
	return c.do(ctx, ActionSetVoice, func(ctx context.Context) {
		c.session.Voice = voice
		c.persist(ctx, map[string]string{KeyVoice: voice})
		c.restartIfPlaying()
	})
}

// Toggle implements the toggle-play-pause shortcut. With no bound tab it does
// nothing. From Stopped it fetches the bound page's text and plays it; a
// failed or empty fetch leaves the session as it was.
func (c *Controller) Toggle(ctx context.Context) (Snapshot, error) {
	var fetch TabID
	snap, err := c.do(ctx, ActionToggle, func(context.Context) {
		if !c.session.TabID.Bound() {
			return
		}
		switch c.session.State {
		case StatePlaying:
			c.pause()
		case StatePaused:
			c.play(PlayRequest{})
		case StateStopped:
			fetch = c.session.TabID
		}
	})
	if err != nil || !fetch.Bound() {
		return snap, err
	}

	if c.pages == nil {
		c.logger.Warn("no text source configured", "tab", fetch)
		return snap, nil
	}
	text, err := c.pages.GetText(ctx, fetch)
	if err != nil {
		c.logger.Error("could not get page text", "tab", fetch, "err", err)
		return snap, nil
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Debug("page has no text", "tab", fetch)
		return snap, nil
	}
	return c.Play(ctx, PlayRequest{Text: text, TabID: fetch})
}

// TabRemoved stops narration when the bound tab closes and unbinds it.
func (c *Controller) TabRemoved(ctx context.Context, tab TabID) (Snapshot, error) {
	return c.do(ctx, actionTabRemoved, func(context.Context) {
		if !tab.Bound() || tab != c.session.TabID {
			return
		}
		c.logger.Debug("bound tab removed", "tab", tab)
		c.stop()
		c.session.TabID = NoTab
	})
}

// TabUpdated stops narration when the bound tab navigates to a new URL.
func (c *Controller) TabUpdated(ctx context.Context, tab TabID, urlChanged bool) (Snapshot, error) {
	return c.do(ctx, actionTabUpdated, func(context.Context) {
		if !urlChanged || !tab.Bound() || tab != c.session.TabID {
			return
		}
		c.logger.Debug("bound tab navigated", "tab", tab)
		c.stop()
	})
}

func (c *Controller) play(req PlayRequest) {
	s := &c.session
	if s.State == StatePaused && req.Text == "" {
		if err := c.engine.Resume(); err != nil {
			c.logger.Error("resume failed", "err", err)
			c.stop()
			return
		}
		c.transition(StatePlaying)
		return
	}

	if req.TabID.Bound() {
		s.TabID = req.TabID
	}
	if req.Text != "" {
		s.Text = req.Text
		s.Chunks = sentence.Chunk(req.Text)
		s.ChunkIndex = 0
	}

	c.transition(StatePlaying)
	c.stopEngine()
	c.speakCurrent()
}

func (c *Controller) pause() {
	if c.session.State != StatePlaying {
		return
	}
	if err := c.engine.Pause(); err != nil {
		c.logger.Error("pause failed", "err", err)
		return
	}
	c.transition(StatePaused)
}

func (c *Controller) stop() {
	c.stopEngine()
	c.transition(StateStopped)
	c.session.Chunks = nil
	c.session.ChunkIndex = 0
	c.session.Text = ""
}

func (c *Controller) restartIfPlaying() {
	if c.session.State != StatePlaying {
		return
	}
	c.stopEngine()
	c.speakCurrent()
}

// speakCurrent speaks the chunk at ChunkIndex, or stops when there is
// nothing left to say.
func (c *Controller) speakCurrent() {
	s := &c.session
	if s.State != StatePlaying || s.ChunkIndex >= len(s.Chunks) {
		c.stop()
		return
	}

	c.generation++
	gen := c.generation
	chunk := s.Chunks[s.ChunkIndex]

	c.logger.Debug("speak", "chunk", s.ChunkIndex, "of", len(s.Chunks), "generation", gen)
	err := c.engine.Speak(chunk, SpeakOptions{Rate: s.Rate, Voice: s.Voice}, func(ev Event) {
		c.enqueue(utteranceEvent{generation: gen, Event: ev})
	})
	if err != nil {
		c.logger.Error("speak failed", "chunk", s.ChunkIndex, "err", err)
		c.observer.UtteranceFinished(EventError)
		c.stop()
		return
	}

	c.observer.UtteranceStarted(s.ChunkIndex, len(s.Chunks))
	c.highlight(chunk)
}

func (c *Controller) stopEngine() {
	if err := c.engine.Stop(); err != nil {
		c.logger.Error("engine stop failed", "err", err)
	}
}

func (c *Controller) transition(to PlaybackState) {
	from := c.session.State
	if !c.machine.Transition(&c.session.State, to) {
		c.logger.Warn("invalid state transition", "from", from, "to", to)
	}
}

// enqueue records an engine event. It may run on any goroutine, including
// the controller's own from inside an engine call, so it never blocks.
func (c *Controller) enqueue(ev utteranceEvent) {
	c.eventsMu.Lock()
	c.events = append(c.events, ev)
	c.eventsMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) drainEvents() {
	for {
		c.eventsMu.Lock()
		if len(c.events) == 0 {
			c.eventsMu.Unlock()
			return
		}
		ev := c.events[0]
		c.events = c.events[1:]
		c.eventsMu.Unlock()

		c.handleEvent(ev)
	}
}

func (c *Controller) handleEvent(ev utteranceEvent) {
	if ev.generation != c.generation {
		c.logger.Debug("stale engine event", "type", ev.Type, "generation", ev.generation, "current", c.generation)
		return
	}

	switch ev.Type {
	case EventStarted:
		c.logger.Debug("utterance started", "chunk", c.session.ChunkIndex)
	case EventEnded:
		c.observer.UtteranceFinished(EventEnded)
		c.highlight("")
		if c.session.State == StatePlaying {
			c.session.ChunkIndex++
			c.speakCurrent()
		}
	case EventInterrupted, EventCancelled:
		c.observer.UtteranceFinished(ev.Type)
		c.highlight("")
		if c.session.State != StateStopped {
			c.stop()
		}
	case EventError:
		c.logger.Error("engine error", "message", ev.Message, "chunk", c.session.ChunkIndex)
		c.observer.UtteranceFinished(EventError)
		c.highlight("")
		c.stop()
	}
}

func (c *Controller) highlight(text string) {
	if c.marker == nil || !c.session.TabID.Bound() {
		return
	}
	if err := c.marker.Highlight(c.session.TabID, text); err != nil {
		c.logger.Debug("highlight not delivered", "tab", c.session.TabID, "err", err)
	}
}

func (c *Controller) persist(ctx context.Context, values map[string]string) {
	if c.settings == nil {
		return
	}
	if err := c.settings.Set(ctx, values); err != nil {
		c.logger.Error("could not save settings", "err", err)
	}
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && rate >= MinRate && rate <= MaxRate
}
