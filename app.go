package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/settings"
	"github.com/dgnsrekt/readaloud/internal/telemetry"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines"
	"github.com/dgnsrekt/readaloud/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Engines tried, in order, when the configured one is not installed.
var engineFallback = []string{tts.EngineEspeak}

func engineNames() []string {
	return engines.Names()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// app holds the narration controller and everything it owns.
type app struct {
	cfg        tts.Config
	engine     tts.Engine
	engineName string
	store      settings.Store
	metrics    *telemetry.Provider
	ctrl       *tts.Controller
	logger     *log.Logger
}

// loadConfig reads the narration configuration and fills in the default
// settings and cache locations.
func loadConfig() (tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}

	if viper.GetBool("ephemeral") {
		cfg.Settings.Backend = tts.SettingsMemory
	}

	scope := gap.NewScope(gap.User, appName)
	if cfg.Settings.Path == "" {
		path, err := scope.DataPath("settings.db")
		if err != nil {
			return cfg, fmt.Errorf("unable to find data directory: %w", err)
		}
		cfg.Settings.Path = path
	}
	if cfg.Cache.Dir == "" {
		dir, err := scope.CacheDir()
		if err != nil {
			return cfg, fmt.Errorf("unable to find cache directory: %w", err)
		}
		cfg.Cache.Dir = filepath.Join(dir, "audio")
	}

	cfg.Settings.Path = utils.ExpandPath(cfg.Settings.Path)
	cfg.Cache.Dir = utils.ExpandPath(cfg.Cache.Dir)
	cfg.Piper.ModelDir = utils.ExpandPath(cfg.Piper.ModelDir)
	return cfg, nil
}

// newEngine creates the configured engine, falling back when it is not
// installed.
func newEngine(ctx context.Context, cfg tts.Config, logger *log.Logger) (tts.Engine, string, error) {
	engine, name, err := engines.NewWithFallback(ctx, cfg, logger, engineFallback...)
	if err != nil {
		return nil, "", err
	}
	log.Info("speech engine ready", "engine", name)
	return engine, name, nil
}

// newApp builds an initialized controller. opts wire the page collaborators.
func newApp(ctx context.Context, opts ...tts.Option) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := log.Default()

	engine, name, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, engine: engine, engineName: name, logger: logger}

	a.store, err = settings.Open(ctx, cfg.Settings)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to open settings: %w", err)
	}

	a.metrics, err = telemetry.Setup(ctx, appName, Version)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to set up metrics: %w", err)
	}
	observer, err := telemetry.NewMetrics(a.metrics.MeterProvider.Meter(telemetry.MeterName))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unable to create metrics: %w", err)
	}

	opts = append([]tts.Option{
		tts.WithSettings(a.store),
		tts.WithObserver(observer),
		tts.WithLogger(logger.WithPrefix("controller")),
		tts.WithDefaults(cfg.Rate, a.configuredVoice(ctx)),
	}, opts...)
	a.ctrl = tts.NewController(engine, opts...)

	if err := a.ctrl.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// configuredVoice resolves the configured voice against the engine's voices.
// Unknown voices are passed through for the engine to reject.
func (a *app) configuredVoice(ctx context.Context) string {
	if a.cfg.Voice == "" {
		return ""
	}
	voices := a.voices(ctx)
	if len(voices) == 0 {
		return a.cfg.Voice
	}
	v, err := tts.ResolveVoice(voices, a.cfg.Voice)
	if err != nil {
		a.logger.Warn("configured voice not found", "voice", a.cfg.Voice, "err", err)
		return a.cfg.Voice
	}
	return v.ID
}

// voices lists the engine's voices, or nil when it cannot list them.
func (a *app) voices(ctx context.Context) []tts.Voice {
	lister, ok := a.engine.(tts.VoiceLister)
	if !ok {
		return nil
	}
	voices, err := tts.LoadVoices(ctx, lister, tts.DefaultVoiceAttempts, tts.DefaultVoiceDelay)
	if err != nil {
		a.logger.Warn("could not list voices", "engine", a.engineName, "err", err)
		return nil
	}
	return voices
}

// start runs the controller until the returned stop function is called or
// ctx is done. stop waits for the controller to exit.
func (a *app) start(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := a.ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("controller stopped", "err", err)
		}
	}()
	return ctx, func() {
		cancel()
		<-a.ctrl.Done()
	}
}

// applyFlags turns an explicit --rate or --voice into saved settings. Values
// from the config file only serve as defaults.
func (a *app) applyFlags(ctx context.Context, cmd *cobra.Command) error {
	if cmd.Flags().Changed("rate") {
		rate := viper.GetFloat64("rate")
		if rate < tts.MinRate || rate > tts.MaxRate {
			return fmt.Errorf("%w: %v not in [%v, %v]", tts.ErrInvalidRate, rate, tts.MinRate, tts.MaxRate)
		}
		if _, err := a.ctrl.SetRate(ctx, rate); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("voice") {
		if _, err := a.ctrl.SetVoice(ctx, a.configuredVoice(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// Close releases everything the app owns.
func (a *app) Close() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Debug("closing engine", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Debug("closing settings", "err", err)
		}
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
}
