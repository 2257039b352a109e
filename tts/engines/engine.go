// Package engines creates speech engines by name.
package engines

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/espeak"
	"github.com/dgnsrekt/readaloud/tts/engines/google"
	"github.com/dgnsrekt/readaloud/tts/engines/mock"
	"github.com/dgnsrekt/readaloud/tts/engines/pipeline"
	"github.com/dgnsrekt/readaloud/tts/engines/piper"
)

// Constructor builds an engine. c is nil when the audio cache is disabled.
type Constructor func(ctx context.Context, cfg tts.Config, c pipeline.Cache, logger *log.Logger) (tts.Engine, error)

var registry = map[string]Constructor{
	tts.EngineMock: func(_ context.Context, cfg tts.Config, _ pipeline.Cache, _ *log.Logger) (tts.Engine, error) {
		return mock.NewSimulated(cfg.Mock.WordsPerMinute), nil
	},
	tts.EngineEspeak: func(_ context.Context, cfg tts.Config, _ pipeline.Cache, logger *log.Logger) (tts.Engine, error) {
		return espeak.New(cfg.Espeak, logger)
	},
	tts.EnginePiper: func(_ context.Context, cfg tts.Config, c pipeline.Cache, logger *log.Logger) (tts.Engine, error) {
		return piper.New(cfg.Piper, c, logger)
	},
	tts.EngineGoogle: func(ctx context.Context, cfg tts.Config, c pipeline.Cache, logger *log.Logger) (tts.Engine, error) {
		return google.New(ctx, cfg.Google, c, logger)
	},
}

// Names returns the known engine names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the engine called name.
func New(ctx context.Context, name string, cfg tts.Config, logger *log.Logger) (tts.Engine, error) {
	return newFrom(ctx, registry, name, cfg, logger)
}

func newFrom(ctx context.Context, reg map[string]Constructor, name string, cfg tts.Config, logger *log.Logger) (tts.Engine, error) {
	ctor, ok := reg[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tts.ErrUnknownEngine, name)
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix(name)

	var c pipeline.Cache
	if dc := OpenCache(cfg.Cache, logger); dc != nil {
		c = dc
	}
	return ctor(ctx, cfg, c, logger)
}

// OpenCache opens the audio cache, or returns nil when it is disabled or
// cannot be opened.
func OpenCache(cfg tts.CacheConfig, logger *log.Logger) *cache.DiskCache {
	if !cfg.Enabled || cfg.Dir == "" {
		return nil
	}
	dc, err := cache.NewDiskCache(cfg.Dir, int64(cfg.MaxSizeMB)<<20, cfg.CompressionLevel)
	if err != nil {
		logger.Warn("audio cache disabled", "dir", cfg.Dir, "err", err)
		return nil
	}
	return dc
}
