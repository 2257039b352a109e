package engines

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
)

// NewWithFallback creates the configured engine. When it is not available on
// this system, the engines in fallback are tried in order. It returns the
// engine with the name it was created under.
func NewWithFallback(ctx context.Context, cfg tts.Config, logger *log.Logger, fallback ...string) (tts.Engine, string, error) {
	return newWithFallback(ctx, registry, cfg, logger, fallback...)
}

func newWithFallback(ctx context.Context, reg map[string]Constructor, cfg tts.Config, logger *log.Logger, fallback ...string) (tts.Engine, string, error) {
	if logger == nil {
		logger = log.Default()
	}

	names := append([]string{cfg.Engine}, fallback...)
	var errs []error
	for i, name := range names {
		if i > 0 && name == cfg.Engine {
			continue
		}
		engine, err := newFrom(ctx, reg, name, cfg, logger)
		if err == nil {
			if i > 0 {
				logger.Warn("using fallback engine", "engine", name, "wanted", cfg.Engine)
			}
			return engine, name, nil
		}
		if !errors.Is(err, tts.ErrEngineNotAvailable) {
			return nil, "", err
		}
		logger.Warn("engine not available", "engine", name, "err", err)
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("no speech engine available: %w", errors.Join(errs...))
}
