// Package settings persists narration settings.
package settings

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/readaloud/tts"
)

// Store is a tts.SettingsStore that can be closed.
type Store interface {
	tts.SettingsStore
	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg tts.SettingsConfig) (Store, error) {
	switch cfg.Backend {
	case tts.SettingsMemory:
		return NewMemory(), nil
	case tts.SettingsSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: settings path is empty", tts.ErrInvalidConfig)
		}
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown settings backend %q", tts.ErrInvalidConfig, cfg.Backend)
	}
}
