package ui

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains TUI-specific configuration.
type Config struct {
	// Document to read.
	Path string
	// Read the clipboard selection before the document.
	Selection bool

	EnableMouse    bool    `env:"READALOUD_MOUSE"`
	MaxWidth       int     `env:"READALOUD_WIDTH"           envDefault:"100"`
	HighlightColor string  `env:"READALOUD_HIGHLIGHT_COLOR"`
	RateStep       float64 `env:"READALOUD_RATE_STEP"       envDefault:"0.1"`
}

// LoadConfig reads the reader settings from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	if cfg.RateStep <= 0 {
		cfg.RateStep = 0.1
	}
	return cfg, nil
}
