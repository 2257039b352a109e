package tts

import (
	"fmt"
	"time"
)

// Engine names.
const (
	EngineMock   = "mock"
	EngineEspeak = "espeak"
	EnginePiper  = "piper"
	EngineGoogle = "google"
)

// Settings backends.
const (
	SettingsSQLite = "sqlite"
	SettingsMemory = "memory"
)

// Config contains the narration configuration.
type Config struct {
	Engine string  `yaml:"engine"`
	Rate   float64 `yaml:"rate"`  // used until a rate is saved
	Voice  string  `yaml:"voice"` // used until a voice is saved

	Settings SettingsConfig `yaml:"settings"`
	Cache    CacheConfig    `yaml:"cache"`

	Espeak EspeakConfig `yaml:"espeak"`
	Piper  PiperConfig  `yaml:"piper"`
	Google GoogleConfig `yaml:"google"`
	Mock   MockConfig   `yaml:"mock"`
}

// SettingsConfig selects where rate and voice are persisted.
type SettingsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // empty for the user data dir
}

// CacheConfig controls the synthesized audio cache.
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Dir              string `yaml:"dir"` // empty for the user cache dir
	CompressionLevel int    `yaml:"compression_level"`
	MaxSizeMB        int    `yaml:"max_size_mb"`
}

// EspeakConfig contains espeak engine settings.
type EspeakConfig struct {
	Binary         string `yaml:"binary"` // empty to search for espeak-ng, then espeak
	WordsPerMinute int    `yaml:"words_per_minute"`
}

// PiperConfig contains Piper engine settings.
type PiperConfig struct {
	Binary     string        `yaml:"binary"`
	ModelDir   string        `yaml:"model_dir"`
	Model      string        `yaml:"model"`
	SampleRate int           `yaml:"sample_rate"`
	Timeout    time.Duration `yaml:"timeout"`
}

// GoogleConfig contains Google Cloud Text-to-Speech settings.
type GoogleConfig struct {
	LanguageCode      string        `yaml:"language_code"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// MockConfig contains mock engine settings.
type MockConfig struct {
	WordsPerMinute int `yaml:"words_per_minute"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine: EngineEspeak,
		Rate:   DefaultRate,
		Settings: SettingsConfig{
			Backend: SettingsSQLite,
		},
		Cache: CacheConfig{
			Enabled:          true,
			CompressionLevel: 3,
			MaxSizeMB:        256,
		},
		Espeak: EspeakConfig{
			WordsPerMinute: 175,
		},
		Piper: PiperConfig{
			Binary:     "piper",
			Model:      "en_US-lessac-medium",
			SampleRate: 22050,
			Timeout:    30 * time.Second,
		},
		Google: GoogleConfig{
			LanguageCode:      "en-US",
			RequestsPerMinute: 60,
			Timeout:           10 * time.Second,
		},
		Mock: MockConfig{
			WordsPerMinute: 180,
		},
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineMock, EngineEspeak, EnginePiper, EngineGoogle:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}

	if !validRate(c.Rate) {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrInvalidRate, c.Rate, MinRate, MaxRate)
	}

	switch c.Settings.Backend {
	case SettingsSQLite, SettingsMemory:
	default:
		return fmt.Errorf("%w: unknown settings backend %q", ErrInvalidConfig, c.Settings.Backend)
	}

	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("%w: cache compression level must be between 0 and 22, got %d",
			ErrInvalidConfig, c.Cache.CompressionLevel)
	}
	if c.Cache.MaxSizeMB < 1 {
		return fmt.Errorf("%w: cache max size must be positive", ErrInvalidConfig)
	}

	if c.Espeak.WordsPerMinute < 80 || c.Espeak.WordsPerMinute > 450 {
		return fmt.Errorf("%w: espeak words per minute must be between 80 and 450, got %d",
			ErrInvalidConfig, c.Espeak.WordsPerMinute)
	}
	if c.Piper.SampleRate <= 0 {
		return fmt.Errorf("%w: piper sample rate must be positive", ErrInvalidConfig)
	}
	if c.Piper.Timeout <= 0 {
		return fmt.Errorf("%w: piper timeout must be positive", ErrInvalidConfig)
	}
	if c.Google.RequestsPerMinute < 1 {
		return fmt.Errorf("%w: google requests per minute must be positive", ErrInvalidConfig)
	}
	if c.Mock.WordsPerMinute < 1 {
		return fmt.Errorf("%w: mock words per minute must be positive", ErrInvalidConfig)
	}

	return nil
}
