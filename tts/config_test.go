package tts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"unknown engine", func(c *Config) { c.Engine = "sapi" }, ErrUnknownEngine},
		{"rate too low", func(c *Config) { c.Rate = 0.05 }, ErrInvalidRate},
		{"rate too high", func(c *Config) { c.Rate = 11 }, ErrInvalidRate},
		{"settings backend", func(c *Config) { c.Settings.Backend = "redis" }, ErrInvalidConfig},
		{"compression level", func(c *Config) { c.Cache.CompressionLevel = 23 }, ErrInvalidConfig},
		{"cache size", func(c *Config) { c.Cache.MaxSizeMB = 0 }, ErrInvalidConfig},
		{"espeak speed", func(c *Config) { c.Espeak.WordsPerMinute = 10 }, ErrInvalidConfig},
		{"piper sample rate", func(c *Config) { c.Piper.SampleRate = 0 }, ErrInvalidConfig},
		{"piper timeout", func(c *Config) { c.Piper.Timeout = 0 }, ErrInvalidConfig},
		{"google quota", func(c *Config) { c.Google.RequestsPerMinute = 0 }, ErrInvalidConfig},
		{"mock speed", func(c *Config) { c.Mock.WordsPerMinute = 0 }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	yaml := `
engine: piper
rate: 1.5
voice: en_GB-alan-low
settings:
  backend: memory
cache:
  enabled: false
  max_size_mb: 64
piper:
  model: en_GB-alan-low
  timeout: 5s
google:
  language_code: de-DE
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine != EnginePiper {
		t.Errorf("Expected engine piper, got %q", cfg.Engine)
	}
	if cfg.Rate != 1.5 {
		t.Errorf("Expected rate 1.5, got %v", cfg.Rate)
	}
	if cfg.Voice != "en_GB-alan-low" {
		t.Errorf("Expected voice en_GB-alan-low, got %q", cfg.Voice)
	}
	if cfg.Settings.Backend != SettingsMemory {
		t.Errorf("Expected memory settings, got %q", cfg.Settings.Backend)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache to be disabled")
	}
	if cfg.Cache.MaxSizeMB != 64 {
		t.Errorf("Expected cache size 64, got %d", cfg.Cache.MaxSizeMB)
	}
	if cfg.Piper.Timeout != 5*time.Second {
		t.Errorf("Expected piper timeout 5s, got %v", cfg.Piper.Timeout)
	}
	if cfg.Piper.SampleRate != 22050 {
		t.Errorf("Expected default sample rate to be kept, got %d", cfg.Piper.SampleRate)
	}
	if cfg.Google.LanguageCode != "de-DE" {
		t.Errorf("Expected language de-DE, got %q", cfg.Google.LanguageCode)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set("engine", "festival")

	if _, err := LoadConfig(v); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}
