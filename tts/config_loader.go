package tts

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the narration configuration from the global
// Viper instance.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads the narration configuration from v. Keys that are not set
// keep their defaults.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("rate") {
		cfg.Rate = v.GetFloat64("rate")
	}
	if v.IsSet("voice") {
		cfg.Voice = v.GetString("voice")
	}

	if v.IsSet("settings.backend") {
		cfg.Settings.Backend = v.GetString("settings.backend")
	}
	if v.IsSet("settings.path") {
		cfg.Settings.Path = v.GetString("settings.path")
	}

	if v.IsSet("cache.enabled") {
		cfg.Cache.Enabled = v.GetBool("cache.enabled")
	}
	if v.IsSet("cache.dir") {
		cfg.Cache.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("cache.compression_level") {
		cfg.Cache.CompressionLevel = v.GetInt("cache.compression_level")
	}
	if v.IsSet("cache.max_size_mb") {
		cfg.Cache.MaxSizeMB = v.GetInt("cache.max_size_mb")
	}

	if v.IsSet("espeak.binary") {
		cfg.Espeak.Binary = v.GetString("espeak.binary")
	}
	if v.IsSet("espeak.words_per_minute") {
		cfg.Espeak.WordsPerMinute = v.GetInt("espeak.words_per_minute")
	}

	if v.IsSet("piper.binary") {
		cfg.Piper.Binary = v.GetString("piper.binary")
	}
	if v.IsSet("piper.model_dir") {
		cfg.Piper.ModelDir = v.GetString("piper.model_dir")
	}
	if v.IsSet("piper.model") {
		cfg.Piper.Model = v.GetString("piper.model")
	}
	if v.IsSet("piper.sample_rate") {
		cfg.Piper.SampleRate = v.GetInt("piper.sample_rate")
	}
	if v.IsSet("piper.timeout") {
		cfg.Piper.Timeout = v.GetDuration("piper.timeout")
	}

	if v.IsSet("google.language_code") {
		cfg.Google.LanguageCode = v.GetString("google.language_code")
	}
	if v.IsSet("google.requests_per_minute") {
		cfg.Google.RequestsPerMinute = v.GetInt("google.requests_per_minute")
	}
	if v.IsSet("google.timeout") {
		cfg.Google.Timeout = v.GetDuration("google.timeout")
	}

	if v.IsSet("mock.words_per_minute") {
		cfg.Mock.WordsPerMinute = v.GetInt("mock.words_per_minute")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults registers the narration defaults with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("engine", d.Engine)
	v.SetDefault("rate", d.Rate)
	v.SetDefault("settings.backend", d.Settings.Backend)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.max_size_mb", d.Cache.MaxSizeMB)
	v.SetDefault("espeak.words_per_minute", d.Espeak.WordsPerMinute)
	v.SetDefault("piper.binary", d.Piper.Binary)
	v.SetDefault("piper.model", d.Piper.Model)
	v.SetDefault("piper.sample_rate", d.Piper.SampleRate)
	v.SetDefault("piper.timeout", d.Piper.Timeout)
	v.SetDefault("google.language_code", d.Google.LanguageCode)
	v.SetDefault("google.requests_per_minute", d.Google.RequestsPerMinute)
	v.SetDefault("google.timeout", d.Google.Timeout)
	v.SetDefault("mock.words_per_minute", d.Mock.WordsPerMinute)
}
