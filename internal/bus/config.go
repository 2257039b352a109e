// Package bus exposes the narration controller on a NATS message bus.
package bus

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "readaloud"

// Config describes the bus connection.
type Config struct {
	URL            string        `yaml:"url"`
	Embedded       bool          `yaml:"embedded"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Prefix         string        `yaml:"subject_prefix"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig runs an embedded server on the standard NATS port.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		Embedded:       true,
		Host:           "127.0.0.1",
		Port:           nats.DefaultPort,
		Prefix:         DefaultPrefix,
		RequestTimeout: 2 * time.Second,
	}
}

// SetDefaults registers the bus defaults with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("bus.url", d.URL)
	v.SetDefault("bus.embedded", d.Embedded)
	v.SetDefault("bus.host", d.Host)
	v.SetDefault("bus.port", d.Port)
	v.SetDefault("bus.subject_prefix", d.Prefix)
	v.SetDefault("bus.request_timeout", d.RequestTimeout)
}

// LoadConfig reads the bus section of v.
func LoadConfig(v *viper.Viper) Config {
	cfg := DefaultConfig()
	if v.IsSet("bus.url") {
		cfg.URL = v.GetString("bus.url")
	}
	if v.IsSet("bus.embedded") {
		cfg.Embedded = v.GetBool("bus.embedded")
	}
	if v.IsSet("bus.host") {
		cfg.Host = v.GetString("bus.host")
	}
	if v.IsSet("bus.port") {
		cfg.Port = v.GetInt("bus.port")
	}
	if v.IsSet("bus.subject_prefix") {
		cfg.Prefix = v.GetString("bus.subject_prefix")
	}
	if v.IsSet("bus.request_timeout") {
		cfg.RequestTimeout = v.GetDuration("bus.request_timeout")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return cfg
}
