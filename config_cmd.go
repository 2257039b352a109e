package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine: espeak, piper, google or mock
engine: "espeak"
# speaking rate, 0.1 to 10; used until a rate is saved
rate: 1.0
# voice id; used until a voice is saved
# voice: "en-us"
# read the clipboard selection before the document
selection: false
# mouse support in the reader
mouse: false

settings:
  # sqlite or memory
  backend: "sqlite"
  # path: "~/.local/share/readaloud/settings.db"

cache:
  enabled: true
  # dir: "~/.cache/readaloud/audio"
  compression_level: 3
  max_size_mb: 256

espeak:
  # binary: "espeak-ng"
  words_per_minute: 175

piper:
  binary: "piper"
  # model_dir: "~/.local/share/piper"
  model: "en_US-lessac-medium"
  sample_rate: 22050
  timeout: "30s"

google:
  language_code: "en-US"
  requests_per_minute: 60
  timeout: "10s"

mock:
  words_per_minute: 180

# message bus used by "readaloud serve"
bus:
  url: "nats://127.0.0.1:4222"
  embedded: true
  host: "127.0.0.1"
  port: 4222
  subject_prefix: "readaloud"
  request_timeout: "2s"

# prometheus metrics address for "readaloud serve", empty to disable
metrics:
  listen: ""

# global shortcut for "readaloud serve", empty to disable
hotkey: "ctrl+shift+space"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the readaloud config file",
	Long:    paragraph(fmt.Sprintf("\n%s the readaloud config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("readaloud config\nreadaloud config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("readaloud", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
