package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# log debug output to the log file
debug: false
# audio output: auto, device or mock
output: "auto"

# ElevenLabs API
api:
  base_url: "https://api.elevenlabs.io"
  model_id: "eleven_monolingual_v1"
  stability: 0.5
  similarity_boost: 0.75
  timeout: "30s"
  # 0 means unlimited
  requests_per_minute: 0

# input limits and chunking
reader:
  max_chars: 5000
  # text longer than this is read in chunks
  chunk_threshold: 500
  max_chunk_size: 300

# in-memory cache of synthesized audio, 0 disables it
cache:
  memory_mb: 32
  # "serve" drops audio older than this, 0 keeps it until evicted
  max_age: "1h"

# where the API key, voice, volume and speed are stored
settings:
  # file, sqlite or memory
  backend: "file"
  # path: "~/.config/voicereader/settings.yml"

# NATS bridge used by "serve" and "--remote"
bridge:
  url: "nats://127.0.0.1:4222"
  subject_prefix: "voicereader"
  embedded: false
  port: 4222
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the voicereader config file",
	Long: paragraph(fmt.Sprintf("\n%s the voicereader config file in $EDITOR. A commented default is written first when the file is missing. Settings such as the API key and voice live in the settings store; see %s.",
		keyword("Edit"), keyword("voicereader settings"))),
	Example: paragraph("voicereader config\nvoicereader config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}
		if err := editFile(configFile); err != nil {
			return err
		}
		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func editFile(name string) error {
	c, err := editor.Cmd("voicereader", name)
	if err != nil {
		return fmt.Errorf("unable to find an editor: %w", err)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor exited: %w", err)
	}
	return nil
}

// ensureConfigFile resolves configFile and writes defaultConfig there if
// nothing exists yet. An existing file is never touched.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.ConfigFileUsed()
	}
	if configFile == "" {
		configFile = filepath.Join(configDir(), "voicereader.yml")
	}

	switch ext := filepath.Ext(configFile); ext {
	case ".yml", ".yaml":
	default:
		return fmt.Errorf("%q is not a supported config file type, use .yml or .yaml", ext)
	}

	_, err := os.Stat(configFile)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	log.Debug("Wrote default configuration", "path", configFile)
	return nil
}
