package ui

// Config contains TUI-specific configuration.
type Config struct {
	HomeDir string `env:"HOME"`

	// Width caps the overlay width in cells.
	Width int `env:"VOICEREADER_WIDTH" envDefault:"72"`
	// AltScreen runs the overlay in the alternate screen buffer.
	AltScreen bool `env:"VOICEREADER_ALT_SCREEN" envDefault:"false"`
	// EnableMouse lets clicks on the progress bar select chunks.
	EnableMouse bool
}
