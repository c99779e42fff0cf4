// Package main provides the entry point for the voicereader CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/bridge"
	"github.com/voicereader/voicereader/internal/reader"
	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/textsrc"
	"github.com/voicereader/voicereader/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	configDirs []string
	clipboard  bool
	voice      string
	headless   bool
	remote     bool
	output     string
	mouse      bool

	rootCmd = &cobra.Command{
		Use:   "voicereader [TEXT|FILE|-]",
		Short: "Read text aloud with ElevenLabs voices",
		Long: paragraph(
			fmt.Sprintf("\nRead any text aloud, %s, with a small transport overlay.", keyword("chunk by chunk")),
		),
		Example: paragraph("voicereader notes.md\npbpaste | voicereader\nvoicereader --clipboard --voice Rachel"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	mouse = viper.GetBool("mouse")
	output = viper.GetString("output")
	if _, err := audio.ParseOutputType(output); err != nil {
		return err
	}

	switch backend := viper.GetString("settings.backend"); backend {
	case settings.BackendFile, settings.BackendSQLite, settings.BackendMemory:
	default:
		return fmt.Errorf("unknown settings backend %q (use file, sqlite or memory)", backend)
	}

	if size := viper.GetInt("reader.max_chunk_size"); size < 1 {
		return fmt.Errorf("reader.max_chunk_size must be positive, got %d", size)
	}
	if threshold := viper.GetInt("reader.chunk_threshold"); threshold < 1 {
		return fmt.Errorf("reader.chunk_threshold must be positive, got %d", threshold)
	}

	// The overlay needs a terminal on stdout.
	if !headless && !remote && !cmd.HasParent() && !term.IsTerminal(int(os.Stdout.Fd())) {
		headless = true
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// resolveSource picks the text to read. Piped stdin wins, then the
// clipboard, then the arguments.
func resolveSource(args []string) (textsrc.Source, error) {
	if yes, err := stdinIsPipe(); err != nil {
		return textsrc.Source{}, err
	} else if yes && len(args) == 0 {
		return textsrc.FromReader(os.Stdin, "stdin")
	}
	if clipboard {
		return textsrc.FromClipboard()
	}
	switch len(args) {
	case 0:
		return textsrc.Source{}, errors.New("nothing to read: pass text, a file, - for stdin, or --clipboard")
	case 1:
		return textsrc.FromArg(args[0])
	default:
		return textsrc.FromArg(strings.Join(args, " "))
	}
}

func execute(cmd *cobra.Command, args []string) error {
	src, err := resolveSource(args)
	if err != nil {
		return err
	}
	log.Debug("Resolved text", "origin", src.Origin, "chars", len(src.Text))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if remote {
		return runRemote(ctx, cmd, src)
	}
	if voice != "" {
		if err := applyVoice(ctx, voice); err != nil {
			return err
		}
	}
	if headless {
		return runHeadless(ctx, cmd, src)
	}
	return runOverlay(ctx, src)
}

func runOverlay(ctx context.Context, src textsrc.Source) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.EnableMouse = mouse

	events, notify := ui.Events(64)
	a, err := newApp(ctx, reader.WithObserver(notify))
	if err != nil {
		return err
	}
	defer a.Close()

	// Reject long or empty input before the overlay takes the screen.
	chunks, err := a.reader.Plan(src.Text)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Println("Nothing to read.")
		return nil
	}

	p := ui.NewProgram(ctx, cfg, a.reader, src.Text, src.Origin, events)
	if err := a.watchSettings(ctx, func() { p.Send(ui.SettingsChangedMsg{}) }); err != nil {
		log.Warn("Live settings unavailable", "error", err)
	}

	final, err := p.Run()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	if uiErr := ui.Err(final); uiErr != nil {
		return uiErr
	}
	return nil
}

func runRemote(ctx context.Context, cmd *cobra.Command, src textsrc.Source) error {
	cfg, err := bridgeConfig()
	if err != nil {
		return err
	}
	client, err := bridge.Connect(ctx, cfg, "voicereader-trigger", log.Default())
	if err != nil {
		return err
	}
	defer client.Close()

	r := bridge.NewRemote(cfg, client)
	if err := r.Ping(ctx); err != nil {
		return fmt.Errorf("%w: start one with `voicereader serve`", err)
	}
	reply, err := r.Initiate(ctx, src.Text)
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	if reply.SessionID == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to read.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reading %s in %d chunk(s) %s\n", src.Origin, reply.Chunks, faint(reply.SessionID))
	return nil
}

// applyVoice resolves a voice name or id and stores it.
func applyVoice(ctx context.Context, query string) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	s, err := settings.Load(ctx, store)
	if err != nil {
		return err
	}
	client, err := newSpeechClient()
	if err != nil {
		return err
	}
	voices, err := client.ListVoices(ctx, s.Credential)
	if err != nil {
		return fmt.Errorf("unable to list voices: %w", err)
	}
	v, err := findVoice(voices, query)
	if err != nil {
		return err
	}
	log.Info("Using voice", "name", v.Name, "id", v.ID)
	return settings.Save(ctx, store, settings.Values{settings.KeyVoiceID: v.ID})
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	// A missing .env is fine.
	_ = godotenv.Load()

	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Bool("debug", false, "log debug output")
	rootCmd.PersistentFlags().String("settings-backend", "file", "settings backend: file, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&output, "output", "auto", "audio output: auto, device or mock")
	rootCmd.Flags().BoolVarP(&clipboard, "clipboard", "c", false, "read the clipboard")
	rootCmd.Flags().StringVarP(&voice, "voice", "v", "", "voice name or id to use and remember")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "print progress instead of showing the overlay")
	rootCmd.Flags().BoolVarP(&remote, "remote", "r", false, "send the text to a running `voicereader serve`")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "click progress segments to play them (uses the alternate screen)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("settings.backend", rootCmd.PersistentFlags().Lookup("settings-backend"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("debug", false)
	viper.SetDefault("output", "auto")
	viper.SetDefault("mouse", false)
	viper.SetDefault("api.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("api.model_id", "eleven_monolingual_v1")
	viper.SetDefault("api.stability", 0.5)
	viper.SetDefault("api.similarity_boost", 0.75)
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.requests_per_minute", 0)
	viper.SetDefault("reader.max_chars", reader.DefaultMaxChars)
	viper.SetDefault("reader.chunk_threshold", reader.DefaultChunkThreshold)
	viper.SetDefault("reader.max_chunk_size", 300)
	viper.SetDefault("cache.memory_mb", 32)
	viper.SetDefault("cache.max_age", time.Hour)
	viper.SetDefault("settings.backend", settings.BackendFile)
	viper.SetDefault("settings.path", "")
	viper.SetDefault("bridge.url", "nats://127.0.0.1:4222")
	viper.SetDefault("bridge.subject_prefix", bridge.DefaultSubjectPrefix)
	viper.SetDefault("bridge.embedded", false)
	viper.SetDefault("bridge.port", 4222)
	viper.SetDefault("bridge.connect_timeout", "2s")
	viper.SetDefault("bridge.request_timeout", "60s")

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, setupCmd, settingsCmd, serveCmd)
}

// configDir is where the config file and default settings live.
func configDir() string {
	if configFile != "" {
		return filepath.Dir(configFile)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	if len(configDirs) == 0 {
		return "."
	}
	return configDirs[0]
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicereader")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicereader")}, dirs...)
	}

	if c := os.Getenv("VOICEREADER_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	configDirs = dirs

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voicereader")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voicereader")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voicereader.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
