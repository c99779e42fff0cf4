package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/bridge"
	"github.com/voicereader/voicereader/internal/cache"
	"github.com/voicereader/voicereader/internal/reader"
	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/speech"
)

// credentialEnv seeds the stored credential when none has been saved.
const credentialEnv = "ELEVENLABS_API_KEY"

// app is the wired reading core shared by the commands.
type app struct {
	store  settings.Store
	speech *speech.Client
	cache  *cache.CachingSynthesizer
	graph  *audio.Controller
	reader *reader.Reader
}

func speechConfig() (speech.Config, error) {
	cfg := speech.DefaultConfig()
	if err := viper.UnmarshalKey("api", &cfg); err != nil {
		return cfg, fmt.Errorf("invalid api configuration: %w", err)
	}
	return cfg, nil
}

func readerConfig() (reader.Config, error) {
	cfg := reader.DefaultConfig()
	if err := viper.UnmarshalKey("reader", &cfg); err != nil {
		return cfg, fmt.Errorf("invalid reader configuration: %w", err)
	}
	return cfg, nil
}

func bridgeConfig() (bridge.Config, error) {
	cfg := bridge.DefaultConfig()
	if err := viper.UnmarshalKey("bridge", &cfg); err != nil {
		return cfg, fmt.Errorf("invalid bridge configuration: %w", err)
	}
	return cfg, nil
}

func newSpeechClient() (*speech.Client, error) {
	cfg, err := speechConfig()
	if err != nil {
		return nil, err
	}
	return speech.NewClient(cfg, speech.WithLogger(log.Default())), nil
}

// openStore opens the configured settings backend and seeds the
// credential from the environment.
func openStore(ctx context.Context) (settings.Store, error) {
	path := viper.GetString("settings.path")
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("unable to expand settings path: %w", err)
		}
		path = expanded
	}
	store, err := settings.Open(viper.GetString("settings.backend"), path, configDir())
	if err != nil {
		return nil, err
	}
	if err := seedCredential(ctx, store); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func seedCredential(ctx context.Context, store settings.Store) error {
	key := os.Getenv(credentialEnv)
	if key == "" {
		return nil
	}
	values, err := store.Get(ctx, settings.KeyCredential)
	if err != nil {
		return err
	}
	if values[settings.KeyCredential] != "" {
		return nil
	}
	log.Debug("Seeding credential from environment", "variable", credentialEnv)
	return settings.Save(ctx, store, settings.Values{settings.KeyCredential: key})
}

func newApp(ctx context.Context, opts ...reader.Option) (*app, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	client, err := newSpeechClient()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	rcfg, err := readerConfig()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	outType, err := audio.ParseOutputType(output)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	out, err := audio.NewOutput(outType)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{store: store, speech: client}
	var synth reader.Synthesizer = client
	if mb := viper.GetInt64("cache.memory_mb"); mb > 0 {
		a.cache = cache.NewSynthesizer(client, cache.NewMemory(mb<<20), client.ModelID(), log.Default())
		synth = a.cache
	}

	a.graph = audio.NewController(out, audio.WithLogger(log.Default()))
	opts = append([]reader.Option{reader.WithLogger(log.Default())}, opts...)
	a.reader = reader.New(rcfg, synth, store, a.graph, opts...)
	return a, nil
}

// expireCache drops cached audio older than cache.max_age until ctx is
// done. Long-running commands use it; one-shot reads exit first.
func (a *app) expireCache(ctx context.Context) {
	maxAge := viper.GetDuration("cache.max_age")
	if a.cache == nil || maxAge <= 0 {
		return
	}
	a.cache.Expire(ctx, min(maxAge, time.Minute), maxAge)
}

// watchSettings applies external edits of the settings file live. Other
// backends have nothing to watch.
func (a *app) watchSettings(ctx context.Context, onChange func()) error {
	fs, ok := a.store.(*settings.FileStore)
	if !ok {
		return nil
	}
	return fs.Watch(ctx, func(values settings.Values) {
		a.reader.ApplySettings(values)
		if onChange != nil {
			onChange()
		}
	})
}

func (a *app) Close() {
	if a.cache != nil {
		s := a.cache.Stats()
		log.Debug("Audio cache", "hits", s.Hits, "misses", s.Misses, "items", s.Items)
	}
	a.reader.Close()
	a.graph.StopActive()
	_ = a.store.Close()
}
