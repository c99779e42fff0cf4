package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/speech"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"sk_123456789", "********6789"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSettings(t *testing.T) {
	values := settings.Values{
		settings.KeyCredential: "sk_secretkey",
		settings.KeySpeed:      "1.5",
	}
	got := formatSettings(values, false)
	want := "credential: ********tkey\nspeed: 1.5\n"
	if got != want {
		t.Errorf("formatSettings() = %q, want %q", got, want)
	}
	if got := formatSettings(values, true); !strings.Contains(got, "sk_secretkey") {
		t.Errorf("formatSettings(reveal) = %q", got)
	}
}

func TestFormatVoices(t *testing.T) {
	voices := []speech.Voice{
		{ID: "a1", Name: "Adam", Labels: map[string]string{"accent": "american", "gender": "male"}},
		{ID: "r1", Name: "Rachel"},
	}
	got := formatVoices(voices, "r1")
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("formatVoices() = %q", got)
	}
	if !strings.Contains(lines[0], "Adam (American) | Male") || !strings.Contains(lines[0], "a1") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "*") || !strings.Contains(lines[1], "Rachel") {
		t.Errorf("line 1 = %q, want current marker", lines[1])
	}
}

func TestFindVoiceError(t *testing.T) {
	_, err := findVoice(nil, "nobody")
	if !errors.Is(err, speech.ErrVoiceNotFound) {
		t.Errorf("findVoice() error = %v", err)
	}
}

func TestProgressLine(t *testing.T) {
	tests := []struct {
		p    queue.Progress
		want string
	}{
		{queue.Progress{Total: 3, Current: 0, Processed: 1, Status: queue.StatusPlaying}, "[1/3] playing"},
		{queue.Progress{Total: 3, Current: 3, Processed: 3, Status: queue.StatusIdle}, "[3/3] done"},
		{queue.Progress{Total: 2, Current: 1, Processed: 1, Status: queue.StatusProcessing}, "[2/2] processing"},
	}
	for _, tt := range tests {
		if got := progressLine(tt.p); !strings.HasPrefix(got, tt.want) {
			t.Errorf("progressLine(%+v) = %q, want prefix %q", tt.p, got, tt.want)
		}
	}
}

func TestSeedCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds empty store", func(t *testing.T) {
		t.Setenv(credentialEnv, "from-env")
		store := settings.NewMemoryStore(nil)
		if err := seedCredential(ctx, store); err != nil {
			t.Fatal(err)
		}
		s, _ := settings.Load(ctx, store)
		if s.Credential != "from-env" {
			t.Errorf("Credential = %q", s.Credential)
		}
	})

	t.Run("keeps stored credential", func(t *testing.T) {
		t.Setenv(credentialEnv, "from-env")
		store := settings.NewMemoryStore(settings.Values{settings.KeyCredential: "stored"})
		if err := seedCredential(ctx, store); err != nil {
			t.Fatal(err)
		}
		s, _ := settings.Load(ctx, store)
		if s.Credential != "stored" {
			t.Errorf("Credential = %q", s.Credential)
		}
	})
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "voicereader.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile() error = %v", err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "max_chunk_size: 300") {
		t.Error("default config not written")
	}

	configFile = filepath.Join(t.TempDir(), "voicereader.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("ensureConfigFile() accepted a .toml file")
	}
}
