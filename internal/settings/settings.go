// Package settings persists the reader's user settings as flat key/value
// pairs: the API credential, the chosen voice, volume and speed.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/speech"
)

// Recognized keys.
const (
	KeyCredential = "credential"
	KeyVoiceID    = "voiceId"
	KeyVolume     = "volume"
	KeySpeed      = "speed"
)

// Keys lists every recognized key.
var Keys = []string{KeyCredential, KeyVoiceID, KeyVolume, KeySpeed}

// ErrUnknownKey is returned for keys outside Keys.
var ErrUnknownKey = errors.New("unknown settings key")

// Values is a partial set of settings. Absent keys are unset.
type Values map[string]string

// Store reads and writes settings.
type Store interface {
	// Get returns the stored values for keys, or all values when no keys
	// are given. Unset keys are absent from the result.
	Get(ctx context.Context, keys ...string) (Values, error)
	// Set stores every key in values, leaving other keys untouched.
	Set(ctx context.Context, values Values) error
	Close() error
}

// Settings is the typed view of a complete settings object.
type Settings struct {
	Credential string
	VoiceID    string
	Volume     float64
	Speed      float64
}

// Defaults returns the settings used for unset keys.
func Defaults() Settings {
	return Settings{
		VoiceID: speech.DefaultVoiceID,
		Volume:  audio.DefaultVolume,
		Speed:   audio.DefaultSpeed,
	}
}

// ValidateKey reports whether key is recognized.
func ValidateKey(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (known keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
}

// Validate checks keys and numeric values and returns a normalized copy
// with volume and speed clamped to range.
func (v Values) Validate() (Values, error) {
	out := make(Values, len(v))
	for key, value := range v {
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
		switch key {
		case KeyVolume, KeySpeed:
			f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
			}
			if key == KeyVolume {
				f = audio.ClampVolume(f)
			} else {
				f = audio.ClampSpeed(f)
			}
			value = formatFloat(f)
		case KeyCredential:
			if value != "" {
				if err := speech.ValidateCredential(value); err != nil {
					return nil, err
				}
			}
		}
		out[key] = value
	}
	return out, nil
}

// SortedKeys returns the keys of v in order.
func (v Values) SortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads every key from store and fills in defaults.
func Load(ctx context.Context, store Store) (Settings, error) {
	values, err := store.Get(ctx, Keys...)
	if err != nil {
		return Settings{}, err
	}
	return FromValues(values), nil
}

// FromValues converts values to Settings, using defaults for unset or
// unparseable entries.
func FromValues(values Values) Settings {
	s := Defaults()
	if v := values[KeyCredential]; v != "" {
		s.Credential = v
	}
	if v := values[KeyVoiceID]; v != "" {
		s.VoiceID = v
	}
	if f, err := strconv.ParseFloat(values[KeyVolume], 64); err == nil {
		s.Volume = audio.ClampVolume(f)
	}
	if f, err := strconv.ParseFloat(values[KeySpeed], 64); err == nil {
		s.Speed = audio.ClampSpeed(f)
	}
	return s
}

// Values converts s to store values, omitting an empty credential.
func (s Settings) Values() Values {
	v := Values{
		KeyVoiceID: s.VoiceID,
		KeyVolume:  formatFloat(s.Volume),
		KeySpeed:   formatFloat(s.Speed),
	}
	if s.Credential != "" {
		v[KeyCredential] = s.Credential
	}
	return v
}

// Save validates and writes values to store.
func Save(ctx context.Context, store Store, values Values) error {
	normalized, err := values.Validate()
	if err != nil {
		return err
	}
	return store.Set(ctx, normalized)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// filter returns the subset of all named by keys, or all when keys is empty.
func filter(all Values, keys []string) Values {
	out := make(Values)
	if len(keys) == 0 {
		for k, v := range all {
			out[k] = v
		}
		return out
	}
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}
