package speech

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Voice is one entry of the voices listing.
type Voice struct {
	ID         string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
}

// Label renders the voice as "Name (Accent) | Gender".
func (v Voice) Label() string {
	titleCase := cases.Title(language.English)
	var b strings.Builder
	b.WriteString(v.Name)
	if accent := v.Labels["accent"]; accent != "" {
		fmt.Fprintf(&b, " (%s)", titleCase.String(accent))
	}
	if gender := v.Labels["gender"]; gender != "" {
		fmt.Fprintf(&b, " | %s", titleCase.String(gender))
	}
	return b.String()
}

// SortVoices orders voices by name, case-insensitively.
func SortVoices(voices []Voice) {
	sort.SliceStable(voices, func(i, j int) bool {
		return strings.ToLower(voices[i].Name) < strings.ToLower(voices[j].Name)
	})
}

type voiceNames []Voice

func (v voiceNames) String(i int) string { return v[i].Name }
func (v voiceNames) Len() int            { return len(v) }

// FindVoice resolves query to a voice. An exact ID or case-insensitive
// name match wins; otherwise the best fuzzy name match is returned.
func FindVoice(voices []Voice, query string) (Voice, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Voice{}, ErrVoiceNotFound
	}
	for _, v := range voices {
		if v.ID == query || strings.EqualFold(v.Name, query) {
			return v, nil
		}
	}

	matches := fuzzy.FindFrom(query, voiceNames(voices))
	if len(matches) == 0 {
		return Voice{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, query)
	}
	return voices[matches[0].Index], nil
}
