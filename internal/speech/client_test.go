package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestValidateCredential(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		expected   error
	}{
		{"valid", "sk-abc123", nil},
		{"spaces and symbols", "key with ~ and !", nil},
		{"empty", "", ErrMissingCredential},
		{"non-ascii", "sk-héllo", ErrInvalidCredential},
		{"control character", "sk-\tabc", ErrInvalidCredential},
		{"newline", "sk-abc\n", ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateCredential(tt.credential); !errors.Is(err, tt.expected) {
				t.Errorf("ValidateCredential(%q) = %v, want %v", tt.credential, err, tt.expected)
			}
		})
	}
}

func TestInvalidCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	if _, err := c.Synthesize(ctx, "Hello.", "voice", "sk-héllo"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Synthesize error = %v, want ErrInvalidCredential", err)
	}
	if _, err := c.ListVoices(ctx, "sk-héllo"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("ListVoices error = %v, want ErrInvalidCredential", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestSynthesize(t *testing.T) {
	audio := []byte("ID3fake-mpeg-data")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "sk-test" {
			t.Errorf("xi-api-key = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "audio/mpeg" {
			t.Errorf("Accept = %q", got)
		}

		var body synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.Text != "Hello there." {
			t.Errorf("text = %q", body.Text)
		}
		if body.ModelID != DefaultModelID {
			t.Errorf("model_id = %q", body.ModelID)
		}
		if body.VoiceSettings.Stability != 0.5 || body.VoiceSettings.SimilarityBoost != 0.75 {
			t.Errorf("voice_settings = %+v", body.VoiceSettings)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/"})
	got, err := c.Synthesize(context.Background(), "Hello there.", "voice-1", "sk-test")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("Synthesize() = %q, want %q", got, audio)
	}
}

func TestSynthesizeDefaultsVoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/"+DefaultVoiceID) {
			t.Errorf("path = %s, want default voice", r.URL.Path)
		}
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	if _, err := NewClient(Config{BaseURL: srv.URL}).Synthesize(context.Background(), "Hi.", "", "sk"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
}

func TestSynthesizeAPIErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Synthesize(context.Background(), "Hi.", "v", "sk")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if len(apiErr.Body) != maxErrorBody {
		t.Errorf("body length = %d, want %d", len(apiErr.Body), maxErrorBody)
	}
	if !strings.HasPrefix(apiErr.Error(), "API 401: ") {
		t.Errorf("Error() = %q", apiErr.Error())
	}
	if IsRetryable(err) {
		t.Error("401 should not be retryable")
	}
}

func TestNewClientDefaults(t *testing.T) {
	if got := NewClient(Config{}).ModelID(); got != DefaultModelID {
		t.Errorf("ModelID() = %q, want %q", got, DefaultModelID)
	}
	if got := NewClient(Config{ModelID: "eleven_turbo_v2"}).ModelID(); got != "eleven_turbo_v2" {
		t.Errorf("ModelID() = %q", got)
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := c.Synthesize(context.Background(), "  ", "v", "sk"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"voices":[
			{"voice_id":"2","name":"rachel","labels":{"accent":"american","gender":"female"}},
			{"voice_id":"1","name":"Adam","labels":{"accent":"american","gender":"male"}},
			{"voice_id":"3","name":"Bella"}
		]}`))
	}))
	defer srv.Close()

	voices, err := NewClient(Config{BaseURL: srv.URL}).ListVoices(context.Background(), "sk")
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	var names []string
	for _, v := range voices {
		names = append(names, v.Name)
	}
	if strings.Join(names, ",") != "Adam,Bella,rachel" {
		t.Errorf("voices not sorted by name: %v", names)
	}
	if got := voices[0].Label(); got != "Adam (American) | Male" {
		t.Errorf("Label() = %q", got)
	}
	if got := voices[1].Label(); got != "Bella" {
		t.Errorf("Label() = %q", got)
	}
}

func TestListVoicesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).ListVoices(context.Background(), "sk")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("502 should be retryable")
	}
}

func TestLabelConcurrent(t *testing.T) {
	v := Voice{Name: "Adam", Labels: map[string]string{"accent": "american", "gender": "male"}}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := v.Label(); got != "Adam (American) | Male" {
					t.Errorf("Label() = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestFindVoice(t *testing.T) {
	voices := []Voice{
		{ID: "a1", Name: "Adam"},
		{ID: "r1", Name: "Rachel"},
		{ID: "d1", Name: "Domi"},
	}

	tests := []struct {
		query string
		want  string
		err   bool
	}{
		{"r1", "r1", false},
		{"rachel", "r1", false},
		{"rchl", "r1", false},
		{"zzz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			v, err := FindVoice(voices, tt.query)
			if tt.err {
				if !errors.Is(err, ErrVoiceNotFound) {
					t.Errorf("FindVoice(%q) error = %v", tt.query, err)
				}
				return
			}
			if err != nil || v.ID != tt.want {
				t.Errorf("FindVoice(%q) = %v, %v; want %s", tt.query, v, err, tt.want)
			}
		})
	}
}
