package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public ElevenLabs API endpoint.
	DefaultBaseURL = "https://api.elevenlabs.io"
	// DefaultModelID is the synthesis model requested for every chunk.
	DefaultModelID = "eleven_monolingual_v1"
	// DefaultVoiceID is used when no voice has been chosen.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	defaultStability       = 0.5
	defaultSimilarityBoost = 0.75
	defaultTimeout         = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	ModelID           string        `mapstructure:"model_id"`
	Stability         float64       `mapstructure:"stability"`
	SimilarityBoost   float64       `mapstructure:"similarity_boost"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// DefaultConfig returns the settings the API is normally called with.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		ModelID:         DefaultModelID,
		Stability:       defaultStability,
		SimilarityBoost: defaultSimilarityBoost,
		Timeout:         defaultTimeout,
	}
}

// Client talks to the text-to-speech and voices endpoints.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client. Zero config fields fall back to defaults.
func NewClient(config Config, opts ...Option) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.ModelID == "" {
		config.ModelID = def.ModelID
	}
	if config.Stability == 0 {
		config.Stability = def.Stability
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = def.SimilarityBoost
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: log.Default(),
	}
	if config.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelID returns the model requests are made with.
func (c *Client) ModelID() string {
	return c.config.ModelID
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns MPEG audio for text spoken by voiceID.
func (c *Client) Synthesize(ctx context.Context, text, voiceID, credential string) ([]byte, error) {
	if err := ValidateCredential(credential); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.config.Stability,
			SimilarityBoost: c.config.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.config.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", credential)

	start := time.Now()
	data, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Speech: synthesized chunk",
		"voice", voiceID,
		"chars", len(text),
		"audio", humanize.Bytes(uint64(len(data))),
		"took", time.Since(start).Round(time.Millisecond))
	return data, nil
}

// ListVoices returns the voices available to credential, sorted by name.
func (c *Client) ListVoices(ctx context.Context, credential string) ([]Voice, error) {
	if err := ValidateCredential(credential); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", credential)

	data, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	SortVoices(resp.Voices)
	c.logger.Debug("Speech: listed voices", "count", len(resp.Voices))
	return resp.Voices, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}
