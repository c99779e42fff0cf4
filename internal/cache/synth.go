package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, credential string) ([]byte, error)
}

// CachingSynthesizer serves repeated requests from a Memory cache and
// forwards misses to the wrapped Synthesizer. Failures are never cached.
type CachingSynthesizer struct {
	next    Synthesizer
	cache   *Memory
	modelID string
	logger  *log.Logger
}

// NewSynthesizer wraps next. modelID is part of the key so that a
// configuration change does not replay audio from another model.
func NewSynthesizer(next Synthesizer, cache *Memory, modelID string, logger *log.Logger) *CachingSynthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &CachingSynthesizer{next: next, cache: cache, modelID: modelID, logger: logger}
}

// Synthesize returns cached audio for the same model, voice and text, or
// fetches and stores it.
func (s *CachingSynthesizer) Synthesize(ctx context.Context, text, voiceID, credential string) ([]byte, error) {
	key := Key(s.modelID, voiceID, text)
	if data, ok := s.cache.Get(key); ok {
		s.logger.Debug("Cache: hit", "voice", voiceID, "size", humanize.Bytes(uint64(len(data))))
		return data, nil
	}

	data, err := s.next.Synthesize(ctx, text, voiceID, credential)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(key, data); err != nil {
		s.logger.Debug("Cache: not stored", "error", err, "size", humanize.Bytes(uint64(len(data))))
	}
	return data, nil
}

// Stats returns the underlying cache counters.
func (s *CachingSynthesizer) Stats() Stats {
	return s.cache.Stats()
}

// Expire drops audio stored longer than maxAge ago, checking every
// interval, until ctx is done.
func (s *CachingSynthesizer) Expire(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.cache.Prune(maxAge); n > 0 {
				s.logger.Debug("Cache: expired", "entries", n, "size", humanize.Bytes(uint64(s.cache.Stats().Size)))
			}
		}
	}
}

// Key derives the cache key for one synthesis request.
func Key(modelID, voiceID, text string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(voiceID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
