// Package reader is the reading core: it turns an initiate request into a
// reading session, owns the session's lifetime, and exposes transport,
// volume, speed and status to the user interfaces.
package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/chunk"
	"github.com/voicereader/voicereader/internal/control"
	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/speech"
)

const (
	// DefaultMaxChars is the longest text accepted.
	DefaultMaxChars = 5000
	// DefaultChunkThreshold is the length above which text is chunked.
	DefaultChunkThreshold = 500
)

// Config bounds the input.
type Config struct {
	MaxChars       int `mapstructure:"max_chars"`
	ChunkThreshold int `mapstructure:"chunk_threshold"`
	MaxChunkSize   int `mapstructure:"max_chunk_size"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxChars:       DefaultMaxChars,
		ChunkThreshold: DefaultChunkThreshold,
		MaxChunkSize:   chunk.DefaultMaxSize,
	}
}

// Synthesizer turns text into encoded audio. *speech.Client satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, credential string) ([]byte, error)
}

// Event is sent to the observer after every session change.
type Event struct {
	SessionID uuid.UUID
	View      control.View
}

// Status is the coarse reader state shown by status queries.
type Status struct {
	Playing   bool
	SessionID uuid.UUID
	Progress  queue.Progress
}

// Label renders the status the way a status line shows it.
func (s Status) Label() string {
	if s.Playing {
		return "Playing"
	}
	return "Ready"
}

// Reader owns at most one Session at a time.
type Reader struct {
	config   Config
	speech   Synthesizer
	store    settings.Store
	graph    *audio.Controller
	logger   *log.Logger
	observer func(Event)

	// emitMu orders observer calls so the last event holds the latest view.
	emitMu sync.Mutex

	mu      sync.Mutex
	session *Session
}

// Option customizes a Reader.
type Option func(*Reader)

// WithObserver registers fn for session events. fn may run on a
// background goroutine or on the goroutine that pressed the button, one
// call at a time, and must not block.
func WithObserver(fn func(Event)) Option {
	return func(r *Reader) { r.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// New creates a Reader.
func New(config Config, synth Synthesizer, store settings.Store, graph *audio.Controller, opts ...Option) *Reader {
	def := DefaultConfig()
	if config.MaxChars <= 0 {
		config.MaxChars = def.MaxChars
	}
	if config.ChunkThreshold <= 0 {
		config.ChunkThreshold = def.ChunkThreshold
	}
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = def.MaxChunkSize
	}
	r := &Reader{
		config: config,
		speech: synth,
		store:  store,
		graph:  graph,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan validates text and splits it the way Initiate would. It returns no
// chunks when there is nothing to read.
func (r *Reader) Plan(text string) ([]chunk.Chunk, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n > r.config.MaxChars {
		return nil, &InputError{Length: n, Limit: r.config.MaxChars}
	}
	if len(chunk.Sentences(text)) == 0 {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > r.config.ChunkThreshold {
		return chunk.Split(text, r.config.MaxChunkSize), nil
	}
	return []chunk.Chunk{{Index: 0, Text: text}}, nil
}

// Initiate tears down the current session and starts reading text. It
// returns once the first chunk is playing. A nil session with a nil error
// means there was nothing to read. When the first chunk fails the session
// is still returned, in the error state, so it can be retried.
func (r *Reader) Initiate(ctx context.Context, text string) (*Session, error) {
	chunks, err := r.Plan(text)
	if err != nil {
		r.logger.Warn("Reader: input rejected", "error", err)
		return nil, err
	}
	if len(chunks) == 0 {
		r.logger.Info("Reader: nothing to read")
		return nil, nil
	}

	s, err := settings.Load(ctx, r.store)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := speech.ValidateCredential(s.Credential); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.session != nil {
		r.session.close()
		r.session = nil
	}
	r.graph.SetVolume(s.Volume)
	r.graph.SetSpeed(s.Speed)

	sess := &Session{
		ID:       uuid.New(),
		Text:     strings.TrimSpace(text),
		Chunks:   chunks,
		Started:  time.Now(),
		Settings: s,
	}
	sess.queue = queue.New(chunks, r.fetcher(s), r.graph,
		queue.WithLogger(r.logger),
		queue.WithObserver(func(p queue.Progress) {
			// A button change has already been emitted by the reconciler.
			if !sess.control.Sync(p) {
				r.emit(sess)
			}
		}),
	)
	sess.control = control.New(sess.queue,
		control.WithLogger(r.logger),
		control.OnChange(func(control.View) { r.emit(sess) }),
	)
	r.session = sess
	r.mu.Unlock()

	r.logger.Info("Reader: session started",
		"session", sess.ID,
		"chars", utf8.RuneCountInString(sess.Text),
		"chunks", len(chunks),
		"voice", s.VoiceID)

	if err := sess.control.Start(ctx); err != nil {
		return sess, err
	}
	return sess, nil
}

func (r *Reader) fetcher(s settings.Settings) queue.FetchFunc {
	return func(ctx context.Context, c chunk.Chunk) (*audio.Buffer, error) {
		data, err := r.speech.Synthesize(ctx, c.Text, s.VoiceID, s.Credential)
		if err != nil {
			return nil, err
		}
		return audio.Decode(data)
	}
}

func (r *Reader) emit(sess *Session) {
	if r.observer == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.observer(Event{SessionID: sess.ID, View: sess.View()})
}

// Session returns the current session, or nil.
func (r *Reader) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Reader) current() (*Session, error) {
	if s := r.Session(); s != nil {
		return s, nil
	}
	return nil, ErrNoSession
}

// Press acts on the current session's transport button.
func (r *Reader) Press(ctx context.Context) error {
	s, err := r.current()
	if err != nil {
		return err
	}
	return s.Press(ctx)
}

// Select plays chunk index of the current session if it is ready.
func (r *Reader) Select(index int) bool {
	s, err := r.current()
	if err != nil {
		return false
	}
	return s.Select(index)
}

// Stop halts the current session, keeping its audio.
func (r *Reader) Stop() {
	if s := r.Session(); s != nil {
		s.Stop()
	}
}

// View returns the current session's transport view. ok is false when
// there is no session.
func (r *Reader) View() (view control.View, ok bool) {
	s := r.Session()
	if s == nil {
		return control.View{}, false
	}
	return s.View(), true
}

// ReadyMask reports which chunks of the current session have audio.
func (r *Reader) ReadyMask() []bool {
	s := r.Session()
	if s == nil {
		return nil
	}
	return s.ReadyMask()
}

// ChunkText returns the text of chunk index of the current session.
func (r *Reader) ChunkText(index int) (string, bool) {
	s := r.Session()
	if s == nil {
		return "", false
	}
	return s.ChunkText(index)
}

// SetVolume applies volume now and stores it for later sessions.
func (r *Reader) SetVolume(ctx context.Context, volume float64) error {
	volume = audio.ClampVolume(volume)
	r.graph.SetVolume(volume)
	return r.store.Set(ctx, settings.Values{settings.KeyVolume: strconv.FormatFloat(volume, 'f', -1, 64)})
}

// SetSpeed applies speed now and stores it for later sessions.
func (r *Reader) SetSpeed(ctx context.Context, speed float64) error {
	speed = audio.ClampSpeed(speed)
	r.graph.SetSpeed(speed)
	return r.store.Set(ctx, settings.Values{settings.KeySpeed: strconv.FormatFloat(speed, 'f', -1, 64)})
}

// Volume returns the current volume.
func (r *Reader) Volume() float64 {
	return r.graph.Volume()
}

// Speed returns the current speed.
func (r *Reader) Speed() float64 {
	return r.graph.Speed()
}

// ApplySettings applies externally changed volume and speed without
// writing them back.
func (r *Reader) ApplySettings(values settings.Values) {
	if v, ok := values[settings.KeyVolume]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.graph.SetVolume(f)
		}
	}
	if v, ok := values[settings.KeySpeed]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			r.graph.SetSpeed(f)
		}
	}
}

// Status reports whether anything is playing.
func (r *Reader) Status() Status {
	s := r.Session()
	if s == nil {
		return Status{}
	}
	p := s.Progress()
	return Status{
		Playing:   p.Status.Active(),
		SessionID: s.ID,
		Progress:  p,
	}
}

// Close tears down the current session.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.close()
		r.session = nil
	}
}
