package audio

import (
	"errors"
	"io"
	"sync"

	"github.com/gopxl/beep/v2"
)

// MockOutput plays nothing. With autoFinish set, each player drains its
// reader in the background as soon as it starts; otherwise the test drives
// completion through Finish.
type MockOutput struct {
	mu         sync.Mutex
	autoFinish bool
	players    []*MockPlayer
	failNext   error
}

// NewMockOutput creates a mock output.
func NewMockOutput(autoFinish bool) *MockOutput {
	return &MockOutput{autoFinish: autoFinish}
}

// FailNextPlayer makes the next NewPlayer call return err.
func (m *MockOutput) FailNextPlayer(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockOutput) NewPlayer(r io.Reader) (Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}
	p := &MockPlayer{reader: r, auto: m.autoFinish, done: make(chan struct{})}
	m.players = append(m.players, p)
	return p, nil
}

func (m *MockOutput) SampleRate() beep.SampleRate {
	return SampleRate
}

// Players returns every player created so far.
func (m *MockOutput) Players() []*MockPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockPlayer(nil), m.players...)
}

// Last returns the most recently created player, or nil.
func (m *MockOutput) Last() *MockPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.players) == 0 {
		return nil
	}
	return m.players[len(m.players)-1]
}

// MockPlayer records what the controller did with it.
type MockPlayer struct {
	mu      sync.Mutex
	reader  io.Reader
	auto    bool
	playing bool
	closed  bool
	bytes   int
	done    chan struct{}
	once    sync.Once
}

func (p *MockPlayer) Play() {
	p.mu.Lock()
	if p.playing || p.closed {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.mu.Unlock()
	if p.auto {
		go func() { _ = p.Finish() }()
	}
}

// Finish reads the stream to its end as if it had been played out.
func (p *MockPlayer) Finish() error {
	buf := make([]byte, 4096)
	for {
		n, err := p.reader.Read(buf)
		p.mu.Lock()
		p.bytes += n
		closed := p.closed
		p.mu.Unlock()
		if errors.Is(err, io.EOF) || closed {
			break
		}
		if err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	p.once.Do(func() { close(p.done) })
	return nil
}

// Done is closed once Finish has drained the stream.
func (p *MockPlayer) Done() <-chan struct{} {
	return p.done
}

func (p *MockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.playing = false
	return nil
}

// Closed reports whether the controller released the player.
func (p *MockPlayer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// BytesRead returns how much PCM the player consumed.
func (p *MockPlayer) BytesRead() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}
