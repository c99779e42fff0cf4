package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

func testFormat() beep.Format {
	return beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
}

// testBuffer returns n frames of a constant signal.
func testBuffer(n int) *Buffer {
	left := n
	s := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left == 0 {
			return 0, false
		}
		count := min(len(samples), left)
		for i := 0; i < count; i++ {
			samples[i] = [2]float64{0.5, -0.5}
		}
		left -= count
		return count, true
	})
	return NewBuffer(testFormat(), s)
}

// wavBytes builds a 16-bit mono PCM WAV file with n frames.
func wavBytes(n int, rate int) []byte {
	var b bytes.Buffer
	dataLen := n * 2
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	for i := 0; i < n; i++ {
		_ = binary.Write(&b, binary.LittleEndian, int16(i%100*100))
	}
	return b.Bytes()
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestDecodeWAV(t *testing.T) {
	buf, err := Decode(wavBytes(22050, 22050))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if buf.Len() != 22050 {
		t.Errorf("Len() = %d, want 22050", buf.Len())
	}
	if buf.Format().SampleRate != 22050 {
		t.Errorf("SampleRate = %d", buf.Format().SampleRate)
	}
	if d := buf.Duration(); d != time.Second {
		t.Errorf("Duration() = %v, want 1s", d)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not audio at all, not even close")},
		{"truncated wav header", []byte("RIFF\x00\x00\x00\x00WAVE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrDecode) {
				t.Errorf("Decode() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestPlayNaturalEndFiresOnce(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	var (
		mu    sync.Mutex
		calls int
	)
	ended := make(chan struct{})
	h, err := c.Play(testBuffer(1024), func() {
		mu.Lock()
		calls++
		mu.Unlock()
		close(ended)
	})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if h == 0 {
		t.Fatal("Play() returned zero handle")
	}
	if active, ok := c.Active(); !ok || active != h {
		t.Errorf("Active() = %v, %v; want %v", active, ok, h)
	}

	if err := out.Last().Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	waitFor(t, ended, "natural end")

	// A second drain must not fire again.
	_ = out.Last().Finish()
	time.Sleep(3 * endPollInterval)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("onEnded called %d times, want 1", calls)
	}
	if _, ok := c.Active(); ok {
		t.Error("graph still active after natural end")
	}
	if s := c.Stats(); s.Live() != 0 || s.Created != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if !out.Last().Closed() {
		t.Error("player not closed after natural end")
	}
}

func TestStopDoesNotFireEnded(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	ended := make(chan struct{}, 1)
	h, err := c.Play(testBuffer(1024), func() { ended <- struct{}{} })
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	c.Stop(h)
	c.Stop(h)
	c.StopActive()

	_ = out.Last().Finish()
	select {
	case <-ended:
		t.Fatal("onEnded fired after Stop")
	case <-time.After(5 * endPollInterval):
	}

	s := c.Stats()
	if s.Created != 1 || s.Destroyed != 1 {
		t.Errorf("Stats() = %+v, want 1 created and 1 destroyed", s)
	}
}

func TestPlayReplacesActiveGraph(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	first, _ := c.Play(testBuffer(512), nil)
	second, err := c.Play(testBuffer(512), nil)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if first == second {
		t.Fatal("handles must differ between graphs")
	}
	players := out.Players()
	if !players[0].Closed() {
		t.Error("previous player not released before the next graph")
	}
	if players[1].Closed() {
		t.Error("new player closed")
	}

	// Stopping the stale handle leaves the new graph alone.
	c.Stop(first)
	if h, ok := c.Active(); !ok || h != second {
		t.Errorf("Active() = %v, %v; want %v", h, ok, second)
	}
}

func TestAtMostOneGraphAlive(t *testing.T) {
	out := NewMockOutput(true)
	c := NewController(out)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := c.Play(testBuffer(256), nil)
			if err == nil && i%3 == 0 {
				c.Stop(h)
			}
			if live := c.Stats().Live(); live < 0 || live > 1 {
				t.Errorf("live graphs = %d", live)
			}
		}()
	}
	wg.Wait()

	if live := c.Stats().Live(); live < 0 || live > 1 {
		t.Errorf("live graphs = %d", live)
	}
}

func TestSettingsPersistAcrossGraphs(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	c.SetVolume(0.25)
	c.SetSpeed(3)
	if c.Speed() != MaxSpeed {
		t.Errorf("Speed() = %v, want clamp to %v", c.Speed(), MaxSpeed)
	}

	if _, err := c.Play(testBuffer(256), nil); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	c.mu.Lock()
	g := c.active
	c.mu.Unlock()
	if g.gain.Volume != volumeToPower(0.25) {
		t.Errorf("gain = %v, want %v", g.gain.Volume, volumeToPower(0.25))
	}
	if g.rate.Ratio() != MaxSpeed {
		t.Errorf("ratio = %v, want %v", g.rate.Ratio(), MaxSpeed)
	}

	c.SetVolume(0)
	c.SetSpeed(0.5)
	if !g.gain.Silent {
		t.Error("zero volume should silence the active graph")
	}
	if g.rate.Ratio() != 0.5 {
		t.Errorf("live ratio = %v, want 0.5", g.rate.Ratio())
	}
}

func TestPlaySpeedShortensOutput(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	_, _ = c.Play(testBuffer(4096), nil)
	_ = out.Last().Finish()
	normal := out.Last().BytesRead()

	c.SetSpeed(2)
	_, _ = c.Play(testBuffer(4096), nil)
	_ = out.Last().Finish()
	fast := out.Last().BytesRead()

	if normal < 4000*frameSize || normal > 4200*frameSize {
		t.Errorf("normal speed produced %d bytes, want about %d", normal, 4096*frameSize)
	}
	if fast >= normal*3/4 {
		t.Errorf("double speed produced %d bytes, normal %d", fast, normal)
	}
}

func TestPlayErrors(t *testing.T) {
	out := NewMockOutput(false)
	c := NewController(out)

	if _, err := c.Play(nil, nil); !errors.Is(err, ErrNoBuffer) {
		t.Errorf("Play(nil) error = %v, want ErrNoBuffer", err)
	}

	boom := errors.New("device gone")
	out.FailNextPlayer(boom)
	if _, err := c.Play(testBuffer(16), nil); !errors.Is(err, boom) {
		t.Errorf("Play() error = %v, want %v", err, boom)
	}
	if s := c.Stats(); s.Live() != 0 {
		t.Errorf("failed Play left %d live graphs", s.Live())
	}
}

func TestParseOutputType(t *testing.T) {
	tests := []struct {
		in   string
		want OutputType
		err  bool
	}{
		{"", OutputAuto, false},
		{"auto", OutputAuto, false},
		{"device", OutputDevice, false},
		{"mock", OutputMock, false},
		{"speaker", OutputAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseOutputType(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseOutputType(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.err && tt.in != "" && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
