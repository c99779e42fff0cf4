package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
)

// pcmReader renders a streamer as interleaved signed 16-bit LE stereo.
// The output pulls from it on its own goroutine; mu is shared with the
// graph so live parameter changes never race a read.
type pcmReader struct {
	mu        *sync.Mutex
	streamer  beep.Streamer
	samples   [][2]float64
	halted    func() bool
	onDrained func()
	drained   bool
}

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drained || r.halted() {
		return 0, io.EOF
	}
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, nil
	}
	if cap(r.samples) < frames {
		r.samples = make([][2]float64, frames)
	}
	buf := r.samples[:frames]

	n, ok := r.streamer.Stream(buf)
	for i := 0; i < n; i++ {
		for c := 0; c < Channels; c++ {
			off := i*frameSize + c*BytesPerSample
			binary.LittleEndian.PutUint16(p[off:], uint16(toInt16(buf[i][c])))
		}
	}
	if !ok {
		r.drained = true
		if r.onDrained != nil {
			r.onDrained()
		}
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n * frameSize, nil
}

func toInt16(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(v * math.MaxInt16)
}
