package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrDecode is returned when audio bytes cannot be decoded.
var ErrDecode = errors.New("audio decode failed")

// Buffer is fully decoded audio retained in memory so it can be replayed.
type Buffer struct {
	samples *beep.Buffer
}

// NewBuffer drains s into a new Buffer.
func NewBuffer(format beep.Format, s beep.Streamer) *Buffer {
	b := beep.NewBuffer(format)
	b.Append(s)
	return &Buffer{samples: b}
}

// Decode decodes MP3 or WAV data into a Buffer.
func Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	rc := io.NopCloser(bytes.NewReader(data))
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	if isWAV(data) {
		streamer, format, err = wav.Decode(rc)
	} else {
		streamer, format, err = mp3.Decode(rc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer streamer.Close() //nolint:errcheck

	buf := NewBuffer(format, streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrDecode)
	}
	return buf, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Len returns the number of sample frames.
func (b *Buffer) Len() int {
	return b.samples.Len()
}

// Format returns the decoded sample format.
func (b *Buffer) Format() beep.Format {
	return b.samples.Format()
}

// Duration returns the playback length at normal speed.
func (b *Buffer) Duration() time.Duration {
	return b.Format().SampleRate.D(b.Len())
}

// Size returns the approximate memory held by the decoded samples.
func (b *Buffer) Size() int {
	return b.Len() * 2 * 8
}

func (b *Buffer) streamer() beep.StreamSeeker {
	return b.samples.Streamer(0, b.samples.Len())
}
