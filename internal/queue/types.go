package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/chunk"
)

var (
	// ErrEmpty is returned when a queue has no chunks to play.
	ErrEmpty = errors.New("queue has no chunks")
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("queue is closed")
)

// Status is the queue's coarse playback state.
type Status int

const (
	// StatusIdle means nothing is playing or waiting to play.
	StatusIdle Status = iota
	// StatusProcessing means playback is waiting on a fetch.
	StatusProcessing
	// StatusPlaying means a chunk is audible.
	StatusPlaying
	// StatusError means a fetch or decode failed and the pipeline halted.
	StatusError
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProcessing:
		return "processing"
	case StatusPlaying:
		return "playing"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether something is playing or about to play.
func (s Status) Active() bool {
	return s == StatusPlaying || s == StatusProcessing
}

// Progress is the state reported to observers after every change.
type Progress struct {
	Processed int
	Total     int
	Current   int
	Status    Status
	Err       error
}

// Finished reports whether every chunk has been played through.
func (p Progress) Finished() bool {
	return p.Status == StatusIdle && p.Total > 0 && p.Current >= p.Total
}

// Stage names the step at which a chunk failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
	StagePlay   Stage = "play"
)

// ChunkError is a failure tied to one chunk.
type ChunkError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d %s: %v", e.Index, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

func newChunkError(index int, err error) *ChunkError {
	stage := StageFetch
	if errors.Is(err, audio.ErrDecode) {
		stage = StageDecode
	}
	return &ChunkError{Index: index, Stage: stage, Err: err}
}

// FetchFunc returns decoded audio for one chunk.
type FetchFunc func(ctx context.Context, c chunk.Chunk) (*audio.Buffer, error)

// Player starts and stops graphs. *audio.Controller satisfies it.
type Player interface {
	Play(buf *audio.Buffer, onEnded func()) (audio.Handle, error)
	Stop(h audio.Handle)
}
