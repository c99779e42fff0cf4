package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/chunk"
)

// Queue holds per-chunk readiness and the play position for one reading
// session.
//
// Ready audio is never discarded: after StopAll every fetched chunk stays
// playable. Fetches run one at a time in index order on a background
// goroutine and keep going after a stop, so a later resume or jump finds
// the audio already there. A failed fetch halts the pipeline until the
// next Start or Resume.
type Queue struct {
	chunks []chunk.Chunk
	fetch  FetchFunc
	player Player
	logger *log.Logger
	feed   *feed

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	buffers    []*audio.Buffer
	processed  int
	current    int
	status     Status
	err        error
	stopping   bool
	sequential bool
	waiting    bool
	fetching   bool
	closed     bool

	graph    audio.Handle
	hasGraph bool
	token    uint64
}

// Option customizes a Queue.
type Option func(*Queue)

// WithObserver registers fn to receive a Progress after every change.
func WithObserver(fn func(Progress)) Option {
	return func(q *Queue) { q.feed = newFeed(fn) }
}

// WithLogger sets the queue logger.
func WithLogger(l *log.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New creates an idle queue over chunks.
func New(chunks []chunk.Chunk, fetch FetchFunc, player Player, opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		chunks:  chunks,
		fetch:   fetch,
		player:  player,
		logger:  log.Default(),
		ctx:     ctx,
		cancel:  cancel,
		buffers: make([]*audio.Buffer, len(chunks)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start fetches chunk 0, waits for it, starts playing it and fetches the
// remaining chunks in the background.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if len(q.chunks) == 0 {
		q.mu.Unlock()
		return ErrEmpty
	}
	q.stopping = false
	q.sequential = true
	q.waiting = false
	q.err = nil
	q.current = 0
	q.status = StatusProcessing
	q.emitLocked()
	ready := q.buffers[0] != nil
	q.mu.Unlock()

	q.logger.Debug("Queue: starting", "chunks", len(q.chunks))

	var buf *audio.Buffer
	if !ready {
		var err error
		buf, err = q.fetch(ctx, q.chunks[0])
		if err != nil {
			q.mu.Lock()
			defer q.mu.Unlock()
			return q.failLocked(0, err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if buf != nil {
		q.depositLocked(0, buf)
	}
	if !q.stopping && q.sequential && !q.hasGraph {
		if err := q.playLocked(0); err != nil {
			return err
		}
	} else {
		q.emitLocked()
	}
	q.startPipelineLocked()
	return nil
}

// Resume continues sequential playback from the current index, starting
// over when everything has been played. It also restarts a halted
// pipeline. A chunk that is still playing is not restarted.
func (q *Queue) Resume() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if len(q.chunks) == 0 {
		return ErrEmpty
	}

	if q.hasGraph && !q.stopping {
		// A fetch failed while this chunk was playing. Let it finish and
		// retry the pipeline behind it.
		q.sequential = true
		q.err = nil
		q.status = StatusPlaying
		q.logger.Debug("Queue: resuming pipeline", "index", q.current)
		q.startPipelineLocked()
		q.emitLocked()
		return nil
	}

	q.stopGraphLocked()
	q.stopping = false
	q.sequential = true
	q.err = nil
	if q.current >= len(q.chunks) {
		q.current = 0
	}
	q.logger.Debug("Queue: resuming", "index", q.current)

	q.startPipelineLocked()
	return q.continueLocked()
}

// JumpTo plays chunk index immediately. It does nothing and returns false
// when that chunk is not ready yet. Sequential playback carries on after
// the chunk only if it was running when the jump happened.
func (q *Queue) JumpTo(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || index < 0 || index >= len(q.chunks) || q.buffers[index] == nil {
		q.logger.Debug("Queue: jump rejected", "index", index)
		return false
	}

	continuing := q.sequential && !q.stopping && q.status.Active()
	q.stopGraphLocked()
	q.stopping = false
	q.sequential = continuing
	q.logger.Debug("Queue: jump", "index", index, "sequential", continuing)
	return q.playLocked(index) == nil
}

// StopAll halts playback and rewinds to the first chunk. Fetched audio is
// kept and in-flight fetches still complete.
func (q *Queue) StopAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopping = true
	q.stopGraphLocked()
	q.current = 0
	q.processed = q.readyCountLocked()
	q.status = StatusIdle
	q.sequential = false
	q.waiting = false
	q.logger.Debug("Queue: stopped", "ready", q.processed)
	q.emitLocked()
}

// Close stops playback, cancels background fetches and stops notifying
// the observer.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.stopping = true
	q.stopGraphLocked()
	q.status = StatusIdle
	q.emitLocked()
	q.mu.Unlock()

	q.cancel()
	q.feed.close()
}

// Snapshot returns the current progress.
func (q *Queue) Snapshot() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.progressLocked()
}

// Len returns the number of chunks.
func (q *Queue) Len() int {
	return len(q.chunks)
}

// ChunkText returns the text of chunk index.
func (q *Queue) ChunkText(index int) (string, bool) {
	if index < 0 || index >= len(q.chunks) {
		return "", false
	}
	return q.chunks[index].Text, true
}

// Ready reports whether chunk index has audio.
func (q *Queue) Ready(index int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return index >= 0 && index < len(q.buffers) && q.buffers[index] != nil
}

// ReadyMask reports readiness of every chunk.
func (q *Queue) ReadyMask() []bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	mask := make([]bool, len(q.buffers))
	for i, b := range q.buffers {
		mask[i] = b != nil
	}
	return mask
}

func (q *Queue) advanceLocked() error {
	q.current++
	if q.current >= len(q.chunks) {
		q.current = len(q.chunks)
		q.status = StatusIdle
		q.sequential = false
		q.waiting = false
		q.logger.Debug("Queue: all chunks played", "total", len(q.chunks))
		q.emitLocked()
		return nil
	}
	return q.continueLocked()
}

// continueLocked plays the current chunk or waits for it.
func (q *Queue) continueLocked() error {
	if q.buffers[q.current] != nil {
		return q.playLocked(q.current)
	}
	if q.err != nil {
		q.status = StatusError
		q.sequential = false
		q.waiting = false
		q.emitLocked()
		return nil
	}
	q.waiting = true
	q.status = StatusProcessing
	q.logger.Debug("Queue: waiting for chunk", "index", q.current)
	q.emitLocked()
	return nil
}

func (q *Queue) playLocked(index int) error {
	q.token++
	token := q.token
	h, err := q.player.Play(q.buffers[index], func() { q.handleEnded(token) })
	if err != nil {
		q.hasGraph = false
		return q.failLocked(index, &ChunkError{Index: index, Stage: StagePlay, Err: err})
	}
	q.graph = h
	q.hasGraph = true
	q.current = index
	q.waiting = false
	q.status = StatusPlaying
	q.logger.Debug("Queue: playing chunk", "index", index, "total", len(q.chunks))
	q.emitLocked()
	return nil
}

func (q *Queue) stopGraphLocked() {
	if q.hasGraph {
		q.player.Stop(q.graph)
		q.hasGraph = false
	}
	q.token++
}

// handleEnded is the natural-end callback of the graph started with token.
func (q *Queue) handleEnded(token uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.hasGraph || token != q.token {
		return
	}
	q.hasGraph = false
	if q.stopping || q.closed {
		return
	}
	q.logger.Debug("Queue: chunk ended", "index", q.current)

	if !q.sequential {
		q.status = StatusIdle
		if q.err != nil {
			q.status = StatusError
		}
		q.emitLocked()
		return
	}
	// Ready chunks keep playing after a failed fetch; the error stops
	// playback only at the first chunk without audio.
	_ = q.advanceLocked()
}

func (q *Queue) startPipelineLocked() {
	if q.fetching || q.closed {
		return
	}
	next := q.firstMissingLocked()
	if next < 0 {
		return
	}
	q.fetching = true
	go q.pipeline(next)
}

func (q *Queue) pipeline(from int) {
	for i := from; ; i++ {
		q.mu.Lock()
		for i < len(q.buffers) && q.buffers[i] != nil {
			i++
		}
		if i >= len(q.chunks) || q.closed || q.err != nil {
			q.fetching = false
			q.mu.Unlock()
			return
		}
		c := q.chunks[i]
		q.mu.Unlock()

		q.logger.Debug("Queue: fetching chunk", "index", c.Index)
		buf, err := q.fetch(q.ctx, c)

		q.mu.Lock()
		if q.closed {
			q.fetching = false
			q.mu.Unlock()
			return
		}
		if err != nil {
			q.fetching = false
			if !errors.Is(err, context.Canceled) {
				_ = q.failLocked(c.Index, err)
			}
			q.mu.Unlock()
			return
		}
		q.depositLocked(c.Index, buf)
		if q.waiting && q.current == c.Index && q.sequential && !q.stopping {
			_ = q.playLocked(c.Index)
		} else {
			q.emitLocked()
		}
		q.mu.Unlock()
	}
}

func (q *Queue) depositLocked(index int, buf *audio.Buffer) {
	q.buffers[index] = buf
	q.processed = q.readyCountLocked()
	q.logger.Debug("Queue: chunk ready",
		"index", index,
		"processed", q.processed,
		"total", len(q.chunks),
		"duration", buf.Duration())
}

// failLocked records err for chunk index and halts the pipeline. A graph
// that is already playing keeps playing.
func (q *Queue) failLocked(index int, err error) error {
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		chunkErr = newChunkError(index, err)
	}
	q.err = chunkErr
	q.status = StatusError
	q.waiting = false
	q.logger.Error("Queue: chunk failed", "index", index, "stage", chunkErr.Stage, "error", chunkErr.Err)
	q.emitLocked()
	return chunkErr
}

func (q *Queue) readyCountLocked() int {
	n := 0
	for _, b := range q.buffers {
		if b != nil {
			n++
		}
	}
	return n
}

func (q *Queue) firstMissingLocked() int {
	for i, b := range q.buffers {
		if b == nil {
			return i
		}
	}
	return -1
}

func (q *Queue) progressLocked() Progress {
	return Progress{
		Processed: q.processed,
		Total:     len(q.chunks),
		Current:   q.current,
		Status:    q.status,
		Err:       q.err,
	}
}

func (q *Queue) emitLocked() {
	q.feed.push(q.progressLocked())
}
