package reader

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voicereader/voicereader/internal/chunk"
	"github.com/voicereader/voicereader/internal/control"
	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/settings"
)

// Session is one reading of one text, from Initiate until it is torn
// down by the next Initiate or Close.
type Session struct {
	ID       uuid.UUID
	Text     string
	Chunks   []chunk.Chunk
	Started  time.Time
	Settings settings.Settings

	queue   *queue.Queue
	control *control.Reconciler
}

// Chunked reports whether the text was split into more than one chunk.
func (s *Session) Chunked() bool {
	return len(s.Chunks) > 1
}

// Press acts on the transport button.
func (s *Session) Press(ctx context.Context) error {
	return s.control.Press(ctx)
}

// Select shows chunk index and plays it if ready.
func (s *Session) Select(index int) bool {
	return s.control.Select(index)
}

// Stop halts playback and rewinds, keeping fetched audio.
func (s *Session) Stop() {
	s.queue.StopAll()
	s.control.Sync(s.queue.Snapshot())
}

// View returns the transport view.
func (s *Session) View() control.View {
	return s.control.View()
}

// Progress returns queue progress.
func (s *Session) Progress() queue.Progress {
	return s.queue.Snapshot()
}

// ReadyMask reports which chunks have audio.
func (s *Session) ReadyMask() []bool {
	return s.queue.ReadyMask()
}

// ChunkText returns the text of chunk index.
func (s *Session) ChunkText(index int) (string, bool) {
	return s.queue.ChunkText(index)
}

func (s *Session) close() {
	s.queue.Close()
}
