package bridge

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/voicereader/voicereader/internal/chunk"
	"github.com/voicereader/voicereader/internal/control"
	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/reader"
)

type fakeReader struct {
	mu       sync.Mutex
	id       uuid.UUID
	texts    []string
	presses  int
	stops    int
	selected []int
	err      error
}

func (f *fakeReader) Initiate(_ context.Context, text string) (*reader.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if text == "" {
		return nil, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	f.id = uuid.New()
	return &reader.Session{ID: f.id, Text: text, Chunks: chunk.Split(text, 20)}, nil
}

func (f *fakeReader) Press(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presses++
	return nil
}

func (f *fakeReader) Select(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, index)
	return index == 0
}

func (f *fakeReader) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeReader) Status() reader.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return reader.Status{
		Playing:   true,
		SessionID: f.id,
		Progress:  queue.Progress{Processed: 2, Total: 3, Current: 1, Status: queue.StatusPlaying},
	}
}

func (f *fakeReader) ChunkText(index int) (string, bool) {
	if index == 1 {
		return "Second chunk.", true
	}
	return "", false
}

type harness struct {
	reader  *fakeReader
	service *Service
	remote  *Remote
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := log.New(&bytes.Buffer{})

	srv, err := StartEmbedded(RandomPort, logger)
	if err != nil {
		t.Fatalf("StartEmbedded() error = %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg := DefaultConfig()
	cfg.URL = srv.ClientURL()
	cfg.SubjectPrefix = "test"
	cfg.RequestTimeout = 2 * time.Second

	ctx := context.Background()
	serveConn, err := Connect(ctx, cfg, "reader", logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(serveConn.Close)
	remoteConn, err := Connect(ctx, cfg, "trigger", logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(remoteConn.Close)

	h := &harness{reader: &fakeReader{}}
	h.service = NewService(ctx, cfg, serveConn, h.reader, logger)
	if err := h.service.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.service.Close)
	h.remote = NewRemote(cfg, remoteConn)
	return h
}

func TestNewSubjects(t *testing.T) {
	s := NewSubjects("")
	if s.Initiate != "voicereader.initiate" || s.Progress != "voicereader.progress" {
		t.Errorf("NewSubjects(\"\") = %+v", s)
	}
	if got := NewSubjects("x").Ping; got != "x.ping" {
		t.Errorf("Ping = %q", got)
	}
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	if err := h.remote.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if !h.service.client.Healthy() {
		t.Error("client not healthy")
	}
}

func TestPingWithoutReader(t *testing.T) {
	h := newHarness(t)
	h.service.Close()
	if err := h.remote.Ping(context.Background()); !errors.Is(err, ErrNoReader) {
		t.Errorf("Ping() error = %v, want ErrNoReader", err)
	}
}

func TestInitiate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reply, err := h.remote.Initiate(ctx, "One two. Three four. Five six seven.")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" || reply.SessionID == "" || reply.Chunks < 2 {
		t.Errorf("Initiate() = %+v", reply)
	}

	empty, err := h.remote.Initiate(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if empty.SessionID != "" || empty.Chunks != 0 || empty.Error != "" {
		t.Errorf("Initiate(\"\") = %+v", empty)
	}
}

func TestInitiateError(t *testing.T) {
	h := newHarness(t)
	h.reader.err = &reader.InputError{Length: 6000, Limit: 5000}

	reply, err := h.remote.Initiate(context.Background(), "Too long.")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error != "input too long: 6000 characters (limit 5000)" {
		t.Errorf("Error = %q", reply.Error)
	}
}

func TestControl(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		action string
		index  int
		ok     bool
	}{
		{ActionPress, 0, true},
		{ActionStop, 0, true},
		{ActionJump, 0, true},
		{ActionJump, 2, false},
		{"rewind", 0, false},
	}
	for _, tt := range tests {
		reply, err := h.remote.Control(ctx, tt.action, tt.index)
		if err != nil {
			t.Fatalf("Control(%s) error = %v", tt.action, err)
		}
		if reply.OK != tt.ok {
			t.Errorf("Control(%s, %d) = %+v, want ok=%v", tt.action, tt.index, reply, tt.ok)
		}
		if !reply.OK && reply.Error == "" {
			t.Errorf("Control(%s, %d) refused without error", tt.action, tt.index)
		}
	}

	h.reader.mu.Lock()
	defer h.reader.mu.Unlock()
	if h.reader.presses != 1 || h.reader.stops != 1 || len(h.reader.selected) != 2 {
		t.Errorf("reader saw presses=%d stops=%d selects=%v", h.reader.presses, h.reader.stops, h.reader.selected)
	}
}

func TestStatusAndChunk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	st, err := h.remote.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != "Playing" || st.Total != 3 || st.Current != 1 || st.Queue != "playing" {
		t.Errorf("Status() = %+v", st)
	}

	c, err := h.remote.ChunkText(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Found || c.Text != "Second chunk." {
		t.Errorf("ChunkText(1) = %+v", c)
	}
	if c, _ := h.remote.ChunkText(ctx, 9); c.Found {
		t.Errorf("ChunkText(9) = %+v", c)
	}
}

func TestPublishProgress(t *testing.T) {
	h := newHarness(t)
	got := make(chan ProgressEvent, 1)
	sub, err := h.remote.Subscribe(func(ev ProgressEvent) { got <- ev })
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sub.Unsubscribe() }()
	if err := h.remote.client.Conn().Flush(); err != nil {
		t.Fatal(err)
	}

	id := uuid.New()
	h.service.Publish(reader.Event{
		SessionID: id,
		View: control.View{
			Button:   control.StateStop,
			Selected: 1,
			Progress: queue.Progress{Processed: 2, Total: 4, Current: 1, Status: queue.StatusPlaying},
		},
	})

	select {
	case ev := <-got:
		if ev.SessionID != id.String() || ev.Button != "stop" || ev.Status != "playing" || ev.Total != 4 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no progress event")
	}
}
