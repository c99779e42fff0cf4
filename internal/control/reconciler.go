// Package control maps transport intents (play, stop, select a segment)
// onto the playback queue and keeps the visible button state consistent
// with it.
package control

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/voicereader/voicereader/internal/queue"
)

// ErrBusy is returned when a press arrives while another one is settling.
var ErrBusy = errors.New("transport action already in progress")

// Queue is the part of *queue.Queue the reconciler drives.
type Queue interface {
	Start(ctx context.Context) error
	Resume() error
	StopAll()
	JumpTo(index int) bool
	Snapshot() queue.Progress
	Len() int
	ChunkText(index int) (string, bool)
}

// View is the rendered transport state.
type View struct {
	Button   State
	Selected int
	Text     string
	Progress queue.Progress
}

// Reconciler serializes presses and derives the button from queue state.
type Reconciler struct {
	q      Queue
	logger *log.Logger

	mu       sync.Mutex
	sm       *machine
	selected int
	onChange func(View)
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// OnChange registers fn to run whenever the button state changes and
// after every press settles.
func OnChange(fn func(View)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// New creates a reconciler for q.
func New(q Queue, opts ...Option) *Reconciler {
	r := &Reconciler{
		q:      q,
		logger: log.Default(),
		sm:     newMachine(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current button state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sm.current
}

// View returns the button, the displayed chunk and queue progress.
func (r *Reconciler) View() View {
	r.mu.Lock()
	state, selected := r.sm.current, r.selected
	r.mu.Unlock()
	text, _ := r.q.ChunkText(selected)
	return View{
		Button:   state,
		Selected: selected,
		Text:     text,
		Progress: r.q.Snapshot(),
	}
}

// Start begins a session's playback. It counts as a press.
func (r *Reconciler) Start(ctx context.Context) error {
	if !r.acquire() {
		return ErrBusy
	}
	defer r.settle()
	return r.q.Start(ctx)
}

// Press acts on the button: Stop halts everything, Play replays a single
// chunk or resumes multi-chunk playback from the current index.
func (r *Reconciler) Press(ctx context.Context) error {
	if !r.acquire() {
		return ErrBusy
	}
	defer r.settle()

	if err := ctx.Err(); err != nil {
		return err
	}

	p := r.q.Snapshot()
	if p.Status.Active() {
		r.logger.Debug("Transport: stop", "index", p.Current)
		r.q.StopAll()
		return nil
	}

	if r.q.Len() == 1 {
		r.logger.Debug("Transport: replay single chunk")
		r.setSelected(0)
		if r.q.JumpTo(0) {
			return nil
		}
		return r.q.Resume()
	}

	r.logger.Debug("Transport: resume", "index", p.Current)
	if p.Current < r.q.Len() {
		r.setSelected(p.Current)
	} else {
		r.setSelected(0)
	}
	return r.q.Resume()
}

// Select shows chunk index and plays it if its audio is ready. The text
// is shown even when playback is refused.
func (r *Reconciler) Select(index int) bool {
	if _, ok := r.q.ChunkText(index); !ok {
		return false
	}
	r.setSelected(index)
	ok := r.q.JumpTo(index)
	r.logger.Debug("Transport: select", "index", index, "played", ok)
	r.Sync(r.q.Snapshot())
	return ok
}

// Sync realigns the button with a queue progress report and reports
// whether the button changed. It is a no-op while a press is settling.
func (r *Reconciler) Sync(p queue.Progress) bool {
	r.mu.Lock()
	before := r.sm.current
	if before == StatePending {
		r.mu.Unlock()
		return false
	}
	if p.Status == queue.StatusPlaying && p.Current < r.q.Len() {
		r.selected = p.Current
	}
	r.sm.transition(stateFor(p))
	changed := r.sm.current != before
	r.mu.Unlock()
	if changed {
		r.notify()
	}
	return changed
}

func stateFor(p queue.Progress) State {
	if p.Status.Active() {
		return StateStop
	}
	return StatePlay
}

func (r *Reconciler) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sm.current == StatePending {
		return false
	}
	return r.sm.transition(StatePending)
}

func (r *Reconciler) settle() {
	p := r.q.Snapshot()
	r.mu.Lock()
	r.sm.transition(stateFor(p))
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) setSelected(index int) {
	r.mu.Lock()
	r.selected = index
	r.mu.Unlock()
}

func (r *Reconciler) notify() {
	if r.onChange != nil {
		r.onChange(r.View())
	}
}
