package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicereader/voicereader/internal/reader"
)

// SettingsChangedMsg tells the overlay that volume or speed changed
// outside of it.
type SettingsChangedMsg struct{}

type initiateDoneMsg struct {
	session *reader.Session
	err     error
}

type eventMsg reader.Event

type pressDoneMsg struct {
	err error
}

type levelsDoneMsg struct {
	err error
}

func initiateCmd(ctx context.Context, r Reader, text string) tea.Cmd {
	return func() tea.Msg {
		sess, err := r.Initiate(ctx, text)
		return initiateDoneMsg{session: sess, err: err}
	}
}

// waitForEvent blocks for the next observer event. It returns nil once
// the channel is closed, ending the subscription.
func waitForEvent(events <-chan reader.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func pressCmd(ctx context.Context, r Reader) tea.Cmd {
	return func() tea.Msg {
		return pressDoneMsg{err: r.Press(ctx)}
	}
}

func setLevelCmd(ctx context.Context, set func(context.Context, float64) error, value float64) tea.Cmd {
	return func() tea.Msg {
		return levelsDoneMsg{err: set(ctx, value)}
	}
}

// Events returns a buffered channel and an observer that feeds it without
// blocking. Events are dropped while the channel is full; the overlay
// re-reads the whole view on every event, so only the latest matters.
func Events(size int) (<-chan reader.Event, func(reader.Event)) {
	ch := make(chan reader.Event, size)
	return ch, func(e reader.Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// Err returns the error the overlay last displayed, if any. Pass it the
// model returned by tea.Program.Run.
func Err(m tea.Model) error {
	if mm, ok := m.(model); ok {
		return mm.err
	}
	return nil
}
