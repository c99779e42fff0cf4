// Package ui provides the reading overlay: a small Bubble Tea program that
// renders a session's progress and dispatches transport intents.
package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/voicereader/voicereader/internal/audio"
	"github.com/voicereader/voicereader/internal/control"
	"github.com/voicereader/voicereader/internal/reader"
)

const (
	defaultWidth = 72
	levelStep    = 0.1
)

// Reader is the part of the reading core the overlay drives.
type Reader interface {
	Initiate(ctx context.Context, text string) (*reader.Session, error)
	Press(ctx context.Context) error
	Select(index int) bool
	Stop()
	SetVolume(ctx context.Context, volume float64) error
	SetSpeed(ctx context.Context, speed float64) error
	Volume() float64
	Speed() float64
	View() (control.View, bool)
	ReadyMask() []bool
}

type model struct {
	ctx    context.Context
	cfg    Config
	reader Reader
	events <-chan reader.Event
	text   string
	title  string

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	width   int

	starting   bool
	hasSession bool
	view       control.View
	ready      []bool
	volume     float64
	speed      float64
	err        error
	notice     string
}

// NewProgram returns a Tea program that reads text aloud with r. events
// should carry r's observer events.
func NewProgram(ctx context.Context, cfg Config, r Reader, text, title string, events <-chan reader.Event) *tea.Program {
	log.Debug("Starting overlay", "alt_screen", cfg.AltScreen, "width", cfg.Width)
	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		// Click rows are only known when the overlay owns the screen.
		if !cfg.AltScreen {
			opts = append(opts, tea.WithAltScreen())
		}
		opts = append(opts, tea.WithMouseCellMotion())
	}
	opts = append(opts, tea.WithContext(ctx))
	return tea.NewProgram(newModel(ctx, cfg, r, text, title, events), opts...)
}

func newModel(ctx context.Context, cfg Config, r Reader, text, title string, events <-chan reader.Event) model {
	width := cfg.Width
	if width <= 0 {
		width = defaultWidth
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorWaiting)
	return model{
		ctx:      ctx,
		cfg:      cfg,
		reader:   r,
		events:   events,
		text:     text,
		title:    title,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  sp,
		width:    width,
		starting: true,
		volume:   r.Volume(),
		speed:    r.Speed(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		initiateCmd(m.ctx, m.reader, m.text),
		waitForEvent(m.events),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.cfg.Width > 0 && m.cfg.Width < m.width {
			m.width = m.cfg.Width
		}
		m.help.Width = m.width
		return m, nil

	case initiateDoneMsg:
		m.starting = false
		if msg.err != nil {
			m.err = msg.err
		}
		if msg.session == nil && msg.err == nil {
			m.notice = "Nothing to read."
			return m, tea.Quit
		}
		if msg.session == nil {
			return m, tea.Quit
		}
		m.refresh()
		return m, nil

	case eventMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case pressDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, control.ErrBusy) {
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case levelsDoneMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("save settings: %w", msg.err)
		}
		return m, nil

	case SettingsChangedMsg:
		m.volume = m.reader.Volume()
		m.speed = m.reader.Speed()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

// progressRow is the screen row of the progress bar: the title and a
// blank line come first.
const progressRow = 2

// handleMouse plays the chunk whose segment was clicked.
func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.starting || !m.hasSession {
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft || msg.Y != progressRow {
		return m, nil
	}
	if i := segmentAt(m.view.Progress.Total, m.width, msg.X); i >= 0 {
		m.selectChunk(i)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.reader.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.starting || !m.hasSession {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Press):
		m.err = nil
		return m, pressCmd(m.ctx, m.reader)

	case key.Matches(msg, m.keys.Stop):
		m.reader.Stop()
		m.refresh()

	case key.Matches(msg, m.keys.Faster):
		m.speed = audio.ClampSpeed(round(m.speed + levelStep))
		return m, setLevelCmd(m.ctx, m.reader.SetSpeed, m.speed)

	case key.Matches(msg, m.keys.Slower):
		m.speed = audio.ClampSpeed(round(m.speed - levelStep))
		return m, setLevelCmd(m.ctx, m.reader.SetSpeed, m.speed)

	case key.Matches(msg, m.keys.Louder):
		m.volume = audio.ClampVolume(round(m.volume + levelStep))
		return m, setLevelCmd(m.ctx, m.reader.SetVolume, m.volume)

	case key.Matches(msg, m.keys.Quieter):
		m.volume = audio.ClampVolume(round(m.volume - levelStep))
		return m, setLevelCmd(m.ctx, m.reader.SetVolume, m.volume)

	case key.Matches(msg, m.keys.NextChunk):
		m.selectChunk(m.view.Selected + 1)

	case key.Matches(msg, m.keys.PrevChunk):
		m.selectChunk(m.view.Selected - 1)

	case key.Matches(msg, m.keys.JumpChunk):
		m.selectChunk(int(msg.String()[0] - '1'))
	}
	return m, nil
}

func (m *model) selectChunk(index int) {
	total := m.view.Progress.Total
	if total == 0 {
		return
	}
	index = (index%total + total) % total
	if !m.reader.Select(index) {
		m.notice = fmt.Sprintf("Chunk %d is still loading.", index+1)
	} else {
		m.notice = ""
	}
	m.refresh()
}

func (m *model) refresh() {
	view, ok := m.reader.View()
	m.hasSession = ok
	m.view = view
	m.ready = m.reader.ReadyMask()
	if ok && view.Progress.Err != nil {
		m.err = view.Progress.Err
	}
}

func (m model) View() string {
	var b strings.Builder

	title := runewidth.Truncate(m.title, max(m.width-2, 1), "…")
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch {
	case m.starting:
		b.WriteString(m.spinner.View() + " Fetching the first chunk…\n")
	case m.hasSession:
		b.WriteString(progressBar(segments(m.view, m.ready), m.width))
		b.WriteString("\n")
		b.WriteString(statusLine(m.view, m.spinner.View(), m.keys.Press.Help().Key))
		b.WriteString("\n\n")
		if m.view.Text != "" {
			label := fmt.Sprintf("Chunk %d of %d", m.view.Selected+1, m.view.Progress.Total)
			b.WriteString(labelStyle.Render(label))
			b.WriteString("\n")
			b.WriteString(wordwrap.String(m.view.Text, m.width))
			b.WriteString("\n\n")
		}
		b.WriteString(levelsLine(m.volume, m.speed))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if line := errorLine(m.err, m.width); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#5A56E0")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(colorReady).Italic(true)
	noticeStyle = lipgloss.NewStyle().Foreground(colorWaiting)
)

func round(v float64) float64 {
	return math.Round(v*10) / 10
}
