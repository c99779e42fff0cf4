package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/voicereader/voicereader/internal/control"
	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/speech"
)

// segment is the display state of one chunk in the progress bar.
type segment int

const (
	segmentPending segment = iota
	segmentReady
	segmentPlayed
	segmentCurrent
	segmentFailed
)

var (
	colorPlaying = lipgloss.Color("#00D787")
	colorPlayed  = lipgloss.Color("#2E7D5B")
	colorReady   = lipgloss.Color("#888888")
	colorPending = lipgloss.Color("#333333")
	colorWaiting = lipgloss.Color("#00AAFF")
	colorError   = lipgloss.Color("#FF5F5F")
)

// segments classifies every chunk for the progress bar.
func segments(view control.View, ready []bool) []segment {
	p := view.Progress
	failed := -1
	var chunkErr *queue.ChunkError
	if p.Status == queue.StatusError && errors.As(p.Err, &chunkErr) {
		failed = chunkErr.Index
	}

	out := make([]segment, p.Total)
	for i := range out {
		isReady := i < len(ready) && ready[i]
		switch {
		case i == failed:
			out[i] = segmentFailed
		case p.Status.Active() && i == p.Current:
			out[i] = segmentCurrent
		case p.Status.Active() && i < p.Current:
			out[i] = segmentPlayed
		case isReady:
			out[i] = segmentReady
		default:
			out[i] = segmentPending
		}
	}
	return out
}

// barLayout returns the cell width and gap used to draw n segments in
// width columns. ok is false when they do not fit.
func barLayout(n, width int) (cell, gap int, ok bool) {
	if n == 0 || width < n {
		return 0, 0, false
	}
	gap = 1
	if width < 2*n {
		gap = 0
	}
	cell = max((width-gap*(n-1))/n, 1)
	return cell, gap, true
}

// segmentAt maps column x of a bar drawn by progressBar to a segment
// index, or -1 for gaps and columns past the bar.
func segmentAt(n, width, x int) int {
	cell, gap, ok := barLayout(n, width)
	if !ok || x < 0 {
		return -1
	}
	stride := cell + gap
	i := x / stride
	if i >= n || x%stride >= cell {
		return -1
	}
	return i
}

// progressBar renders one block per chunk, sharing width between them.
func progressBar(segs []segment, width int) string {
	cell, gap, ok := barLayout(len(segs), width)
	if !ok {
		return ""
	}

	var b strings.Builder
	for i, s := range segs {
		if i > 0 && gap > 0 {
			b.WriteString(" ")
		}
		glyph, color := "█", colorPending
		switch s {
		case segmentPlayed:
			color = colorPlayed
		case segmentCurrent:
			color = colorPlaying
		case segmentReady:
			color = colorReady
		case segmentFailed:
			color = colorError
		default:
			glyph = "░"
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(strings.Repeat(glyph, cell)))
	}
	return b.String()
}

func stateIcon(p queue.Progress) (string, lipgloss.Color) {
	switch p.Status {
	case queue.StatusPlaying:
		return "▶", colorPlaying
	case queue.StatusProcessing:
		return "⟳", colorWaiting
	case queue.StatusError:
		return "✗", colorError
	default:
		return "■", colorReady
	}
}

// retryable reports whether the failed chunk could succeed if fetched
// again.
func retryable(err error) bool {
	var chunkErr *queue.ChunkError
	return errors.As(err, &chunkErr) &&
		chunkErr.Stage == queue.StageFetch &&
		speech.IsRetryable(chunkErr.Err)
}

// statusLine describes what the queue is doing. pressKey names the key
// that retries after a transient error.
func statusLine(view control.View, spin, pressKey string) string {
	p := view.Progress
	icon, color := stateIcon(p)
	style := lipgloss.NewStyle().Foreground(color)

	var text string
	switch p.Status {
	case queue.StatusPlaying:
		text = fmt.Sprintf("Playing %d/%d", p.Current+1, p.Total)
	case queue.StatusProcessing:
		text = fmt.Sprintf("Loading %d/%d %s", p.Current+1, p.Total, spin)
	case queue.StatusError:
		text = "Stopped on error"
		if retryable(p.Err) {
			text += fmt.Sprintf(", press %s to retry", pressKey)
		}
	default:
		if p.Finished() {
			text = "All chunks played"
		} else {
			text = "Ready"
		}
	}

	counter := lipgloss.NewStyle().Foreground(colorReady).
		Render(fmt.Sprintf("  %d of %d fetched", p.Processed, p.Total))
	return style.Render(icon+" "+text) + counter
}

func errorLine(err error, width int) string {
	if err == nil {
		return ""
	}
	msg := truncate.StringWithTail(err.Error(), uint(max(width-7, 10)), "…")
	return lipgloss.NewStyle().Foreground(colorError).Render("Error: " + msg)
}

func levelsLine(volume, speed float64) string {
	return lipgloss.NewStyle().Foreground(colorReady).
		Render(fmt.Sprintf("Volume %3.0f%%   Speed %.1fx", volume*100, speed))
}
