package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/voicereader/voicereader/internal/queue"
	"github.com/voicereader/voicereader/internal/reader"
	"github.com/voicereader/voicereader/internal/textsrc"
	"github.com/voicereader/voicereader/ui"
)

// runHeadless reads src without the overlay, printing a line whenever
// progress changes, until every chunk has played or ctx is done.
func runHeadless(ctx context.Context, cmd *cobra.Command, src textsrc.Source) error {
	events, notify := ui.Events(64)
	a, err := newApp(ctx, reader.WithObserver(notify))
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.watchSettings(ctx, nil); err != nil {
		log.Warn("Live settings unavailable", "error", err)
	}

	w := cmd.OutOrStdout()
	sess, err := a.reader.Initiate(ctx, src.Text)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Fprintln(w, "Nothing to read.")
		return nil
	}
	if sess.Chunked() {
		fmt.Fprintf(w, "Reading %s in %d chunks\n", src.Origin, len(sess.Chunks))
	} else {
		fmt.Fprintf(w, "Reading %s\n", src.Origin)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	var last string
	report := func(p queue.Progress) (bool, error) {
		if line := progressLine(p); line != last {
			fmt.Fprintln(w, line)
			last = line
		}
		if p.Status == queue.StatusError {
			return true, p.Err
		}
		return p.Finished(), nil
	}

	for {
		var p queue.Progress
		select {
		case <-ctx.Done():
			a.reader.Stop()
			return nil
		case e := <-events:
			if e.SessionID != sess.ID {
				continue
			}
			p = e.View.Progress
		case <-ticker.C:
			p = sess.Progress()
		}
		if done, err := report(p); done {
			return err
		}
	}
}

func progressLine(p queue.Progress) string {
	if p.Finished() {
		return fmt.Sprintf("[%d/%d] done", p.Total, p.Total)
	}
	return fmt.Sprintf("[%d/%d] %s %s", min(p.Current+1, p.Total), p.Total, p.Status,
		faint(fmt.Sprintf("(%d fetched)", p.Processed)))
}
