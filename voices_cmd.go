package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/speech"
)

var (
	voicesJSON bool

	voicesCmd = &cobra.Command{
		Use:     "voices",
		Short:   "List the voices available to your API key",
		Long:    paragraph(fmt.Sprintf("\n%s the voices your API key can use. The current voice is marked.", keyword("List"))),
		Example: paragraph("voicereader voices\nvoicereader voices --json"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			s, err := settings.Load(ctx, store)
			if err != nil {
				return err
			}
			if err := speech.ValidateCredential(s.Credential); err != nil {
				return fmt.Errorf("%w: run `voicereader setup`", err)
			}
			client, err := newSpeechClient()
			if err != nil {
				return err
			}
			voices, err := client.ListVoices(ctx, s.Credential)
			if err != nil {
				return fmt.Errorf("unable to list voices: %w", err)
			}

			if voicesJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(voices)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatVoices(voices, s.VoiceID))
			return nil
		},
	}
)

func init() {
	voicesCmd.Flags().BoolVar(&voicesJSON, "json", false, "print the voices as JSON")
}

// formatVoices renders one voice per line, marking current.
func formatVoices(voices []speech.Voice, current string) string {
	width := 0
	for _, v := range voices {
		width = max(width, runewidth.StringWidth(v.Label()))
	}
	var b strings.Builder
	for _, v := range voices {
		mark := "  "
		if v.ID == current {
			mark = keyword("* ")
		}
		fmt.Fprintf(&b, "%s%s  %s\n", mark, runewidth.FillRight(v.Label(), width), faint(v.ID))
	}
	return b.String()
}

func findVoice(voices []speech.Voice, query string) (speech.Voice, error) {
	v, err := speech.FindVoice(voices, query)
	if errors.Is(err, speech.ErrVoiceNotFound) {
		return v, fmt.Errorf("%w: %q (see `voicereader voices`)", err, query)
	}
	return v, err
}
