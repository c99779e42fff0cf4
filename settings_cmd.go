package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicereader/voicereader/internal/settings"
)

var (
	showCredential bool

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Read or change stored settings",
		Long: paragraph(fmt.Sprintf("\n%s the stored settings: %s.",
			keyword("Read or change"), strings.Join(settings.Keys, ", "))),
	}

	settingsGetCmd = &cobra.Command{
		Use:     "get [KEY...]",
		Short:   "Print stored settings",
		Example: paragraph("voicereader settings get\nvoicereader settings get speed volume"),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range args {
				if err := settings.ValidateKey(k); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			values, err := store.Get(ctx, args...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatSettings(values, showCredential))
			return nil
		},
	}

	settingsSetCmd = &cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Store one setting",
		Example: paragraph("voicereader settings set speed 1.25"),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
			return settings.Save(ctx, store, settings.Values{args[0]: args[1]})
		},
	}
)

func init() {
	settingsGetCmd.Flags().BoolVar(&showCredential, "show-credential", false, "print the API key in full")
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
}

func formatSettings(values settings.Values, reveal bool) string {
	var b strings.Builder
	for _, k := range values.SortedKeys() {
		v := values[k]
		if k == settings.KeyCredential && !reveal {
			v = maskSecret(v)
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}

// maskSecret keeps the last four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
