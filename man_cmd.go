package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generate man pages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}
		page = page.WithSection("Environment", "ELEVENLABS_API_KEY seeds the API credential when none is stored.\n"+
			"VOICEREADER_CONFIG_HOME overrides the configuration directory.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
