package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voicereader/voicereader/internal/settings"
	"github.com/voicereader/voicereader/internal/speech"
)

var (
	setupVoice string

	setupCmd = &cobra.Command{
		Use:     "setup",
		Short:   "Store your API key and choose a voice",
		Long:    paragraph(fmt.Sprintf("\n%s your ElevenLabs API key, check it against the API and choose a default voice.", keyword("Store"))),
		Example: paragraph("voicereader setup\nvoicereader setup --voice Rachel"),
		Args:    cobra.NoArgs,
		RunE:    runSetup,
	}
)

func init() {
	setupCmd.Flags().StringVar(&setupVoice, "voice", "", "voice name or id, skipping the prompt")
}

func runSetup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	current, err := settings.Load(ctx, store)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	prompt := "API key: "
	if current.Credential != "" {
		prompt = "API key (enter to keep the stored one): "
	}
	key, err := readSecret(in, out, prompt)
	if err != nil {
		return err
	}
	if key == "" {
		key = current.Credential
	}
	if err := speech.ValidateCredential(key); err != nil {
		return err
	}

	client, err := newSpeechClient()
	if err != nil {
		return err
	}
	voices, err := client.ListVoices(ctx, key)
	var apiErr *speech.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
		return speech.ErrInvalidCredential
	} else if err != nil {
		return fmt.Errorf("unable to check the API key: %w", err)
	}
	fmt.Fprintln(out, keyword("API key accepted."), faint(fmt.Sprintf("%d voices available", len(voices))))

	values := settings.Values{settings.KeyCredential: key}
	query := setupVoice
	if query == "" {
		name := current.VoiceID
		if v, err := speech.FindVoice(voices, current.VoiceID); err == nil {
			name = v.Name
		}
		fmt.Fprintf(out, "Voice (enter to keep %s): ", name)
		query, err = readLine(in)
		if err != nil {
			return err
		}
	}
	if query != "" {
		v, err := findVoice(voices, query)
		if err != nil {
			return err
		}
		values[settings.KeyVoiceID] = v.ID
		fmt.Fprintln(out, "Voice:", v.Label())
	}

	if err := settings.Save(ctx, store, values); err != nil {
		return err
	}
	fmt.Fprintln(out, "Settings saved.")
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("unable to read API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
