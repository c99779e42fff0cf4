// Package textsrc resolves the text the user wants read aloud: a literal
// argument, a file, standard input or the clipboard.
package textsrc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mitchellh/go-homedir"
)

// ErrEmpty is returned when a source holds no readable text.
var ErrEmpty = errors.New("no text to read")

// Source is resolved text and where it came from.
type Source struct {
	Text   string
	Origin string
}

var markdownExtensions = []string{".md", ".mdown", ".mkdn", ".mkd", ".markdown"}

// IsMarkdownFile reports whether name has a markdown extension.
func IsMarkdownFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// FromArg resolves arg: "-" reads stdin, an existing file is read from
// disk, anything else is the text itself.
func FromArg(arg string) (Source, error) {
	if arg == "-" {
		return FromReader(os.Stdin, "stdin")
	}

	path, err := homedir.Expand(arg)
	if err == nil {
		if st, statErr := os.Stat(path); statErr == nil && !st.IsDir() {
			return FromFile(path)
		}
	}
	return fromText(arg, "argument")
}

// FromFile reads path. Markdown is reduced to its spoken text.
func FromFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return FromReader(f, abs)
}

// FromReader reads all of r. name decides whether markdown is stripped.
func FromReader(r io.Reader, name string) (Source, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("unable to read from reader: %w", err)
	}
	text := string(b)
	if IsMarkdownFile(name) {
		text = PlainText(RemoveFrontmatter(b))
	}
	return fromText(text, name)
}

// FromClipboard reads the system clipboard.
func FromClipboard() (Source, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return Source{}, fmt.Errorf("unable to read clipboard: %w", err)
	}
	return fromText(text, "clipboard")
}

func fromText(text, origin string) (Source, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Source{}, ErrEmpty
	}
	return Source{Text: text, Origin: origin}, nil
}
