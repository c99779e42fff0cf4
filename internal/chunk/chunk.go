// Package chunk splits selected text into ordered segments that are
// synthesized and played independently.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSize is the chunk length bound used when none is configured.
const DefaultMaxSize = 300

// fastStartSentences is the number of sentences packed into chunk 0.
const fastStartSentences = 2

// Chunk is one immutable text segment with a stable index.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

var sentenceEndRegex = regexp.MustCompile(`[.!?]+`)

// Sentences splits text on terminal punctuation and drops empty fragments.
// The punctuation itself is not part of the returned sentences.
func Sentences(text string) []string {
	parts := sentenceEndRegex.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Split breaks text into chunks no longer than maxSize characters.
//
// Text that already fits is returned as a single chunk holding the trimmed
// input. Longer text with at least two sentences gets a small fast-start
// chunk made of the first two sentences; the rest are packed greedily. A
// sentence that is longer than maxSize on its own is never split.
func Split(text string, maxSize int) []Chunk {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= maxSize {
		return []Chunk{{Index: 0, Text: trimmed}}
	}

	var texts []string
	rest := sentences
	if len(sentences) >= fastStartSentences {
		texts = append(texts, closeChunk(sentences[:fastStartSentences]))
		rest = sentences[fastStartSentences:]
	}
	texts = append(texts, pack(rest, maxSize)...)

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t}
	}
	return chunks
}

// pack greedily groups sentences so that each closed chunk fits maxSize.
func pack(sentences []string, maxSize int) []string {
	var (
		out     []string
		running []string
		length  int
	)
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if len(running) > 0 && closedLen(length, len(running)+1, n) > maxSize {
			out = append(out, closeChunk(running))
			running, length = nil, 0
		}
		running = append(running, s)
		length += n
	}
	if len(running) > 0 {
		out = append(out, closeChunk(running))
	}
	return out
}

// closedLen is the length of a chunk holding count sentences once joined
// with ". " separators and terminated with ".".
func closedLen(length, count, next int) int {
	return length + next + 2*(count-1) + 1
}

func closeChunk(sentences []string) string {
	return strings.Join(sentences, ". ") + "."
}
