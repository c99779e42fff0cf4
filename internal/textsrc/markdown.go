package textsrc

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	frontmatterRegex = regexp.MustCompile(`(?s)^---\r?\n.*?\r?\n---\r?\n`)
	spaceRegex       = regexp.MustCompile(`[ \t]+`)
)

// RemoveFrontmatter drops a leading YAML frontmatter block.
func RemoveFrontmatter(content []byte) []byte {
	if loc := frontmatterRegex.FindIndex(content); loc != nil && loc[0] == 0 {
		return content[loc[1]:]
	}
	return content
}

// PlainText returns the speakable text of a markdown document. Code and
// HTML blocks are skipped; headings and list items end in a period so they
// read as sentences.
func PlainText(markdown []byte) string {
	reader := text.NewReader(markdown)
	doc := goldmark.New().Parser().Parse(reader)

	var buf strings.Builder
	walk(doc, reader.Source(), &buf)

	lines := strings.Split(buf.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRegex.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func walk(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.Image:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.Heading, *ast.ListItem:
		var inner strings.Builder
		walkChildren(n, source, &inner)
		if s := sentence(inner.String()); s != "" {
			buf.WriteString(s)
			buf.WriteByte('\n')
		}
		return

	case *ast.Paragraph, *ast.TextBlock:
		walkChildren(n, source, buf)
		buf.WriteByte('\n')
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c, source, buf)
	}
}

// sentence trims s and ends it with a period unless it already ends in
// terminal punctuation.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(".!?:", rune(s[len(s)-1])) {
		return s
	}
	return s + "."
}
