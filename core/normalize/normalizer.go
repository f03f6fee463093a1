// Package normalize implements the Normalizer interface.
// It turns cleaned HTML into plain text by way of Markdown, and tidies the
// raw text layers that come out of PDF and OCR extraction.
package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/rotisserie/eris"
)

// TextNormalizer converts HTML to plain text using html-to-markdown.
type TextNormalizer struct{}

// New creates a TextNormalizer.
func New() *TextNormalizer {
	return &TextNormalizer{}
}

// Normalize converts an HTML fragment into plain text.
func (n *TextNormalizer) Normalize(html string) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", eris.Wrap(err, "normalize: convert html to markdown")
	}
	return Text(StripMarkdown(markdown)), nil
}

var (
	headingRegex    = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	emphasisRegex   = regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`)
	linkRegex       = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
	listRegex       = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+\.)[ \t]+`)
	quoteRegex      = regexp.MustCompile(`(?m)^>\s?`)
	ruleRegex       = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)
)

// StripMarkdown removes Markdown syntax, keeping the text.
func StripMarkdown(md string) string {
	text := headingRegex.ReplaceAllString(md, "$2")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = emphasisRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = ruleRegex.ReplaceAllString(text, "")
	text = listRegex.ReplaceAllString(text, "")
	text = quoteRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\`, "")
	return text
}

var (
	spaceRun = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{202F}]+`)
	blankRun = regexp.MustCompile(`\n{3,}`)
)

// Text collapses horizontal whitespace, trims each line and keeps at most
// one blank line between paragraphs.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = spaceRun.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
