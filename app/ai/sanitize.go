package ai

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeFence removes a markdown code fence wrapping, which chat models
// add around JSON output regardless of instructions.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

var whitespacePattern = regexp.MustCompile(`[ \t]+`)
var blankLinesPattern = regexp.MustCompile(`\n{3,}`)

// ReduceHTML strips markup down to visible text so a calendar page fits the
// prompt budget. Script, style and chrome elements are removed before the
// text is extracted; the result is truncated to maxBytes on a rune boundary.
func ReduceHTML(html []byte, maxBytes int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, iframe, svg, nav, header, footer").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
	}
	text = blankLinesPattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	text = strings.TrimSpace(text)

	return truncate(text, maxBytes), nil
}

func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
