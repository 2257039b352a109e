package ui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// wrap word-wraps text to width. A width of zero leaves it untouched.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// chunkPattern matches chunk in wrapped text, where any run of whitespace may
// have become a line break.
func chunkPattern(chunk string) *regexp.Regexp {
	fields := strings.Fields(chunk)
	if len(fields) == 0 {
		return nil
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(strings.Join(fields, `\s+`))
}

// highlight renders the first occurrence of chunk in wrapped text with style.
// It returns the rendered text and the line the chunk starts on, or -1 when
// chunk does not occur.
func highlight(wrapped, chunk string, style lipgloss.Style) (string, int) {
	re := chunkPattern(chunk)
	if re == nil {
		return wrapped, -1
	}
	loc := re.FindStringIndex(wrapped)
	if loc == nil {
		return wrapped, -1
	}

	// Render line by line so lipgloss does not pad the block.
	lines := strings.Split(wrapped[loc[0]:loc[1]], "\n")
	for i, l := range lines {
		lines[i] = style.Render(l)
	}

	var b strings.Builder
	b.WriteString(wrapped[:loc[0]])
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString(wrapped[loc[1]:])

	return b.String(), strings.Count(wrapped[:loc[0]], "\n")
}
