package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText wraps s to the given display width, breaking at spaces where
// possible. Words wider than the limit are broken mid-word. Widths are
// terminal cells, so CJK runes count double.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var out strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(s) {
		wordWidth := runewidth.StringWidth(word)
		if lineWidth > 0 {
			if lineWidth+1+wordWidth > width {
				out.WriteByte('\n')
				lineWidth = 0
			} else {
				out.WriteByte(' ')
				lineWidth++
			}
		}
		if wordWidth <= width {
			out.WriteString(word)
			lineWidth += wordWidth
			continue
		}
		// Break an overlong word across lines.
		for _, r := range word {
			rw := runewidth.RuneWidth(r)
			if lineWidth+rw > width {
				out.WriteByte('\n')
				lineWidth = 0
			}
			out.WriteRune(r)
			lineWidth += rw
		}
	}
	return out.String()
}
