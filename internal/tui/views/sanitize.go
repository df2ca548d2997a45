package views

import (
	"strings"

	"github.com/rivo/tview"
)

// displayText makes user supplied text safe to print in a dynamic-color
// TextView: tview tags are escaped and emoji modifiers that tcell measures
// wrongly are dropped.
func displayText(s string) string {
	return tview.Escape(strings.Map(func(r rune) rune {
		if isModifierRune(r) {
			return -1
		}
		return r
	}, s))
}

func isModifierRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF:
		return true
	}
	return false
}
