package telnet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "LEVELS alice [3]", "LEVELS alice [3]"},
		{"colorized", Colorize(Red, "Wrong password."), "Wrong password."},
		{"stacked styles", Bold + Green + "ok" + Reset + " done", "ok done"},
		{"cursor and erase", "\033[2K\033[1;1Hprompt", "prompt"},
		{"unterminated", "tail\033[31", "tail\033[31"},
		{"lone escape", "a\033b", "a\033b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripANSI(tt.in))
		})
	}
}

// Property: stripping a colorized line gives back the line.
func TestPropertyStripANSIUndoesColorize(t *testing.T) {
	colors := []string{Red, Green, Yellow, Cyan, Bold, Dim}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 \[\]{}":,]{0,60}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		assert.Equal(t, text, StripANSI(Colorize(color, text)))
	})
}

// Property: stripping is idempotent and never grows the input.
func TestPropertyStripANSIIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		once := StripANSI(s)
		assert.LessOrEqual(t, len(once), len(s))
		if !strings.Contains(once, "\033[") {
			assert.Equal(t, once, StripANSI(once))
		}
	})
}
