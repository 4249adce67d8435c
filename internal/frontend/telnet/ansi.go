// Package telnet provides the Telnet line transport: an acceptor that hands
// each connection to a session handler, and a Conn with line reading, echo
// control and serialized writes.
package telnet

import "strings"

// ANSI escape code constants for terminal styling.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Colorize wraps text in color and Reset.
func Colorize(color, text string) string {
	return color + text + Reset
}

// StripANSI removes ANSI control sequences (ESC [ parameters final-byte)
// from s. An unterminated sequence at the end of s is kept as text.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			if end := csiEnd(s, i+2); end > 0 {
				i = end
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// csiEnd returns the index of the final byte of a control sequence whose
// parameters start at i, or -1 when s ends first.
func csiEnd(s string, i int) int {
	for ; i < len(s); i++ {
		if s[i] >= 0x40 && s[i] <= 0x7e {
			return i
		}
	}
	return -1
}
