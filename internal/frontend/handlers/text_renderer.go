package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cory-johannsen/hysbakstryd/internal/frontend/telnet"
	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

// Message types rendered by the frontend itself.
const (
	KindStatus = "STATUS"
	KindWho    = "WHO"
)

// RenderMessage formats an outbound message as one protocol line:
// "<TYPE> <from> <json payload>".
//
// Postcondition: Returns a single line without trailing CR/LF.
func RenderMessage(msg session.Message) string {
	from := msg.From
	if from == "" {
		from = session.MasterID
	}
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		payload, _ = json.Marshal(fmt.Sprint(msg.Payload))
	}
	return fmt.Sprintf("%s %s %s", msg.Type, from, payload)
}

// RenderError formats a rejected command as red Telnet text.
func RenderError(err error) string {
	return telnet.Colorize(telnet.Red, "error: "+err.Error())
}

// RenderHelp converts the command help text to Telnet lines.
func RenderHelp(text string) []string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		if !strings.HasPrefix(l, " ") {
			lines[i] = telnet.Colorize(telnet.Cyan, l)
		}
	}
	return lines
}

// RenderBanner returns the greeting shown before login.
func RenderBanner(version string) []string {
	return []string{
		telnet.Colorize(telnet.Bold+telnet.Cyan, "hysbakstryd"),
		telnet.Colorize(telnet.Dim, "rules "+version),
		"Log in with any new username to create an account.",
	}
}
