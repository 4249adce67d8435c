package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/hysbakstryd/internal/frontend/telnet"
	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

func TestRenderMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  session.Message
		want string
	}{
		{"levels", session.Message{Type: session.KindLevels, Payload: []int{2, 5}, From: "alice"}, `LEVELS alice [2,5]`},
		{"shout", session.Message{Type: session.KindReshout, Payload: map[string]any{"text": "hi"}, From: "bob"}, `RESHOUT bob {"text":"hi"}`},
		{"master default", session.Message{Type: "TIME", Payload: "tick 600"}, `TIME __master__ "tick 600"`},
		{"door", session.Message{Type: session.KindDoor, Payload: session.DoorOpen, From: "alice"}, `DOOR alice "open"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderMessage(tc.msg))
		})
	}
}

func TestRenderMessage_UnmarshalablePayloadFallsBackToString(t *testing.T) {
	out := RenderMessage(session.Message{Type: "X", Payload: make(chan int), From: "a"})
	assert.Regexp(t, `^X a "0x[0-9a-f]+"$`, out)
}

func TestRenderError(t *testing.T) {
	out := RenderError(errors.New("invalid level"))
	assert.Equal(t, "error: invalid level", telnet.StripANSI(out))
	assert.Contains(t, out, telnet.Red)
}

func TestRenderHelp_ColorsCategoryHeaders(t *testing.T) {
	lines := RenderHelp("elevator:\n  level <n>  pick\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, telnet.Colorize(telnet.Cyan, "elevator:"), lines[0])
	assert.Equal(t, "  level <n>  pick", lines[1])
}
