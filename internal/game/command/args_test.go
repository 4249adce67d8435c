package command

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

func build(t *testing.T, line string) (session.Args, error) {
	t.Helper()
	p, cmd, ok := DefaultRegistry().Lookup(line)
	require.True(t, ok, line)
	return BuildArgs(cmd, p)
}

func TestBuildArgs(t *testing.T) {
	cases := []struct {
		line string
		want session.Args
	}{
		{"shout hello there", session.Args{"text": "hello there"}},
		{"say mood=happy floor=3", session.Args{"mood": "happy", "floor": "3"}},
		{"shout", session.Args{"text": ""}},
		{"level 7", session.Args{"level": 7}},
		{"level -1", session.Args{"level": -1}},
		{"open UP", session.Args{"direction": "up"}},
		{"dir halt", session.Args{"direction": "halt"}},
		{"reset", session.Args{}},
		{"close", session.Args{}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := build(t, tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildArgs_Invalid(t *testing.T) {
	for _, line := range []string{"level", "level two", "level 1 2", "open", "dir up down"} {
		_, err := build(t, line)
		assert.ErrorIs(t, err, session.ErrInvalidArgument, line)
	}

	_, err := build(t, "who")
	assert.ErrorIs(t, err, session.ErrUnknownCommand)
}

func TestPropertyLevelArgsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-100, 100).Draw(t, "n")
		p, cmd, ok := DefaultRegistry().Lookup("level " + strconv.Itoa(n))
		if !ok {
			t.Fatalf("level did not resolve")
		}
		args, err := BuildArgs(cmd, p)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args["level"] != n {
			t.Fatalf("got %v, want %d", args["level"], n)
		}
	})
}
