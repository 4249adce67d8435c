package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("reset")
	assert.Equal(t, "reset", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
	assert.Nil(t, result.Fields)
}

func TestParse_Lowercase(t *testing.T) {
	result := Parse("OPEN up")
	assert.Equal(t, "open", result.Command)
	assert.Equal(t, []string{"up"}, result.Args)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result := Parse("  shout   hello   world  ")
	assert.Equal(t, "shout", result.Command)
	assert.Equal(t, []string{"hello", "world"}, result.Args)
	assert.Equal(t, "hello   world", result.RawArgs)
	assert.Nil(t, result.Fields)
}

func TestParse_Fields(t *testing.T) {
	result := Parse("shout mood=happy floor=3")
	assert.Equal(t, map[string]string{"mood": "happy", "floor": "3"}, result.Fields)

	result = Parse("shout mood=happy and more")
	assert.Nil(t, result.Fields)

	result = Parse("shout =x")
	assert.Nil(t, result.Fields)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result := Parse(word)
		for _, c := range result.Command {
			if c >= 'A' && c <= 'Z' {
				t.Fatalf("command %q contains uppercase char in Parse result %q", word, result.Command)
			}
		}
	})
}

func TestPropertyParseNonEmptyInputHasCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "word")
		result := Parse(word)
		if result.Command == "" {
			t.Fatalf("non-empty input %q produced empty command", word)
		}
	})
}
