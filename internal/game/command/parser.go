package command

import "strings"

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (preserving spacing for shout).
	RawArgs string
	// Fields holds the key=value words of Args. It is nil unless every word of
	// Args has that form.
	Fields map[string]string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	cmd, rest, found := strings.Cut(line, " ")
	res := ParseResult{Command: strings.ToLower(cmd)}
	if !found {
		return res
	}

	res.RawArgs = strings.TrimSpace(rest)
	if res.RawArgs != "" {
		res.Args = strings.Fields(res.RawArgs)
		res.Fields = parseFields(res.Args)
	}
	return res
}

func parseFields(words []string) map[string]string {
	fields := make(map[string]string, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil
		}
		fields[k] = v
	}
	return fields
}
