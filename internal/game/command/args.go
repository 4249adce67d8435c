package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

// BuildArgs converts the text arguments of a game command into dispatch
// arguments.
//
// Precondition: cmd.IsGame() is true.
// Postcondition: Returns the arguments, or an error wrapping
// session.ErrInvalidArgument when the text cannot be converted.
func BuildArgs(cmd *Command, p ParseResult) (session.Args, error) {
	switch cmd.Handler {
	case HandlerShout:
		if p.Fields != nil {
			args := make(session.Args, len(p.Fields))
			for k, v := range p.Fields {
				args[k] = v
			}
			return args, nil
		}
		return session.Args{"text": p.RawArgs}, nil
	case HandlerSetLevel:
		word, err := single(cmd, p)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(word)
		if err != nil {
			return nil, fmt.Errorf("%w: level %q is not a number", session.ErrInvalidArgument, word)
		}
		return session.Args{"level": n}, nil
	case HandlerOpenDoor, HandlerSetDirection:
		word, err := single(cmd, p)
		if err != nil {
			return nil, err
		}
		return session.Args{"direction": strings.ToLower(word)}, nil
	case HandlerResetLevels, HandlerCloseDoor:
		return session.Args{}, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a game command", session.ErrUnknownCommand, cmd.Name)
	}
}

func single(cmd *Command, p ParseResult) (string, error) {
	if len(p.Args) != 1 {
		return "", fmt.Errorf("%w: usage: %s", session.ErrInvalidArgument, cmd.Usage)
	}
	return p.Args[0], nil
}
