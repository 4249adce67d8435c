package session

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Command names accepted by Dispatch.
const (
	CmdShout        = "shout"
	CmdSetLevel     = "set_level"
	CmdResetLevels  = "reset_levels"
	CmdOpenDoor     = "open_door"
	CmdCloseDoor    = "close_door"
	CmdSetDirection = "set_direction"
)

// Args are the named arguments of a dispatched command.
type Args map[string]any

// Dispatch routes command to the GameClient bound to conn. A shout result is
// broadcast to every bound connection; every other result is delivered to conn.
//
// Postcondition: Returns the operation's Result, or ErrUnknownConnection,
// ErrUnknownCommand, ErrInvalidArgument, ErrInvalidLevel or ErrInvalidDirection
// with the GameClient unchanged.
func (r *Registry) Dispatch(conn ConnID, command string, args Args) (Result, error) {
	r.mu.Lock()
	username, ok := r.connToUser[conn]
	if !ok {
		r.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownConnection, conn)
	}
	res, err := apply(r.clients[username], command, args)
	r.mu.Unlock()

	if err != nil {
		r.logger.Info("command rejected",
			zap.String("username", username),
			zap.String("command", command),
			zap.Error(err),
		)
		return Result{}, err
	}

	if res.Kind == KindReshout {
		r.Broadcast(res.Kind, res.Payload, username)
	} else {
		r.deliver(conn, Message{Type: res.Kind, Payload: res.Payload, From: username})
	}
	return res, nil
}

func apply(c *GameClient, command string, args Args) (Result, error) {
	switch command {
	case CmdShout:
		return c.shout(args), nil
	case CmdSetLevel:
		level, err := intArg(args, "level")
		if err != nil {
			return Result{}, err
		}
		return c.setLevel(level)
	case CmdResetLevels:
		return c.resetLevels(), nil
	case CmdOpenDoor:
		dir, err := stringArg(args, "direction")
		if err != nil {
			return Result{}, err
		}
		return c.openDoor(Direction(dir))
	case CmdCloseDoor:
		return c.closeDoor(), nil
	case CmdSetDirection:
		dir, err := stringArg(args, "direction")
		if err != nil {
			return Result{}, err
		}
		return c.setDirection(Direction(dir))
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

// intArg accepts any integral numeric value, including the float64 that
// JSON decoding produces.
func intArg(args Args, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidArgument, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q must be an integer, got %v", ErrInvalidArgument, key, v)
}

func stringArg(args Args, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrInvalidArgument, key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case Direction:
		return string(s), nil
	}
	return "", fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidArgument, key, v)
}
