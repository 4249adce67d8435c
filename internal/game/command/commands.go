// Package command provides the command registry, parser, and built-in command
// definitions of the line protocol.
package command

import "github.com/cory-johannsen/hysbakstryd/internal/game/session"

// Categories for organizing commands.
const (
	CategoryCommunication = "communication"
	CategoryElevator      = "elevator"
	CategorySystem        = "system"
)

// Handler identifiers. Game handlers are the session dispatch command names;
// the rest are served by the frontend without touching the registry state.
const (
	HandlerShout        = session.CmdShout
	HandlerSetLevel     = session.CmdSetLevel
	HandlerResetLevels  = session.CmdResetLevels
	HandlerOpenDoor     = session.CmdOpenDoor
	HandlerCloseDoor    = session.CmdCloseDoor
	HandlerSetDirection = session.CmdSetDirection

	HandlerHelp   = "help"
	HandlerStatus = "status"
	HandlerWho    = "who"
	HandlerQuit   = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument syntax, e.g. "level <0-9>".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command.
	Category string
	// Handler maps to the session dispatch command or a local handler.
	Handler string
}

// IsGame reports whether the command is routed to session dispatch.
func (c *Command) IsGame() bool {
	switch c.Handler {
	case HandlerShout, HandlerSetLevel, HandlerResetLevels,
		HandlerOpenDoor, HandlerCloseDoor, HandlerSetDirection:
		return true
	}
	return false
}

// BuiltinCommands returns all built-in commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "shout", Aliases: []string{"say", "'"}, Usage: "shout <text> | shout key=value ...", Help: "Send a message to every player", Category: CategoryCommunication, Handler: HandlerShout},

		{Name: "level", Aliases: []string{"lvl", "set_level"}, Usage: "level <0-9>", Help: "Add a level to your stops", Category: CategoryElevator, Handler: HandlerSetLevel},
		{Name: "reset", Aliases: []string{"reset_levels"}, Usage: "reset", Help: "Clear all your stops", Category: CategoryElevator, Handler: HandlerResetLevels},
		{Name: "open", Aliases: []string{"open_door"}, Usage: "open <up|down>", Help: "Open the door for travel up or down", Category: CategoryElevator, Handler: HandlerOpenDoor},
		{Name: "close", Aliases: []string{"close_door"}, Usage: "close", Help: "Close the door", Category: CategoryElevator, Handler: HandlerCloseDoor},
		{Name: "direction", Aliases: []string{"dir", "set_direction"}, Usage: "direction <up|down|halt>", Help: "Set your travel direction", Category: CategoryElevator, Handler: HandlerSetDirection},

		{Name: "status", Aliases: []string{"me"}, Usage: "status", Help: "Show your current state", Category: CategorySystem, Handler: HandlerStatus},
		{Name: "who", Usage: "who", Help: "List connected players", Category: CategorySystem, Handler: HandlerWho},
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Help: "Show this list", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "logout"}, Usage: "quit", Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
