// Package handlers provides the Telnet session handler: login, the command
// loop, and the connection directory that delivers registry messages.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hysbakstryd/internal/frontend/telnet"
	"github.com/cory-johannsen/hysbakstryd/internal/game/command"
	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

// MaxLoginAttempts is the number of wrong passwords a connection may send
// before it is closed.
const MaxLoginAttempts = 3

// maxUsernameLen bounds usernames; they end up in diagnostic file names.
const maxUsernameLen = 32

// Game is the registry surface the handler drives.
type Game interface {
	Version() string
	Register(conn session.ConnID, username, password string, attrs map[string]any) (session.ClientView, error)
	UnregisterIfBound(conn session.ConnID) bool
	Dispatch(conn session.ConnID, command string, args session.Args) (session.Result, error)
	View(conn session.ConnID) (session.ClientView, bool)
	OnlineUsers() []string
}

// GameHandler implements telnet.SessionHandler for players.
type GameHandler struct {
	game     Game
	dir      *ConnDirectory
	commands *command.Registry
	logger   *zap.Logger
}

// NewGameHandler creates a handler that registers players with game and
// delivers their messages through dir.
//
// Precondition: game, dir and logger must be non-nil.
func NewGameHandler(game Game, dir *ConnDirectory, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		game:     game,
		dir:      dir,
		commands: command.DefaultRegistry(),
		logger:   logger,
	}
}

// errQuit ends a session cleanly.
var errQuit = errors.New("quit")

// HandleSession implements telnet.SessionHandler.
//
// Postcondition: conn is no longer bound in the registry and is removed from
// the directory.
func (h *GameHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	start := time.Now()
	id := h.dir.Add(conn)
	logger := h.logger.With(zap.String("conn", string(id)))
	defer func() {
		if h.game.UnregisterIfBound(id) {
			logger.Info("unregistered on disconnect", zap.Duration("session_duration", time.Since(start)))
		}
		h.dir.Remove(id)
	}()

	if err := conn.WriteLines(RenderBanner(h.game.Version())...); err != nil {
		return fmt.Errorf("sending banner: %w", err)
	}

	view, err := h.login(ctx, conn, id)
	if errors.Is(err, errQuit) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("player logged in", zap.String("username", view.Name))

	err = h.commandLoop(ctx, conn, id)
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// login prompts for credentials until a Register succeeds.
func (h *GameHandler) login(ctx context.Context, conn *telnet.Conn, id session.ConnID) (session.ClientView, error) {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return session.ClientView{}, err
		}
		if err := conn.WritePrompt("username: "); err != nil {
			return session.ClientView{}, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if h.rejectLong(conn, err) {
			continue
		}
		if err != nil {
			return session.ClientView{}, fmt.Errorf("reading username: %w", err)
		}
		username := strings.TrimSpace(line)
		switch {
		case username == "":
			continue
		case username == "quit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			return session.ClientView{}, errQuit
		case !validUsername(username) || username == session.MasterID:
			_ = conn.WriteLine(telnet.Colorize(telnet.Red,
				fmt.Sprintf("Usernames are 1-%d letters, digits, '-' or '_'.", maxUsernameLen)))
			continue
		}

		if err := conn.WritePrompt("password: "); err != nil {
			return session.ClientView{}, fmt.Errorf("writing prompt: %w", err)
		}
		password, err := conn.ReadPassword()
		if h.rejectLong(conn, err) {
			continue
		}
		if err != nil {
			return session.ClientView{}, fmt.Errorf("reading password: %w", err)
		}

		view, err := h.game.Register(id, username, password, nil)
		if errors.Is(err, session.ErrWrongPassword) {
			failures++
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Wrong password."))
			if failures >= MaxLoginAttempts {
				return session.ClientView{}, fmt.Errorf("login for %q: %w", username, err)
			}
			continue
		}
		if err != nil {
			return session.ClientView{}, fmt.Errorf("registering %q: %w", username, err)
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Green, "Logged in as "+view.Name+". Type 'help' for commands."))
		return view, nil
	}
}

// commandLoop reads and executes commands until quit, disconnect or shutdown.
func (h *GameHandler) commandLoop(ctx context.Context, conn *telnet.Conn, id session.ConnID) error {
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Server shutting down. Goodbye!"))
			return ctx.Err()
		default:
		}

		if err := conn.WritePrompt("> "); err != nil {
			return fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if h.rejectLong(conn, err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if err := h.execute(conn, id, line); err != nil {
			return err
		}
	}
}

// execute runs one input line. It returns a non-nil error only when the
// session must end.
func (h *GameHandler) execute(conn *telnet.Conn, id session.ConnID, line string) error {
	p, cmd, ok := h.commands.Lookup(line)
	if !ok {
		if p.Command != "" {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red,
				fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", p.Command)))
		}
		return nil
	}

	switch cmd.Handler {
	case command.HandlerQuit:
		_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
		return errQuit
	case command.HandlerHelp:
		return conn.WriteLines(RenderHelp(h.commands.HelpText())...)
	case command.HandlerWho:
		return conn.WriteLine(RenderMessage(session.Message{Type: KindWho, Payload: h.game.OnlineUsers()}))
	case command.HandlerStatus:
		view, ok := h.game.View(id)
		if !ok {
			return h.evicted(conn)
		}
		return conn.WriteLine(RenderMessage(session.Message{Type: KindStatus, Payload: view}))
	}

	args, err := command.BuildArgs(cmd, p)
	if err != nil {
		return conn.WriteLine(RenderError(err))
	}
	if _, err := h.game.Dispatch(id, cmd.Handler, args); err != nil {
		if errors.Is(err, session.ErrUnknownConnection) {
			return h.evicted(conn)
		}
		return conn.WriteLine(RenderError(err))
	}
	return nil
}

// rejectLong reports whether err is an over-long line, telling the player so.
// The session carries on with the next line.
func (h *GameHandler) rejectLong(conn *telnet.Conn, err error) bool {
	if !errors.Is(err, telnet.ErrLineTooLong) {
		return false
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.Red,
		fmt.Sprintf("Input longer than %d bytes was ignored.", telnet.MaxLineLength)))
	return true
}

// evicted ends a session whose binding was taken over by a newer login.
func (h *GameHandler) evicted(conn *telnet.Conn) error {
	_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "This session was taken over by another login."))
	return errQuit
}

func validUsername(s string) bool {
	if len(s) == 0 || len(s) > maxUsernameLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
