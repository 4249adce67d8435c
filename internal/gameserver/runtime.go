// Package gameserver hosts the running game: the current session registry and
// rules generation, the tick loop, hot reload, and the health endpoint.
package gameserver

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/hysbakstryd/internal/game/rules"
	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

// HealthReporter is told when the runtime stops and resumes serving.
type HealthReporter interface {
	SetServing(serving bool)
}

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// RulesPath is the rules manifest loaded at start and on every Reload.
	// Empty runs without rules: DefaultVersion schema and no hooks.
	RulesPath        string
	InstructionLimit int
	BcryptCost       int
	Deliverer        session.Deliverer
	Sinks            session.SinkProvider
	Logger           *zap.Logger
	Health           HealthReporter
}

// Runtime owns the current registry generation.
//
// Every request path takes the read lock, so operations run concurrently and
// the registry serializes them. Reload takes the write lock, so no operation
// is in flight on either registry while state migrates.
type Runtime struct {
	mu      sync.RWMutex
	reg     *session.Registry
	rules   *rules.Rules
	opts    RuntimeOptions
	logger  *zap.Logger
	reloads int
}

// NewRuntime loads the initial rules generation and builds its registry.
//
// Precondition: opts.Logger may be nil (no-op logger).
// Postcondition: Returns a serving Runtime or a non-nil error.
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	rt := &Runtime{opts: opts, logger: opts.Logger}

	gen, err := rt.loadRules()
	if err != nil {
		return nil, err
	}
	rt.rules = gen
	rt.reg = session.NewRegistry(rt.registryOptions(gen))
	if gen != nil {
		gen.Bind(rt.reg)
	}
	rt.setServing(true)
	return rt, nil
}

func (rt *Runtime) loadRules() (*rules.Rules, error) {
	if rt.opts.RulesPath == "" {
		return nil, nil
	}
	gen, err := rules.Load(rt.opts.RulesPath, rt.opts.InstructionLimit, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return gen, nil
}

func (rt *Runtime) registryOptions(gen *rules.Rules) session.Options {
	opts := session.Options{
		Deliverer:  rt.opts.Deliverer,
		Sinks:      rt.opts.Sinks,
		Logger:     rt.logger,
		BcryptCost: rt.opts.BcryptCost,
	}
	if gen != nil {
		opts.Schema = gen.Schema()
		opts.Hooks = gen
	}
	return opts
}

func (rt *Runtime) setServing(serving bool) {
	if rt.opts.Health != nil {
		rt.opts.Health.SetServing(serving)
	}
}

// Reload loads the rules manifest again and migrates every client into a new
// registry built from it. On failure the current generation keeps serving.
//
// Postcondition: Returns nil with the new generation installed, or an error
// with the old registry and rules unchanged.
func (rt *Runtime) Reload() error {
	start := time.Now()
	gen, err := rt.loadRules()
	if err != nil {
		rt.logger.Error("reload aborted", zap.Error(err))
		return err
	}

	rt.setServing(false)
	defer rt.setServing(true)

	rt.mu.Lock()
	next, err := session.Migrate(rt.reg, rt.registryOptions(gen))
	if err != nil {
		rt.mu.Unlock()
		if gen != nil {
			gen.Close()
		}
		rt.logger.Error("reload aborted", zap.Error(err))
		return fmt.Errorf("reload: %w", err)
	}
	if gen != nil {
		gen.Bind(next)
	}
	old := rt.rules
	rt.reg = next
	rt.rules = gen
	rt.reloads++
	reloads := rt.reloads
	rt.mu.Unlock()

	if old != nil {
		old.Close()
	}
	rt.logger.Info("reload complete",
		zap.String("version", next.Version()),
		zap.Int("reloads", reloads),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Registry returns the current registry generation.
func (rt *Runtime) Registry() *session.Registry {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg
}

// Version returns the current generation's version tag.
func (rt *Runtime) Version() string {
	return rt.Registry().Version()
}

// Reloads returns the number of successful reloads.
func (rt *Runtime) Reloads() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reloads
}

// Register forwards to the current registry.
func (rt *Runtime) Register(conn session.ConnID, username, password string, attrs map[string]any) (session.ClientView, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	c, err := rt.reg.Register(conn, username, password, attrs)
	if err != nil {
		return session.ClientView{}, err
	}
	v, _ := rt.reg.View(c.Name())
	return v, nil
}

// Unregister forwards to the current registry.
func (rt *Runtime) Unregister(conn session.ConnID) error {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg.Unregister(conn)
}

// UnregisterIfBound forwards to the current registry.
func (rt *Runtime) UnregisterIfBound(conn session.ConnID) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg.UnregisterIfBound(conn)
}

// Dispatch forwards to the current registry.
func (rt *Runtime) Dispatch(conn session.ConnID, command string, args session.Args) (session.Result, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg.Dispatch(conn, command, args)
}

// Broadcast forwards to the current registry.
func (rt *Runtime) Broadcast(msgType string, data any, fromID string) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rt.reg.Broadcast(msgType, data, fromID)
}

// Tick advances the current registry.
func (rt *Runtime) Tick() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg.Tick()
}

// Pause pauses the current registry.
func (rt *Runtime) Pause() {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rt.reg.Pause()
}

// Resume resumes the current registry.
func (rt *Runtime) Resume() {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	rt.reg.Resume()
}

// View returns a snapshot of the user bound to conn.
func (rt *Runtime) View(conn session.ConnID) (session.ClientView, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	u, ok := rt.reg.Username(conn)
	if !ok {
		return session.ClientView{}, false
	}
	return rt.reg.View(u)
}

// OnlineUsers returns the connected usernames, sorted.
func (rt *Runtime) OnlineUsers() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.reg.OnlineUsers()
}

// Close releases the current rules generation.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.rules != nil {
		rt.rules.Close()
		rt.rules = nil
	}
}
