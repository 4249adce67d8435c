package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine owns one sandboxed LState holding a rules generation's scripts and
// exposes hook dispatch.
//
// Engine is safe for concurrent use; a mutex serializes every execution on the
// single LState. Callbacks run while that mutex is held and must not call back
// into the same Engine.
type Engine struct {
	mu        sync.Mutex
	L         *lua.LState
	cancel    context.CancelFunc
	instLimit int
	logger    *zap.Logger
	closed    bool

	// Injected after construction. nil = no-op in engine.* modules.
	Broadcast func(msgType, text string)
	Schedule  func(delay int, hook string)
}

// NewEngine creates an Engine with an empty sandboxed VM and the engine.*
// modules registered.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a non-nil Engine ready for LoadDir.
func NewEngine(instLimit int, logger *zap.Logger) *Engine {
	L, cancel := NewSandboxedState(instLimit)
	e := &Engine{
		L:         L,
		cancel:    cancel,
		instLimit: instLimit,
		logger:    logger,
	}
	e.RegisterModules(L)
	return e
}

// LoadDir executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Returns the number of files loaded, or an error naming the
// first file that failed; files before it stay loaded.
func (e *Engine) LoadDir(scriptDir string) (int, error) {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, ent := range entries {
		if !ent.IsDir() && filepath.Ext(ent.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, ent.Name()))
		}
	}
	sort.Strings(luaFiles)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, fmt.Errorf("scripting: engine closed")
	}
	for i, path := range luaFiles {
		e.rebudget()
		if err := e.L.DoFile(path); err != nil {
			return i, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	return len(luaFiles), nil
}

// LoadString executes src as a chunk. Used for inline rules and tests.
func (e *Engine) LoadString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("scripting: engine closed")
	}
	e.rebudget()
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading chunk: %w", err)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (e *Engine) HasHook(hook string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.L.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if the
// hook is not defined or the engine is closed. Lua runtime errors, including
// an exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (e *Engine) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.logger.Debug("scripting: hook called on closed engine", zap.String("hook", hook))
		return lua.LNil, nil
	}

	fn := e.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	e.rebudget()
	if err := e.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	return ret, nil
}

// Close releases the VM. Further calls are no-ops. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.cancel()
	e.L.Close()
}

// rebudget replaces the instruction budget. Caller must hold e.mu.
func (e *Engine) rebudget() {
	e.cancel()
	e.cancel = withBudget(e.L, e.instLimit)
}
