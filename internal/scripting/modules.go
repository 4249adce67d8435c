package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.broadcast(type, text)
//	engine.schedule(delay, hook)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (e *Engine) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	log := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": e.logger.Debug,
		"info":  e.logger.Info,
		"warn":  e.logger.Warn,
		"error": e.logger.Error,
	} {
		fn := fn
		L.SetField(log, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(engine, "log", log)

	L.SetField(engine, "broadcast", L.NewFunction(func(L *lua.LState) int {
		msgType := L.CheckString(1)
		text := L.OptString(2, "")
		if e.Broadcast != nil {
			e.Broadcast(msgType, text)
		}
		return 0
	}))

	L.SetField(engine, "schedule", L.NewFunction(func(L *lua.LState) int {
		delay := L.CheckInt(1)
		hook := L.CheckString(2)
		if delay < 0 {
			L.ArgError(1, "delay must not be negative")
			return 0
		}
		if e.Schedule != nil {
			e.Schedule(delay, hook)
		}
		return 0
	}))

	L.SetGlobal("engine", engine)
}
