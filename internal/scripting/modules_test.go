package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hysbakstryd/internal/scripting"
)

func TestEngineLog_AllLevels(t *testing.T) {
	e, logs := newTestEngine(t, 0)
	require.NoError(t, e.LoadString(`
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`))
	_, err := e.CallHook("do_all_logs")
	require.NoError(t, err)

	for msg, lvl := range map[string]string{"d": "debug", "i": "info", "w": "warn", "e": "error"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, lvl, entries[0].Level.String())
		assert.Equal(t, "lua", entries[0].ContextMap()["source"])
	}
}

func TestEngineBroadcast_InvokesCallback(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	var got [][2]string
	e.Broadcast = func(msgType, text string) {
		got = append(got, [2]string{msgType, text})
	}
	require.NoError(t, e.LoadString(`
		function announce()
			engine.broadcast("NEWS", "doors closing")
			engine.broadcast("PING")
		end
	`))
	_, err := e.CallHook("announce")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"NEWS", "doors closing"}, {"PING", ""}}, got)
}

func TestEngineBroadcast_NilCallbackIsNoop(t *testing.T) {
	e, logs := newTestEngine(t, 0)
	require.NoError(t, e.LoadString(`function announce() engine.broadcast("NEWS", "x") return true end`))
	_, err := e.CallHook("announce")
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestEngineSchedule(t *testing.T) {
	e, logs := newTestEngine(t, 0)
	type call struct {
		delay int
		hook  string
	}
	var got []call
	e.Schedule = func(delay int, hook string) { got = append(got, call{delay, hook}) }
	require.NoError(t, e.LoadString(`
		function plan() engine.schedule(3, "later") end
		function bad() engine.schedule(-1, "later") end
	`))

	_, err := e.CallHook("plan")
	require.NoError(t, err)
	assert.Equal(t, []call{{3, "later"}}, got)

	_, err = e.CallHook("bad")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestPropertyEngineRoundTripsStrings(t *testing.T) {
	e := scripting.NewEngine(0, zap.NewNop())
	defer e.Close()
	require.NoError(t, e.LoadString(`function echo(s) return s end`))

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		ret, err := e.CallHook("echo", lua.LString(s))
		require.NoError(t, err)
		require.Equal(t, s, ret.String())
	})
}
