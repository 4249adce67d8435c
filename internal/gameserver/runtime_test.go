package gameserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/hysbakstryd/internal/game/session"
)

type recordingDeliverer struct {
	mu   sync.Mutex
	msgs map[session.ConnID][]session.Message
}

func (d *recordingDeliverer) Deliver(conn session.ConnID, msg session.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.msgs == nil {
		d.msgs = make(map[session.ConnID][]session.Message)
	}
	d.msgs[conn] = append(d.msgs[conn], msg)
	return nil
}

func (d *recordingDeliverer) to(conn session.ConnID) []session.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]session.Message(nil), d.msgs[conn]...)
}

type healthLog struct {
	mu     sync.Mutex
	states []bool
}

func (h *healthLog) SetServing(serving bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, serving)
}

func (h *healthLog) all() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.states...)
}

func writeManifest(t *testing.T, dir, manifest string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

func newTestRuntime(t *testing.T, rulesPath string) (*Runtime, *recordingDeliverer, *healthLog) {
	t.Helper()
	d := &recordingDeliverer{}
	h := &healthLog{}
	rt, err := NewRuntime(RuntimeOptions{
		RulesPath:  rulesPath,
		BcryptCost: bcrypt.MinCost,
		Deliverer:  d,
		Logger:     zaptest.NewLogger(t),
		Health:     h,
	})
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt, d, h
}

func TestNewRuntime_WithoutRules(t *testing.T) {
	rt, _, h := newTestRuntime(t, "")
	assert.Equal(t, session.DefaultVersion, rt.Version())
	assert.Equal(t, []bool{true}, h.all())
}

func TestNewRuntime_BadRules(t *testing.T) {
	_, err := NewRuntime(RuntimeOptions{RulesPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestRuntime_ReloadPreservesSessions(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "version: \"1\"\ngreeting: \"v1 {name}\"\nattributes:\n  observer: false\n")
	rt, d, h := newTestRuntime(t, path)

	_, err := rt.Register("c1", "alice", "pw", map[string]any{"observer": true})
	require.NoError(t, err)
	_, err = rt.Dispatch("c1", session.CmdSetLevel, session.Args{"level": 2})
	require.NoError(t, err)
	_, err = rt.Dispatch("c1", session.CmdSetLevel, session.Args{"level": 5})
	require.NoError(t, err)
	_, err = rt.Register("c2", "bob", "pw", nil)
	require.NoError(t, err)
	_, err = rt.Dispatch("c2", session.CmdOpenDoor, session.Args{"direction": "up"})
	require.NoError(t, err)
	require.NoError(t, rt.Unregister("c2"))
	rt.Tick()
	rt.Tick()
	old := rt.Registry()

	writeManifest(t, dir, "version: \"2\"\ngreeting: \"v2 {name}\"\nattributes:\n  observer: false\n  score: 0\n")
	require.NoError(t, rt.Reload())

	assert.Equal(t, "2", rt.Version())
	assert.Equal(t, 1, rt.Reloads())
	assert.Equal(t, 0, old.ClientCount())
	assert.Equal(t, uint64(2), rt.Registry().CurrentTick())
	assert.Equal(t, []bool{true, false, true}, h.all())

	alice, ok := rt.View("c1")
	require.True(t, ok)
	assert.Equal(t, []int{2, 5}, alice.Levels)
	assert.Equal(t, true, alice.Attributes["observer"])
	assert.Equal(t, 0, alice.Attributes["score"])

	bob, err := rt.Register("c3", "bob", "pw", nil)
	require.NoError(t, err)
	assert.Equal(t, session.DoorOpen, bob.Door)
	assert.Equal(t, session.DirectionUp, bob.Direction)
	msgs := d.to("c3")
	require.NotEmpty(t, msgs)
	assert.Equal(t, "v2 bob", msgs[len(msgs)-1].Payload)

	assert.Equal(t, []string{"alice", "bob"}, rt.OnlineUsers())
}

func TestRuntime_FailedReloadKeepsServing(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "version: \"1\"\nattributes:\n  score: 0\n")
	rt, _, h := newTestRuntime(t, path)
	_, err := rt.Register("c1", "alice", "pw", map[string]any{"score": 4})
	require.NoError(t, err)

	writeManifest(t, dir, "version: [")
	assert.Error(t, rt.Reload())
	assert.Equal(t, "1", rt.Version())

	writeManifest(t, dir, "version: \"2\"\nattributes:\n  score: \"none\"\n")
	err = rt.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrIncompatibleAttribute)
	assert.Equal(t, "1", rt.Version())
	assert.Equal(t, 0, rt.Reloads())
	assert.Equal(t, []bool{true, false, true}, h.all())

	v, ok := rt.View("c1")
	require.True(t, ok)
	assert.Equal(t, 4, v.Attributes["score"])
	_, err = rt.Dispatch("c1", session.CmdSetLevel, session.Args{"level": 1})
	require.NoError(t, err)
}

func TestRuntime_ReloadSerializesWithOperations(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "version: \"1\"\n")
	rt, _, _ := newTestRuntime(t, path)

	const users = 8
	for i := 0; i < users; i++ {
		_, err := rt.Register(session.ConnID(fmt.Sprintf("c%d", i)), fmt.Sprintf("u%d", i), "pw", nil)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := session.ConnID(fmt.Sprintf("c%d", i))
			for n := 0; ctx.Err() == nil && n < 50; n++ {
				_, err := rt.Dispatch(conn, session.CmdSetLevel, session.Args{"level": n % session.MaxLevels})
				if err != nil {
					t.Errorf("dispatch during reload: %v", err)
					return
				}
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, rt.Reload())
	}
	wg.Wait()

	assert.Equal(t, 5, rt.Reloads())
	assert.Equal(t, users, rt.Registry().ClientCount())
	assert.Equal(t, users, rt.Registry().BoundCount())
	for i := 0; i < users; i++ {
		v, ok := rt.View(session.ConnID(fmt.Sprintf("c%d", i)))
		require.True(t, ok)
		assert.Len(t, v.Levels, session.MaxLevels)
	}
}

func TestRuntime_PauseResume(t *testing.T) {
	rt, _, _ := newTestRuntime(t, "")
	rt.Pause()
	assert.False(t, rt.Tick())
	rt.Resume()
	assert.True(t, rt.Tick())
	assert.Equal(t, uint64(1), rt.Registry().CurrentTick())
}

func TestRuntime_BroadcastAndUnregisterIfBound(t *testing.T) {
	rt, d, _ := newTestRuntime(t, "")
	_, err := rt.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)

	rt.Broadcast("NEWS", "hi", "")
	require.Len(t, d.to("c1"), 1)
	assert.Equal(t, session.MasterID, d.to("c1")[0].From)

	assert.True(t, rt.UnregisterIfBound("c1"))
	assert.False(t, rt.UnregisterIfBound("c1"))
	_, ok := rt.View("c1")
	assert.False(t, ok)
}
