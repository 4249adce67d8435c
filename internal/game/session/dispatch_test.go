package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_UnknownConnection(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Dispatch("ghost", CmdShout, nil)
	assert.ErrorIs(t, err, ErrUnknownConnection)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)
	_, err = r.Dispatch("c1", "teleport", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDispatch_ShoutIsBroadcast(t *testing.T) {
	d := &recordingDeliverer{}
	r := newTestRegistry(t, d)
	_, err := r.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)
	_, err = r.Register("c2", "bob", "pw", nil)
	require.NoError(t, err)

	res, err := r.Dispatch("c1", CmdShout, Args{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, KindReshout, res.Kind)

	for _, conn := range []ConnID{"c1", "c2"} {
		msgs := d.to(conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, Message{Type: KindReshout, Payload: map[string]any{"text": "hello"}, From: "alice"}, msgs[0])
	}
}

func TestDispatch_ResultGoesToCaller(t *testing.T) {
	d := &recordingDeliverer{}
	r := newTestRegistry(t, d)
	_, err := r.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)
	_, err = r.Register("c2", "bob", "pw", nil)
	require.NoError(t, err)

	res, err := r.Dispatch("c1", CmdSetLevel, Args{"level": float64(4)})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Payload)

	require.Len(t, d.to("c1"), 1)
	assert.Equal(t, KindLevels, d.to("c1")[0].Type)
	assert.Empty(t, d.to("c2"))
}

func TestDispatch_EveryCommand(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)

	steps := []struct {
		cmd  string
		args Args
		want Result
	}{
		{CmdSetLevel, Args{"level": 2}, Result{KindLevels, []int{2}}},
		{CmdSetLevel, Args{"level": int64(5)}, Result{KindLevels, []int{2, 5}}},
		{CmdResetLevels, nil, Result{KindLevels, []int{}}},
		{CmdOpenDoor, Args{"direction": "up"}, Result{KindDoor, DoorOpen}},
		{CmdCloseDoor, nil, Result{KindDoor, DoorClosed}},
		{CmdSetDirection, Args{"direction": "halt"}, Result{KindDirection, DirectionHalt}},
	}
	for _, s := range steps {
		t.Run(s.cmd, func(t *testing.T) {
			res, err := r.Dispatch("c1", s.cmd, s.args)
			require.NoError(t, err)
			assert.Equal(t, s.want, res)
		})
	}
}

func TestDispatch_InvalidArguments(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Register("c1", "alice", "pw", nil)
	require.NoError(t, err)

	cases := []struct {
		name string
		cmd  string
		args Args
		want error
	}{
		{"missing level", CmdSetLevel, nil, ErrInvalidArgument},
		{"fractional level", CmdSetLevel, Args{"level": 2.5}, ErrInvalidArgument},
		{"string level", CmdSetLevel, Args{"level": "2"}, ErrInvalidArgument},
		{"level out of range", CmdSetLevel, Args{"level": 10}, ErrInvalidLevel},
		{"missing direction", CmdOpenDoor, Args{}, ErrInvalidArgument},
		{"numeric direction", CmdSetDirection, Args{"direction": 1}, ErrInvalidArgument},
		{"sideways door", CmdOpenDoor, Args{"direction": "sideways"}, ErrInvalidDirection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Dispatch("c1", tc.cmd, tc.args)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	v, ok := r.View("alice")
	require.True(t, ok)
	assert.Empty(t, v.Levels)
	assert.Equal(t, DoorClosed, v.Door)
	assert.Equal(t, DirectionHalt, v.Direction)
}
