package session

import (
	"fmt"
	"maps"
	"math/bits"

	"go.uber.org/zap"
)

// MaxLevels is the exclusive upper bound of a selectable level.
const MaxLevels = 10

// Result kinds returned by GameClient operations.
const (
	KindReshout   = "RESHOUT"
	KindLevels    = "LEVELS"
	KindDoor      = "DOOR"
	KindDirection = "DIRECTION"
)

// Direction is the travel direction of a player's car.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionHalt Direction = "halt"
)

// DoorState is whether a player's door is open.
type DoorState string

const (
	DoorOpen   DoorState = "open"
	DoorClosed DoorState = "closed"
)

// LevelSet is a set of levels in [0, MaxLevels), one bit per level.
type LevelSet uint16

// Has reports whether level is in the set.
func (s LevelSet) Has(level int) bool {
	return level >= 0 && level < MaxLevels && s&(1<<level) != 0
}

// With returns the set with level added.
//
// Precondition: 0 <= level < MaxLevels.
func (s LevelSet) With(level int) LevelSet {
	return s | 1<<level
}

// Len returns the number of levels in the set.
func (s LevelSet) Len() int {
	return bits.OnesCount16(uint16(s))
}

// Levels returns the members in ascending order. The result is never nil.
func (s LevelSet) Levels() []int {
	out := make([]int, 0, s.Len())
	for l := 0; l < MaxLevels; l++ {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Result is the (kind, payload) pair a GameClient operation hands back for
// delivery to the client and its observers.
type Result struct {
	Kind    string
	Payload any
}

// GameClient is the per-user game state.
//
// A GameClient is owned by exactly one Registry. Its mutators are unexported,
// so every change goes through Registry.Dispatch under the registry lock. The
// getters read unguarded fields; code that may race with Dispatch reads a
// snapshot from Registry.View instead.
type GameClient struct {
	name      string
	online    bool
	level     int // legacy single-level field; never read by any operation
	levels    LevelSet
	direction Direction
	door      DoorState
	attrs     map[string]any
	sink      *zap.Logger
}

// newGameClient builds a client with fresh defaults and the schema's attributes,
// overridden by any well-typed, declared entries of extra.
//
// Postcondition: Returns the client and the keys of extra that were ignored.
func newGameClient(name string, schema Schema, extra map[string]any, sink *zap.Logger) (*GameClient, []string) {
	if sink == nil {
		sink = zap.NewNop()
	}
	c := &GameClient{
		name:      name,
		online:    true,
		level:     0,
		direction: DirectionHalt,
		door:      DoorClosed,
		attrs:     schema.defaults(),
		sink:      sink,
	}

	var ignored []string
	for k, v := range extra {
		def, declared := schema.Attributes[k]
		if !declared || !sameType(def, v) {
			ignored = append(ignored, k)
			continue
		}
		c.attrs[k] = v
	}
	return c, ignored
}

// Name returns the username owning this state.
func (c *GameClient) Name() string { return c.name }

// Online reports whether the user currently has a bound connection.
func (c *GameClient) Online() bool { return c.online }

// Level returns the legacy single-level field.
func (c *GameClient) Level() int { return c.level }

// Levels returns the selected levels in ascending order.
func (c *GameClient) Levels() []int { return c.levels.Levels() }

// Direction returns the current direction.
func (c *GameClient) Direction() Direction { return c.direction }

// Door returns the current door state.
func (c *GameClient) Door() DoorState { return c.door }

// Attr returns the named extra attribute.
func (c *GameClient) Attr(key string) (any, bool) {
	v, ok := c.attrs[key]
	return v, ok
}

// ClientView is an immutable snapshot of a GameClient.
type ClientView struct {
	Name       string         `json:"name"`
	Online     bool           `json:"online"`
	Level      int            `json:"level"`
	Levels     []int          `json:"levels"`
	Direction  Direction      `json:"direction"`
	Door       DoorState      `json:"door"`
	Attributes map[string]any `json:"attributes"`
}

// View returns a snapshot of the client's fields.
func (c *GameClient) View() ClientView {
	return ClientView{
		Name:       c.name,
		Online:     c.online,
		Level:      c.level,
		Levels:     c.levels.Levels(),
		Direction:  c.direction,
		Door:       c.door,
		Attributes: maps.Clone(c.attrs),
	}
}

// shout echoes fields back for broadcast.
func (c *GameClient) shout(fields map[string]any) Result {
	c.sink.Debug("shout", zap.String("name", c.name), zap.Any("fields", fields))
	return Result{Kind: KindReshout, Payload: maps.Clone(fields)}
}

// setLevel adds level to the selected set. Adding a present level is a no-op.
//
// Postcondition: Returns the current set, or ErrInvalidLevel with the set unchanged.
func (c *GameClient) setLevel(level int) (Result, error) {
	if level < 0 || level >= MaxLevels {
		c.sink.Warn("rejected level", zap.Int("level", level))
		return Result{}, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidLevel, level, MaxLevels)
	}
	c.levels = c.levels.With(level)
	c.sink.Debug("set level", zap.Int("level", level), zap.Ints("levels", c.levels.Levels()))
	return Result{Kind: KindLevels, Payload: c.levels.Levels()}, nil
}

// resetLevels clears the selected set.
func (c *GameClient) resetLevels() Result {
	c.levels = 0
	c.sink.Debug("reset levels")
	return Result{Kind: KindLevels, Payload: c.levels.Levels()}
}

// openDoor opens the door for travel in direction, which must be up or down.
//
// Postcondition: door is open and direction recorded, or ErrInvalidDirection with no change.
func (c *GameClient) openDoor(direction Direction) (Result, error) {
	if direction != DirectionUp && direction != DirectionDown {
		c.sink.Warn("rejected door direction", zap.String("direction", string(direction)))
		return Result{}, fmt.Errorf("%w: cannot open door towards %q", ErrInvalidDirection, direction)
	}
	c.direction = direction
	c.door = DoorOpen
	c.sink.Debug("open door", zap.String("direction", string(direction)))
	return Result{Kind: KindDoor, Payload: c.door}, nil
}

// closeDoor closes the door. The direction is left as it was.
func (c *GameClient) closeDoor() Result {
	c.door = DoorClosed
	c.sink.Debug("close door")
	return Result{Kind: KindDoor, Payload: c.door}
}

// setDirection sets the direction to up, down or halt.
//
// Postcondition: Returns the new direction, or ErrInvalidDirection with no change.
func (c *GameClient) setDirection(direction Direction) (Result, error) {
	switch direction {
	case DirectionUp, DirectionDown, DirectionHalt:
	default:
		c.sink.Warn("rejected direction", zap.String("direction", string(direction)))
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	c.direction = direction
	c.sink.Debug("set direction", zap.String("direction", string(direction)))
	return Result{Kind: KindDirection, Payload: c.direction}, nil
}
