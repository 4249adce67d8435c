package session

import (
	"fmt"
	"maps"
	"reflect"

	"go.uber.org/zap"
)

// DefaultVersion is the version tag of a registry built without rules.
const DefaultVersion = "0.0.4"

// Schema describes one generation of GameClient: its version tag and the
// extra attributes it declares, each with a default value.
//
// Attribute defaults must be scalars (bool, int, float64 or string); the
// default's Go type is the attribute's declared type.
type Schema struct {
	Version    string
	Attributes map[string]any
}

// Validate reports the first attribute whose default is not a supported scalar.
func (s Schema) Validate() error {
	for k, v := range s.Attributes {
		switch v.(type) {
		case bool, int, float64, string:
		default:
			return fmt.Errorf("attribute %q: unsupported default type %T", k, v)
		}
	}
	return nil
}

func (s Schema) defaults() map[string]any {
	if s.Attributes == nil {
		return make(map[string]any)
	}
	return maps.Clone(s.Attributes)
}

func sameType(a, b any) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// migrateClient builds old's successor under schema: fixed fields are copied,
// attributes the schema still declares are carried over, dropped attributes are
// discarded and new ones keep their defaults. old is not modified.
//
// Postcondition: Returns the new client, or ErrIncompatibleAttribute when a
// carried attribute's type differs from the schema's default.
func migrateClient(old *GameClient, schema Schema, sink *zap.Logger) (*GameClient, error) {
	fresh, _ := newGameClient(old.name, schema, nil, sink)

	for k, def := range schema.Attributes {
		v, ok := old.attrs[k]
		if !ok {
			continue
		}
		if !sameType(def, v) {
			return nil, fmt.Errorf("%w: client %q attribute %q is %T, schema %s declares %T",
				ErrIncompatibleAttribute, old.name, k, v, schema.Version, def)
		}
		fresh.attrs[k] = v
	}

	fresh.online = old.online
	fresh.level = old.level
	fresh.levels = old.levels
	fresh.direction = old.direction
	fresh.door = old.door
	return fresh, nil
}
