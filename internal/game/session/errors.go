package session

import "errors"

// ErrWrongPassword is returned when a known username registers with a
// password that does not match its stored hash.
var ErrWrongPassword = errors.New("wrong password")

// ErrUnknownConnection is returned when an operation names a connection
// handle that has no binding.
var ErrUnknownConnection = errors.New("unknown connection")

// ErrInvalidLevel is returned when a level is outside [0, MaxLevels).
var ErrInvalidLevel = errors.New("invalid level")

// ErrInvalidDirection is returned when a direction is not allowed by the operation.
var ErrInvalidDirection = errors.New("invalid direction")

// ErrUnknownCommand is returned when Dispatch receives a command it cannot route.
var ErrUnknownCommand = errors.New("unknown command")

// ErrInvalidArgument is returned when a command argument is missing or mistyped.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrIncompatibleAttribute is returned by Migrate when a carried-over client
// attribute does not match the type the new schema declares for it.
var ErrIncompatibleAttribute = errors.New("incompatible attribute")
