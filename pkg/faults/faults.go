// Package faults provides lightweight failure values for paths where
// failure is routine rather than exceptional.
//
// A Signal carries only its identifier. It records no stack and compares
// equal to any other Signal with the same identifier, so errors.Is works
// without unwrapping tricks.
package faults

import "errors"

// Signal is a stack-free error identified by a string.
type Signal string

// New returns a Signal with the given identifier.
func New(id string) Signal {
	return Signal(id)
}

// Error returns the identifier.
func (s Signal) Error() string {
	return string(s)
}

// ID returns the identifier.
func (s Signal) ID() string {
	return string(s)
}

// Is reports whether err is, or wraps, a Signal with the given identifier.
func Is(err error, id string) bool {
	var s Signal
	if !errors.As(err, &s) {
		return false
	}
	return s.ID() == id
}
