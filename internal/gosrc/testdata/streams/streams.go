package streams

import "errors"

// Stream is anything that can report liveness and be closed.
type Stream interface {
	IsOpen() bool
	Close() error
}

// Resettable streams can be reopened after closing.
type Resettable interface {
	IsOpen() bool
	Close() error
	Open() error
}

// SingleUse can be closed once and never reopened.
type SingleUse struct {
	open bool
}

func (s *SingleUse) IsOpen() bool { return s.open }

func (s *SingleUse) Close() error {
	if !s.open {
		return errors.New("already closed")
	}
	s.open = false
	return nil
}

// Multi can be closed and reopened any number of times.
type Multi struct {
	open bool
}

func (m *Multi) IsOpen() bool { return m.open }

func (m *Multi) Close() error {
	m.open = false
	return nil
}

func (m *Multi) Open() error {
	m.open = true
	return nil
}

// Counter has no interface-declared methods at all.
type Counter struct {
	n int
}

func (c *Counter) Add() { c.n++ }
