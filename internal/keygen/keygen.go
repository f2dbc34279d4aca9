// Package keygen creates identifiers for new store entries.
package keygen

import "github.com/google/uuid"

// Generator creates collision resistant keys.
type Generator interface {
	CreateKey() string
}

// UUID generates random (version 4) UUID keys.
type UUID struct{}

func (UUID) CreateKey() string { return uuid.NewString() }

// Func adapts a function to Generator.
type Func func() string

func (f Func) CreateKey() string { return f() }
