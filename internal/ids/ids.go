// Package ids generates entry identifiers. Generators are safe for concurrent
// use without coordination: each call derives its value from the wall clock and
// fresh randomness, never from a shared counter.
package ids

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

const (
	StrategyULID   = "ulid"
	StrategyUUIDv7 = "uuidv7"
)

// Generator produces globally unique, time-ordered identifiers.
type Generator interface {
	NewID() (string, error)
}

// New returns the generator for the named strategy.
func New(strategy string) (Generator, error) {
	switch strategy {
	case "", StrategyULID:
		return ULID{}, nil
	case StrategyUUIDv7:
		return UUIDv7{}, nil
	default:
		return nil, fmt.Errorf("unsupported id strategy: %s", strategy)
	}
}

// ULID yields 26 character lexicographically sortable identifiers with
// millisecond precision and 80 bits of crypto/rand entropy.
type ULID struct {
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (g ULID) NewID() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	id, err := ulid.New(ulid.Timestamp(now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// UUIDv7 yields RFC 9562 version 7 UUIDs.
type UUIDv7 struct{}

func (UUIDv7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}
	return id.String(), nil
}
