package store

import (
	"context"
	"time"

	"github.com/matoous/changelog/internal/ids"
	"github.com/matoous/changelog/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Entries() Entries
	// HealthPing verifies the backend is reachable.
	HealthPing(ctx context.Context) error
	Close() error
}

// Entries is the append-only changelog repository.
type Entries interface {
	// Add assigns a fresh id, inserts the entry and returns the persisted row,
	// including database-assigned timestamps. Caller supplied ID and timestamps
	// are ignored.
	Add(ctx context.Context, e *model.Entry) (*model.Entry, error)
	// List returns entries newest first. An empty changelog yields an empty,
	// non-nil slice.
	List(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error)
}

// Timeouts bound connection acquisition and statement execution.
// Zero disables the corresponding limit.
type Timeouts struct {
	Acquire time.Duration
	Query   time.Duration
}

// Options are shared by every driver.
type Options struct {
	IDs      ids.Generator
	Timeouts Timeouts
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.IDs == nil {
		o.IDs = ids.ULID{}
	}
	return o
}
