package store

import (
	"context"
	"errors"
	"time"
)

// Releaser is a checked-out connection that must be handed back to its pool.
type Releaser interface {
	Release()
}

// Pool is the capability repositories need from a connection pool. The pool
// owns connection lifecycle and is safe for concurrent use; repositories hold
// it by reference and do no locking of their own.
type Pool[C Releaser] interface {
	Acquire(ctx context.Context) (C, error)
	Ping(ctx context.Context) error
	Close()
}

// WithConn acquires a connection under the acquire timeout, runs fn under the
// query timeout and releases the connection. Acquisition failures are reported
// as KindPool; untyped errors returned by fn are reported as KindQuery.
func WithConn[C Releaser](ctx context.Context, p Pool[C], t Timeouts, op string, fn func(ctx context.Context, c C) error) error {
	actx, cancel := withOptionalTimeout(ctx, t.Acquire)
	conn, err := p.Acquire(actx)
	cancel()
	if err != nil {
		return &Error{Op: op, Kind: KindPool, Err: err}
	}
	defer conn.Release()

	qctx, cancel := withOptionalTimeout(ctx, t.Query)
	defer cancel()
	if err := fn(qctx, conn); err != nil {
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return &Error{Op: op, Kind: KindQuery, Err: err}
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
