package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{ released *int }

func (c fakeConn) Release() { *c.released++ }

type fakePool struct {
	acquireErr error
	released   int
	sawTimeout bool
}

func (p *fakePool) Acquire(ctx context.Context) (fakeConn, error) {
	_, p.sawTimeout = ctx.Deadline()
	if p.acquireErr != nil {
		return fakeConn{}, p.acquireErr
	}
	return fakeConn{released: &p.released}, nil
}

func (p *fakePool) Ping(context.Context) error { return nil }
func (p *fakePool) Close()                     {}

func TestWithConn_PoolErrorKind(t *testing.T) {
	p := &fakePool{acquireErr: errors.New("pool exhausted")}
	called := false
	err := WithConn[fakeConn](context.Background(), p, Timeouts{Acquire: time.Second}, "entries.add", func(context.Context, fakeConn) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, p.sawTimeout)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindPool, kind)
	assert.Contains(t, err.Error(), "entries.add")
}

func TestWithConn_QueryErrorKindAndRelease(t *testing.T) {
	p := &fakePool{}
	var deadline bool
	err := WithConn[fakeConn](context.Background(), p, Timeouts{Query: time.Second}, "entries.list", func(ctx context.Context, _ fakeConn) error {
		_, deadline = ctx.Deadline()
		return errors.New("syntax error")
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindQuery, kind)
	assert.True(t, deadline)
	assert.Equal(t, 1, p.released)
}

func TestWithConn_KeepsTypedErrors(t *testing.T) {
	p := &fakePool{}
	err := WithConn[fakeConn](context.Background(), p, Timeouts{}, "entries.list", func(context.Context, fakeConn) error {
		return MappingError("entries.list", errors.New("bad tags"))
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMapping, kind)
	assert.Equal(t, 1, p.released)
}

func TestWithConn_Success(t *testing.T) {
	p := &fakePool{}
	require.NoError(t, WithConn[fakeConn](context.Background(), p, Timeouts{}, "op", func(context.Context, fakeConn) error { return nil }))
	assert.False(t, p.sawTimeout)
	assert.Equal(t, 1, p.released)
}

func TestKindOf_Untyped(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
