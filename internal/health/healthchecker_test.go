package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name    string
	healthy atomic.Bool
}

func (f *fakeChecker) Name() string                               { return f.name }
func (f *fakeChecker) IsHealthy() bool                            { return f.healthy.Load() }
func (f *fakeChecker) Start(ctx context.Context, _ time.Duration) { /* no-op */ }

func TestServiceHealthChecker_Transitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &fakeChecker{name: "a"}
	b := &fakeChecker{name: "store"}
	a.healthy.Store(true)
	b.healthy.Store(true)

	svc := NewServiceHealthChecker(zerolog.Nop(), a, b)
	assert.False(t, svc.IsHealthy(), "starts unhealthy")
	go svc.Start(ctx, 10*time.Millisecond)

	waitTrue(t, func() bool { return svc.IsHealthy() })

	b.healthy.Store(false)
	waitTrue(t, func() bool { return !svc.IsHealthy() })
	assert.Equal(t, []string{"store"}, svc.Down())

	b.healthy.Store(true)
	waitTrue(t, func() bool { return svc.IsHealthy() })
	assert.Empty(t, svc.Down())
}

func TestServiceHealthChecker_NoDepsIsHealthy(t *testing.T) {
	svc := NewServiceHealthChecker(zerolog.Nop())
	svc.Evaluate()
	assert.True(t, svc.IsHealthy())
}

func TestWaitUntilHealthy(t *testing.T) {
	dep := &fakeChecker{name: "store"}
	svc := NewServiceHealthChecker(zerolog.Nop(), dep)

	go func() {
		time.Sleep(30 * time.Millisecond)
		dep.healthy.Store(true)
	}()
	require.NoError(t, svc.WaitUntilHealthy(context.Background(), 2*time.Second))
}

func TestWaitUntilHealthy_Timeout(t *testing.T) {
	svc := NewServiceHealthChecker(zerolog.Nop(), &fakeChecker{name: "store"})

	err := svc.WaitUntilHealthy(context.Background(), 100*time.Millisecond)
	var se *StartupError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, []string{"store"}, se.Down)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "store")
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before timeout")
}
