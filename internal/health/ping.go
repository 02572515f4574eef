package health

import "context"

// HealthPinger is a component that can probe its own backend. HealthPing
// returns nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
