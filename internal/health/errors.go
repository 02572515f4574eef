package health

import (
	"fmt"
	"strings"
	"time"
)

// StartupError reports the components still unhealthy when startup gating gave up.
type StartupError struct {
	Down    []string
	Timeout time.Duration
	Err     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup aborted: dependencies not healthy within %s: [%s]",
		e.Timeout, strings.Join(e.Down, ", "))
}

func (e *StartupError) Unwrap() error { return e.Err }
