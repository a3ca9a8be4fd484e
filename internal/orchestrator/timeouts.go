package orchestrator

import "time"

// Timeouts bounds how long the orchestrator waits on a single plugin RPC,
// per operation (spec §5).
type Timeouts struct {
	Apply  time.Duration
	Diff   time.Duration
	Action time.Duration
}

// DefaultTimeouts matches spec §5's stated defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Apply:  300 * time.Second,
		Diff:   30 * time.Second,
		Action: 30 * time.Second,
	}
}
