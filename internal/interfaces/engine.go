package interfaces

import "context"

// Engine is the orchestration loop. Run blocks until ctx is cancelled or an
// error escapes a tick; tick-level failures propagate to the caller so the
// supervisor can count them.
type Engine interface {
	Run(ctx context.Context) error
}
