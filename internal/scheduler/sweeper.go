package scheduler

import "context"

// Sweeper is a long-running background task owned by the composition root
type Sweeper interface {
	// Start runs the main loop until the context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop signals the loop and waits for the in-flight cycle to finish
	Stop(ctx context.Context) error

	// Name identifies the sweeper in logs
	Name() string
}
