package health

import "context"

// Pinger is a dependency pinged by Check: the relational store and the
// rate limiter backend.
type Pinger interface {
	Ping(ctx context.Context) error
}
