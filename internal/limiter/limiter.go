// Package limiter implements request admission control in front of the HTTP surface.
package limiter

import (
	"context"
	"time"
)

// Limiter gates requests per client identifier against a fixed budget.
// Over-budget requests are rejected, never queued, and a rejection never
// consults or mutates token/session state.
type Limiter interface {
	// Allow reports whether the client is within budget and, when it is not,
	// how long until the next window opens.
	Allow(ctx context.Context, clientID string) (bool, time.Duration, error)
}
