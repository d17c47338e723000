// Package ratelimit paces outbound requests to the object store so bulk
// operations such as recursive link walks do not overwhelm the server.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles request issue rate.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a limiter allowing requestsPerSecond sustained throughput with a
// burst of one. Zero or negative means unlimited.
func New(requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// Wait blocks until the next request may be issued or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
