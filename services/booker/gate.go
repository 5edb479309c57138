package booker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate spaces out seat claims across every worker in the process so
// simultaneous window openings do not hammer the portal.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate builds a gate enforcing a minimum interval between claims.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the caller may issue a claim.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
