package booker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSpacesClaims(t *testing.T) {
	gate := NewGate(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	elapsed := time.Since(start)

	// First claim is immediate, the next two wait one interval each.
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestGateCancelledContext(t *testing.T) {
	gate := NewGate(time.Hour)
	ctx := context.Background()
	require.NoError(t, gate.Wait(ctx))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, gate.Wait(cancelled))
}

func TestGateDefaultsInterval(t *testing.T) {
	gate := NewGate(0)
	require.NotNil(t, gate.limiter)
	assert.NoError(t, gate.Wait(context.Background()))
}
