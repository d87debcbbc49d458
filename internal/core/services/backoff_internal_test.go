// internal/core/services/backoff_internal_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryBackOff(t *testing.T) {
	tests := []struct {
		name      string
		base      time.Duration
		max       time.Duration
		intervals []time.Duration
	}{
		{
			name:      "no_base_means_no_wait",
			base:      0,
			max:       0,
			intervals: []time.Duration{0, 0, 0},
		},
		{
			name:      "doubles_per_retry",
			base:      10 * time.Millisecond,
			max:       time.Second,
			intervals: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond},
		},
		{
			name:      "capped_at_max",
			base:      10 * time.Millisecond,
			max:       25 * time.Millisecond,
			intervals: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := LedgerOptions{RetryBaseDelay: tt.base, RetryMaxDelay: tt.max}.withDefaults()
			b := newRetryBackOff(opts)

			assert.Equal(t, tt.base, b.InitialInterval)
			assert.Equal(t, tt.max, b.MaxInterval)
			assert.Equal(t, time.Duration(0), b.MaxElapsedTime, "attempts, not elapsed time, bound the retry")

			for i, interval := range tt.intervals {
				d := b.NextBackOff()
				assert.GreaterOrEqual(t, d, interval/2, "retry %d", i+1)
				assert.LessOrEqual(t, d, interval+interval/2, "retry %d", i+1)
			}
		})
	}
}

func TestLedgerService_RetryPolicy(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		wantWaits   int
	}{
		{name: "single_attempt_never_waits", maxAttempts: 1, wantWaits: 0},
		{name: "default_attempts", maxAttempts: 5, wantWaits: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &LedgerService{opts: LedgerOptions{MaxAttempts: tt.maxAttempts, RetryBaseDelay: time.Millisecond}.withDefaults()}
			policy := s.retryPolicy(context.Background())
			policy.Reset()

			waits := 0
			for policy.NextBackOff() != backoff.Stop {
				waits++
				require.LessOrEqual(t, waits, tt.maxAttempts, "policy never stops")
			}
			assert.Equal(t, tt.wantWaits, waits)
		})
	}

	t.Run("cancelled_context_stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := &LedgerService{opts: DefaultLedgerOptions()}
		policy := s.retryPolicy(ctx)
		policy.Reset()
		assert.Equal(t, backoff.Stop, policy.NextBackOff())
	})
}

func TestLedgerOptions_WithDefaults(t *testing.T) {
	opts := LedgerOptions{RetryBaseDelay: -time.Second}.withDefaults()
	def := DefaultLedgerOptions()

	assert.Equal(t, def.MaxAttempts, opts.MaxAttempts)
	assert.Equal(t, time.Duration(0), opts.RetryBaseDelay)
	assert.Equal(t, def.HistoryPageSize, opts.HistoryPageSize)
	assert.Equal(t, def.BatchConcurrency, opts.BatchConcurrency)
	assert.False(t, opts.LowStockAlerts)
}
