package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestFoldSucceedsOnThirdAttempt(t *testing.T) {
	rec := &recordingSleeper{}
	var seen []int

	got, attempts, err := Fold(context.Background(), LedgerConfig(), rec.sleep, func(_ context.Context, n int) (string, error) {
		seen = append(seen, n)
		if n < 3 {
			return "", errors.New("nonce too low")
		}
		return "0xok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "0xok", got)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.waits)
}

func TestFoldSurfacesLastError(t *testing.T) {
	rec := &recordingSleeper{}
	last := errors.New("attempt 3 failed")

	_, attempts, err := Fold(context.Background(), LedgerConfig(), rec.sleep, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, last
		}
		return 0, errors.New("earlier failure")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 3, attempts)
	assert.Len(t, rec.waits, 2)
}

func TestFoldStopsOnPermanent(t *testing.T) {
	rec := &recordingSleeper{}
	cause := errors.New("no signer")
	calls := 0

	_, attempts, err := Fold(context.Background(), LedgerConfig(), rec.sleep, func(_ context.Context, n int) (int, error) {
		calls++
		return 0, Permanent(cause)
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestClockSleeperHonoursContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sleep := ClockSleeper(clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)

	done := make(chan error, 1)
	go func() { done <- sleep(context.Background(), 5*time.Second) }()
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(5 * time.Second)
	assert.NoError(t, <-done)
}
