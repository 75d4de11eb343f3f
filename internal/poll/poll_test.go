package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEveryRunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	job := Every(context.Background(), 5*time.Millisecond, func(context.Context) {
		calls.Add(1)
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	job.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, after, calls.Load(), "no ticks after Stop")
}

func TestStopIsIdempotent(t *testing.T) {
	job := Every(context.Background(), time.Hour, func(context.Context) {})
	job.Stop()
	job.Stop()

	select {
	case <-job.Done():
	default:
		t.Fatal("job still running after Stop")
	}
}

func TestParentCancelStopsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	job := Every(ctx, time.Hour, func(context.Context) {})

	cancel()
	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job ignored context cancellation")
	}
	job.Stop()
}

func TestTicksDoNotOverlap(t *testing.T) {
	var running, overlaps atomic.Int32
	job := Every(context.Background(), time.Millisecond, func(context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(3 * time.Millisecond)
		running.Add(-1)
	})

	time.Sleep(30 * time.Millisecond)
	job.Stop()
	require.Zero(t, overlaps.Load())
}

func TestPanicDoesNotKillJob(t *testing.T) {
	var calls atomic.Int32
	job := Every(context.Background(), 2*time.Millisecond, func(context.Context) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	job.Stop()
}
