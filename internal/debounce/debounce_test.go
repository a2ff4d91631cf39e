package debounce_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/debounce"
)

func TestValueCoalescesBurst(t *testing.T) {
	v := debounce.NewValue[string](50 * time.Millisecond)
	defer v.Stop()

	v.Set("s")
	v.Set("sm")
	v.Set("smith")
	v.Set("smith2")

	select {
	case got := <-v.C():
		t.Fatalf("emitted %q before quiet period", got)
	case <-time.After(20 * time.Millisecond):
	}

	select {
	case got := <-v.C():
		require.Equal(t, "smith2", got)
	case <-time.After(time.Second):
		t.Fatal("no emission after quiet period")
	}

	// Exactly one emission for the whole burst.
	select {
	case got := <-v.C():
		t.Fatalf("unexpected second emission %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestValueRestartsTimerOnEachSet(t *testing.T) {
	v := debounce.NewValue[int](60 * time.Millisecond)
	defer v.Stop()

	v.Set(1)
	time.Sleep(40 * time.Millisecond)
	v.Set(2)
	time.Sleep(40 * time.Millisecond)

	select {
	case got := <-v.C():
		t.Fatalf("emitted %d while input still active", got)
	default:
	}

	select {
	case got := <-v.C():
		require.Equal(t, 2, got)
	case <-time.After(time.Second):
		t.Fatal("no emission")
	}
}

func TestValueStopSuppressesPending(t *testing.T) {
	v := debounce.NewValue[int](30 * time.Millisecond)
	v.Set(1)
	v.Stop()

	select {
	case got := <-v.C():
		t.Fatalf("emission %d after Stop", got)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestFuncBurstSharesFinalResult(t *testing.T) {
	var calls atomic.Int64
	var lastArg atomic.Value
	fn := func(ctx context.Context, keyword string) (string, error) {
		calls.Add(1)
		lastArg.Store(keyword)
		return "result:" + keyword, nil
	}
	f := debounce.NewFunc(fn, 50*time.Millisecond)
	defer f.Stop()

	var wg sync.WaitGroup
	results := make([]string, 3)
	for i, keyword := range []string{"s", "smith", "smith2"} {
		wg.Add(1)
		go func(i int, keyword string) {
			defer wg.Done()
			got, err := f.Call(context.Background(), keyword)
			require.NoError(t, err)
			results[i] = got
		}(i, keyword)
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	require.Equal(t, "smith2", lastArg.Load())
	for _, got := range results {
		require.Equal(t, "result:smith2", got)
	}
}

func TestFuncSeparateBurstsInvokeSeparately(t *testing.T) {
	var calls atomic.Int64
	fn := func(ctx context.Context, n int) (int, error) {
		calls.Add(1)
		return n * 2, nil
	}
	f := debounce.NewFunc(fn, 20*time.Millisecond)
	defer f.Stop()

	first, err := f.Call(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 6, first)

	second, err := f.Call(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 10, second)

	require.Equal(t, int64(2), calls.Load())
}

func TestFuncStopReleasesWaiters(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) { return n, nil }
	f := debounce.NewFunc(fn, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		_, err := f.Call(context.Background(), 1)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	f.Stop()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, debounce.ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("caller not released after Stop")
	}
}

func TestFuncCallerContextCancel(t *testing.T) {
	fn := func(ctx context.Context, n int) (int, error) { return n, nil }
	f := debounce.NewFunc(fn, time.Hour)
	defer f.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Call(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
