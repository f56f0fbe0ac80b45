package future

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestImmediateFastPath(t *testing.T) {
	v := Of(21)

	// Map on a completed value must run synchronously on this goroutine.
	var ran atomic.Bool
	doubled := Map(v, func(n int) (int, error) {
		ran.Store(true)
		return n * 2, nil
	})
	require.True(t, ran.Load())
	require.True(t, doubled.IsDone())

	got, err := doubled.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestFailureShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	v := Err[int](boom)

	mapped := Map(v, func(int) (int, error) {
		t.Fatal("fn must not run on a failed value")
		return 0, nil
	})
	_, err := mapped.Get(context.Background())
	require.ErrorIs(t, err, boom)

	chained := FlatMap(v, func(int) *Value[string] {
		t.Fatal("fn must not run on a failed value")
		return Of("")
	})
	_, err = chained.Get(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestPendingCompletion(t *testing.T) {
	v := Pending[string]()
	require.False(t, v.IsDone())

	mapped := Map(v, func(s string) (string, error) { return s + "!", nil })
	require.False(t, mapped.IsDone())

	go v.Complete("hello")

	got, err := mapped.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello!", got)
}

func TestFirstCompletionWins(t *testing.T) {
	v := Pending[int]()
	require.True(t, v.Complete(1))
	require.False(t, v.Complete(2))
	require.False(t, v.Fail(errors.New("late")))

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got)
}

func TestCancellationIsDistinct(t *testing.T) {
	v := Pending[int]()
	v.Cancel(context.Canceled)

	_, err := v.Get(context.Background())
	require.True(t, IsCanceled(err))
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)

	// An ordinary failure is not cancellation.
	require.False(t, IsCanceled(errors.New("boom")))
}

func TestGetObservesContextCancellation(t *testing.T) {
	v := Pending[int]()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := v.Get(ctx)
	require.True(t, IsCanceled(err))
}

func TestSubscribeSharedOutcome(t *testing.T) {
	v := Pending[int]()
	var seen atomic.Int32
	for i := 0; i < 3; i++ {
		v.Subscribe(func(n int, err error) {
			require.NoError(t, err)
			require.Equal(t, 7, n)
			seen.Add(1)
		})
	}
	v.Complete(7)
	require.Equal(t, int32(3), seen.Load())

	// Late subscriber sees the same outcome synchronously.
	v.Subscribe(func(n int, err error) { seen.Add(1) })
	require.Equal(t, int32(4), seen.Load())
}

func TestFlatMapChainsPending(t *testing.T) {
	a := Pending[int]()
	b := Pending[int]()
	sum := FlatMap(a, func(x int) *Value[int] {
		return Map(b, func(y int) (int, error) { return x + y, nil })
	})

	a.Complete(40)
	require.False(t, sum.IsDone())
	b.Complete(2)

	got, err := sum.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestJoin(t *testing.T) {
	t.Run("all succeed", func(t *testing.T) {
		a, b := Pending[int](), Of(2)
		joined := Join([]*Value[int]{a, b})
		a.Complete(1)
		got, err := joined.Get(context.Background())
		require.NoError(t, err)
		require.Equal(t, []int{1, 2}, got)
	})

	t.Run("first error wins", func(t *testing.T) {
		boom := errors.New("boom")
		a, b := Err[int](boom), Pending[int]()
		joined := Join([]*Value[int]{a, b})
		b.Complete(2)
		_, err := joined.Get(context.Background())
		require.ErrorIs(t, err, boom)
	})

	t.Run("empty", func(t *testing.T) {
		joined := Join[int](nil)
		require.True(t, joined.IsDone())
	})
}
