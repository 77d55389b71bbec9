package recordstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_SerializesWork(t *testing.T) {
	g := NewGuard()

	var inFlight, maxInFlight int32
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					m := atomic.LoadInt32(&maxInFlight)
					if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
						break
					}
				}
				v := counter
				time.Sleep(100 * time.Microsecond)
				counter = v + 1
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, int32(1), maxInFlight)
}

func TestGuard_ReturnsWorkErrorUnchanged(t *testing.T) {
	g := NewGuard()
	sentinel := errors.New("work failed")

	err := g.Do(context.Background(), func(context.Context) error { return sentinel })
	assert.Same(t, sentinel, err)

	// защита освобождена после ошибки
	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestGuard_ReleasedAfterPanic(t *testing.T) {
	g := NewGuard()

	assert.PanicsWithValue(t, "boom", func() {
		_ = g.Do(context.Background(), func(context.Context) error { panic("boom") })
	})

	done := make(chan error, 1)
	go func() {
		done <- g.Do(context.Background(), func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("guard was not released after panic")
	}
}

func TestGuard_CancelWhileWaiting(t *testing.T) {
	g := NewGuard()

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := g.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestGuard_CanceledContextNeverRuns(t *testing.T) {
	g := NewGuard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := g.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestGuard_WorkContextDetachedFromCancellation(t *testing.T) {
	g := NewGuard()
	ctx, cancel := context.WithCancel(context.Background())

	err := g.Do(ctx, func(txCtx context.Context) error {
		cancel()
		assert.NoError(t, txCtx.Err())
		assert.True(t, g.Held(txCtx))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, g.Held(ctx))
}

func TestGuard_ReentrantUsePanics(t *testing.T) {
	g := NewGuard()

	assert.Panics(t, func() {
		_ = g.Do(context.Background(), func(ctx context.Context) error {
			return g.Do(ctx, func(context.Context) error { return nil })
		})
	})

	// другой Guard в той же транзакции допустим
	other := NewGuard()
	err := g.Do(context.Background(), func(ctx context.Context) error {
		return other.Do(ctx, func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}
