package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/fanout/internal/util"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// indexFactory builds units returning their own slot index
func indexFactory(_ struct{}, slot Slot) (Unit[int], error) {
	return UnitFunc[int](func(ctx context.Context) (int, error) {
		return slot.Index, nil
	}), nil
}

// concurrencyTracker records how many units are executing at once
type concurrencyTracker struct {
	active    atomic.Int32
	maxActive atomic.Int32
	started   sync.WaitGroup
}

func (c *concurrencyTracker) unit(total int) Unit[int] {
	return UnitFunc[int](func(ctx context.Context) (int, error) {
		n := c.active.Add(1)
		defer c.active.Add(-1)
		for {
			m := c.maxActive.Load()
			if n <= m || c.maxActive.CompareAndSwap(m, n) {
				break
			}
		}

		// Every unit waits until all of them have started, which only
		// terminates if the pool runs them all at once.
		c.started.Done()
		done := make(chan struct{})
		go func() {
			c.started.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			return 0, fmt.Errorf("only %d of %d units started", c.active.Load(), total)
		}
		return int(n), nil
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		parallelism int
		factory     Factory[struct{}, int]
		wantErr     error
	}{
		{
			name:        "single unit",
			parallelism: 1,
			factory:     indexFactory,
		},
		{
			name:        "several units",
			parallelism: 5,
			factory:     indexFactory,
		},
		{
			name:        "zero parallelism",
			parallelism: 0,
			factory:     indexFactory,
			wantErr:     ErrInvalidParallelism,
		},
		{
			name:        "negative parallelism",
			parallelism: -3,
			factory:     indexFactory,
			wantErr:     ErrInvalidParallelism,
		},
		{
			name:        "nil factory",
			parallelism: 2,
			factory:     nil,
			wantErr:     util.ErrInvalidConfig,
		},
		{
			name:        "factory returns nil unit",
			parallelism: 2,
			factory: func(struct{}, Slot) (Unit[int], error) {
				return nil, nil
			},
			wantErr: util.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := New("test", tt.factory, tt.parallelism, struct{}{}, WithLogger(quietLogger()))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pool, "no pool on error")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.parallelism, pool.Parallelism())
			assert.Equal(t, "test", pool.Kind())
			assert.False(t, pool.IsRunning(), "new pool should not be running")
		})
	}
}

func TestNew_FactoryCalledOncePerSlot(t *testing.T) {
	type shared struct{ name string }
	cfg := &shared{name: "input.csv"}

	var slots []Slot
	var seen []*shared
	factory := func(c *shared, slot Slot) (Unit[int], error) {
		slots = append(slots, slot)
		seen = append(seen, c)
		return NopUnit[int]{}, nil
	}

	_, err := New("test", factory, 4, cfg, WithLogger(quietLogger()))
	require.NoError(t, err)

	require.Len(t, slots, 4)
	for i, slot := range slots {
		assert.Equal(t, Slot{Index: i, Total: 4}, slot)
		assert.Same(t, cfg, seen[i], "every slot gets the same configuration")
	}
}

func TestNew_FactoryError(t *testing.T) {
	boom := errors.New("bad input")
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		if slot.Index == 2 {
			return nil, boom
		}
		return NopUnit[int]{}, nil
	}

	_, err := New("reader", factory, 3, struct{}{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "reader unit 2")
}

func TestFromUnits(t *testing.T) {
	_, err := FromUnits[int]("empty", nil)
	assert.ErrorIs(t, err, ErrInvalidParallelism)

	_, err = FromUnits("nil", []Unit[int]{NopUnit[int]{}, nil})
	assert.ErrorIs(t, err, util.ErrInvalidConfig)

	units := []Unit[string]{
		UnitFunc[string](func(context.Context) (string, error) { return "a", nil }),
		UnitFunc[string](func(context.Context) (string, error) { return "b", nil }),
	}
	pool, err := FromUnits("letters", units, WithLogger(quietLogger()))
	require.NoError(t, err)

	// The pool owns its own copy of the list
	units[0] = nil

	got, err := pool.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestPool_Execute_Order(t *testing.T) {
	// Later units finish first; results must still follow construction order
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			time.Sleep(time.Duration(5-slot.Index) * 5 * time.Millisecond)
			return slot.Index * 10, nil
		}), nil
	}

	pool, err := New("order", factory, 5, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 30, 40}, got)

	for i, r := range pool.Results() {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "order", r.Kind)
		assert.Positive(t, r.Duration, "result %d has no duration", i)
	}
}

func TestPool_Execute_ThreeEchoes(t *testing.T) {
	pool, err := New("echo", indexFactory, 3, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestPool_Execute_Nop(t *testing.T) {
	factory := func(struct{}, Slot) (Unit[string], error) { return NopUnit[string]{}, nil }
	pool, err := New("nop", factory, 1, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestPool_Execute_AllUnitsRunConcurrently(t *testing.T) {
	for _, p := range []int{1, 2, 4, 16} {
		t.Run(fmt.Sprintf("P=%d", p), func(t *testing.T) {
			tracker := &concurrencyTracker{}
			tracker.started.Add(p)

			units := make([]Unit[int], p)
			for i := range units {
				units[i] = tracker.unit(p)
			}

			pool, err := FromUnits("concurrent", units, WithLogger(quietLogger()))
			require.NoError(t, err)

			_, err = pool.Execute(context.Background())
			require.NoError(t, err)

			assert.Equal(t, int32(p), tracker.maxActive.Load(), "max concurrently active units")
			assert.Zero(t, tracker.active.Load(), "units still active after Execute returned")
		})
	}
}

func TestPool_Execute_WaitsForAllAndReportsLowestFailure(t *testing.T) {
	var finished atomic.Int32

	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			defer finished.Add(1)
			switch slot.Index {
			case 1:
				// Fails last, but has the lowest failing index
				time.Sleep(30 * time.Millisecond)
				return 0, errors.New("unit one failed")
			case 3:
				return 0, errors.New("unit three failed")
			case 4:
				time.Sleep(50 * time.Millisecond)
			}
			return slot.Index, nil
		}), nil
	}

	pool, err := New("mixed", factory, 5, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(5), finished.Load(), "Execute returned before all units finished")

	var unitErr *UnitError
	require.ErrorAs(t, err, &unitErr)
	assert.Equal(t, 1, unitErr.Index)
	assert.Equal(t, 1, UnitIndex(err))
	assert.Contains(t, err.Error(), "unit one failed")

	// Partial results survive
	assert.Equal(t, []int{0, 0, 2, 0, 4}, got)

	results := pool.Results()
	assert.Equal(t, 2, CountFailed(results))
	assert.Len(t, GetErrors(results), 2)
}

func TestPool_Execute_Panic(t *testing.T) {
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			if slot.Index == 0 {
				panic("index out of range")
			}
			return slot.Index, nil
		}), nil
	}

	pool, err := New("panicky", factory, 2, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, UnitIndex(err))
	assert.Contains(t, err.Error(), "panic: index out of range")

	// %+v carries the stack recorded at recovery
	assert.Contains(t, fmt.Sprintf("%+v", err), "runUnit")

	assert.Equal(t, 1, got[1], "healthy unit result lost")
}

func TestPool_Execute_ContextCancellation(t *testing.T) {
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(5 * time.Second):
				return slot.Index, nil
			}
		}), nil
	}

	pool, err := New("slow", factory, 3, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = pool.Execute(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second, "units did not observe cancellation")
	assert.Equal(t, 3, CountFailed(pool.Results()))
}

func TestPool_Execute_Rerun(t *testing.T) {
	var calls atomic.Int32
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			return int(calls.Add(1)), nil
		}), nil
	}

	pool, err := New("rerun", factory, 2, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	for run := 0; run < 2; run++ {
		_, err := pool.Execute(context.Background())
		require.NoError(t, err, "run %d", run)
	}

	assert.Equal(t, int32(4), calls.Load(), "units execute again on rerun")
}

func TestPool_Execute_ConcurrentRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			close(entered)
			<-release
			return 0, nil
		}), nil
	}

	pool, err := New("blocking", factory, 1, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := pool.Execute(context.Background())
		done <- err
	}()

	<-entered
	assert.True(t, pool.IsRunning())

	_, err = pool.Execute(context.Background())
	assert.ErrorIs(t, err, ErrPoolRunning)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, pool.IsRunning(), "pool should not be running after Execute returns")
}

func TestPool_ExecuteWithProgress(t *testing.T) {
	pool, err := New("progress", indexFactory, 6, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	var mu sync.Mutex
	var calls []int
	_, err = pool.ExecuteWithProgress(context.Background(), func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 6, total)
		calls = append(calls, completed)
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, calls)
}

func TestPool_ResultsReturnsCopy(t *testing.T) {
	pool, err := New("copy", indexFactory, 2, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Empty(t, pool.Results(), "no results before the first run")

	_, err = pool.Execute(context.Background())
	require.NoError(t, err)

	results := pool.Results()
	results[0].Kind = "mutated"
	assert.Equal(t, "copy", pool.Results()[0].Kind, "Results must return a copy")
}

func TestAnyFactory(t *testing.T) {
	assert.Nil(t, AnyFactory[struct{}, int](nil), "nil factory should stay nil")

	pool, err := New("any", AnyFactory(Factory[struct{}, int](indexFactory)), 3, struct{}{}, WithLogger(quietLogger()))
	require.NoError(t, err)

	got, err := pool.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, got)

	failing := AsAny[int](UnitFunc[int](func(context.Context) (int, error) { return 7, errors.New("nope") }))
	v, err := failing.Execute(context.Background())
	assert.Error(t, err)
	assert.Nil(t, v)
}

func TestUnitError_Format(t *testing.T) {
	err := &UnitError{Index: 2, Kind: "read-bytes", Err: errors.New("disk full")}

	assert.EqualError(t, err, "read-bytes unit 2: disk full")
	assert.Equal(t, err.Error(), fmt.Sprintf("%s", err))
	assert.Equal(t, `"read-bytes unit 2: disk full"`, fmt.Sprintf("%q", err))
	assert.Equal(t, -1, UnitIndex(errors.New("other")))
	assert.Equal(t, 2, UnitIndex(fmt.Errorf("wrapped: %w", err)))
}
