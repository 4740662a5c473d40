package executor

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkNew benchmarks pool construction through a factory
func BenchmarkNew(b *testing.B) {
	logger := quietLogger()

	for _, p := range []int{1, 8, 64} {
		b.Run(fmt.Sprintf("units_%d", p), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := New("bench", indexFactory, p, struct{}{}, WithLogger(logger)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPool_Execute benchmarks running pools of instant units
func BenchmarkPool_Execute(b *testing.B) {
	logger := quietLogger()

	for _, p := range []int{1, 2, 4, 8, 16, 64} {
		b.Run(fmt.Sprintf("units_%d", p), func(b *testing.B) {
			pool, err := New("bench", indexFactory, p, struct{}{}, WithLogger(logger))
			if err != nil {
				b.Fatal(err)
			}

			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := pool.Execute(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPool_Execute_Sleeping shows wall time staying flat as P grows
// because every unit has its own worker
func BenchmarkPool_Execute_Sleeping(b *testing.B) {
	logger := quietLogger()
	factory := func(_ struct{}, slot Slot) (Unit[int], error) {
		return UnitFunc[int](func(ctx context.Context) (int, error) {
			time.Sleep(time.Millisecond)
			return slot.Index, nil
		}), nil
	}

	for _, p := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("units_%d", p), func(b *testing.B) {
			pool, err := New("sleep", factory, p, struct{}{}, WithLogger(logger))
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := pool.Execute(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSummarize benchmarks result aggregation
func BenchmarkSummarize(b *testing.B) {
	results := make([]Result, 1000)
	for i := range results {
		results[i] = Result{Index: i, Kind: "bench", Duration: time.Duration(i) * time.Microsecond}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Summarize(results)
	}
}
