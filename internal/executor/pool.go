package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/aryankumar/fanout/internal/util"
)

// Pool owns a fixed, ordered set of units and runs them all concurrently,
// one worker goroutine per unit
type Pool[R any] struct {
	// kind names the unit kind, used in logs and errors
	kind string

	// units is fixed at construction; its order is the result order
	units []Unit[R]

	// logger for structured logging
	logger *slog.Logger

	// mu protects results
	mu sync.Mutex

	// results holds the per-unit outcome of the last run
	results []Result

	// running indicates if the pool is currently executing
	running atomic.Bool
}

// Option configures a Pool
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by the pool. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a pool of parallelism units of one kind by calling factory once
// per slot with the same shared configuration.
// A non-positive parallelism, a nil factory, a factory error or a nil unit
// is a configuration error and no pool is returned.
func New[C, R any](kind string, factory Factory[C, R], parallelism int, cfg C, opts ...Option) (*Pool[R], error) {
	if parallelism <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidParallelism, parallelism)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: no factory for unit kind %q", util.ErrInvalidConfig, kind)
	}

	units := make([]Unit[R], parallelism)
	for i := range units {
		unit, err := factory(cfg, Slot{Index: i, Total: parallelism})
		if err != nil {
			return nil, fmt.Errorf("failed to build %s unit %d: %w", kind, i, err)
		}
		if unit == nil {
			return nil, fmt.Errorf("%w: factory for %q returned no unit for slot %d", util.ErrInvalidConfig, kind, i)
		}
		units[i] = unit
	}

	return newPool(kind, units, opts), nil
}

// FromUnits builds a pool over an explicit list of units.
// The parallelism degree is len(units), which must be at least 1.
func FromUnits[R any](kind string, units []Unit[R], opts ...Option) (*Pool[R], error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("%w (got 0 units)", ErrInvalidParallelism)
	}
	owned := make([]Unit[R], len(units))
	for i, u := range units {
		if u == nil {
			return nil, fmt.Errorf("%w: unit %d is nil", util.ErrInvalidConfig, i)
		}
		owned[i] = u
	}
	return newPool(kind, owned, opts), nil
}

func newPool[R any](kind string, units []Unit[R], opts []Option) *Pool[R] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Pool[R]{
		kind:   kind,
		units:  units,
		logger: o.logger,
	}
}

// Execute runs every unit concurrently and returns their results in
// construction order.
//
// All units run to completion. If any failed, the returned error is the
// *UnitError of the lowest failing index; the slice still holds the values
// of the units that succeeded (zero values for the failed ones).
func (p *Pool[R]) Execute(ctx context.Context) ([]R, error) {
	return p.ExecuteWithProgress(ctx, nil)
}

// ExecuteWithProgress is Execute with a callback invoked with
// (completed, total) after each unit finishes
func (p *Pool[R]) ExecuteWithProgress(ctx context.Context, progressFn func(completed, total int)) ([]R, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Error("pool is already running", "kind", p.kind)
		return nil, ErrPoolRunning
	}
	defer p.running.Store(false)

	total := len(p.units)
	p.logger.Info("starting stream executors",
		"kind", p.kind,
		"parallelism", total)

	startTime := time.Now()

	// Buffer size = unit count so workers never block on send
	resultChan := make(chan unitOutcome[R], total)

	var completed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < total; i++ {
		wg.Add(1)
		go p.worker(ctx, i, resultChan, &wg, &completed, total, progressFn)
	}

	wg.Wait()
	close(resultChan)

	values := make([]R, total)
	results := make([]Result, total)
	for out := range resultChan {
		values[out.result.Index] = out.value
		results[out.result.Index] = out.result
	}

	p.mu.Lock()
	p.results = results
	p.mu.Unlock()

	summary := Summarize(results)
	p.logger.Info("stream executors completed",
		"kind", p.kind,
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration", time.Since(startTime))

	return values, firstError(results)
}

// worker runs the unit at index and publishes its outcome
func (p *Pool[R]) worker(
	ctx context.Context,
	index int,
	resultChan chan<- unitOutcome[R],
	wg *sync.WaitGroup,
	completed *atomic.Int32,
	total int,
	progressFn func(completed, total int),
) {
	defer wg.Done()

	out := p.runUnit(ctx, index)
	resultChan <- out

	completedCount := completed.Add(1)
	p.logger.Debug("unit completed",
		"kind", p.kind,
		"unit", index,
		"success", out.result.Error == nil,
		"duration", out.result.Duration,
		"progress", fmt.Sprintf("%d/%d", completedCount, total))

	if progressFn != nil {
		progressFn(int(completedCount), total)
	}
}

// runUnit executes a single unit, turning a panic into a failure that
// carries the stack of the panicking goroutine
func (p *Pool[R]) runUnit(ctx context.Context, index int) (out unitOutcome[R]) {
	startTime := time.Now()
	out.result = Result{Index: index, Kind: p.kind}

	defer func() {
		if r := recover(); r != nil {
			var zero R
			out.value = zero
			out.result.Value = nil
			out.result.Error = &UnitError{Index: index, Kind: p.kind, Err: pkgerrors.Errorf("panic: %v", r)}
		}
		out.result.Duration = time.Since(startTime)

		if out.result.Error != nil {
			p.logger.Warn("unit failed",
				"kind", p.kind,
				"unit", index,
				"error", out.result.Error,
				"duration", out.result.Duration)
		}
	}()

	p.logger.Debug("executing unit", "kind", p.kind, "unit", index)

	value, err := p.units[index].Execute(ctx)
	if err != nil {
		out.result.Error = &UnitError{Index: index, Kind: p.kind, Err: err}
		return out
	}

	out.value = value
	out.result.Value = value
	return out
}

// Results returns the per-unit outcomes of the last completed run
func (p *Pool[R]) Results() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, len(p.results))
	copy(results, p.results)
	return results
}

// Kind returns the unit kind of the pool
func (p *Pool[R]) Kind() string {
	return p.kind
}

// Parallelism returns the number of units, which is also the number of workers
func (p *Pool[R]) Parallelism() int {
	return len(p.units)
}

// IsRunning returns true if the pool is currently executing
func (p *Pool[R]) IsRunning() bool {
	return p.running.Load()
}

// firstError returns the error of the lowest-index failed result
func firstError(results []Result) error {
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

// unitOutcome pairs a typed value with its untyped result record
type unitOutcome[R any] struct {
	value  R
	result Result
}
