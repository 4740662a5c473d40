// Package executor runs a fixed set of homogeneous stream executors in
// parallel and collects their results in order.
//
// A Pool is built from a unit kind, a Factory and a parallelism degree P. The
// factory is called P times with the same shared configuration, once per
// Slot, so the pool always owns exactly P units. Execute starts one worker
// goroutine per unit, waits for all of them and returns the results in
// construction order regardless of completion order.
//
// # Basic Usage
//
//	pool, err := executor.New("reader", units.NewReadBytes, 4, cfg,
//	    executor.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	partitions, err := pool.Execute(ctx)
//
// # Failure Semantics
//
// Every unit always runs to completion; a failing unit does not stop its
// siblings. When one or more units fail, Execute returns the *UnitError of
// the lowest failing index. The outcome of every unit, including all errors,
// stays available through Results:
//
//	if _, err := pool.Execute(ctx); err != nil {
//	    for _, e := range executor.GetErrors(pool.Results()) {
//	        logger.Warn("unit failed", "error", e)
//	    }
//	}
//
// A unit that panics is reported as a failure whose error carries the stack
// trace of the panic (print it with %+v).
//
// # Concurrency Guarantees
//
//   - At most P units run at once, one per worker
//   - Execute joins every worker before returning
//   - Units share only the read-only configuration given to New
//   - A second Execute while one is in progress fails with ErrPoolRunning
package executor
