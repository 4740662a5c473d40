package executor

import "context"

// Unit is one concurrently-runnable stream executor.
// All of its configuration is bound when it is constructed; Execute performs
// the work and returns a result or an error.
type Unit[R any] interface {
	Execute(ctx context.Context) (R, error)
}

// UnitFunc adapts a plain function to the Unit interface
type UnitFunc[R any] func(ctx context.Context) (R, error)

// Execute calls f(ctx)
func (f UnitFunc[R]) Execute(ctx context.Context) (R, error) {
	return f(ctx)
}

// NopUnit is the null stream executor. It performs no work and returns the
// zero value of R.
type NopUnit[R any] struct{}

// Execute implements Unit
func (NopUnit[R]) Execute(context.Context) (R, error) {
	var zero R
	return zero, nil
}

// Slot is the placement of a unit inside its pool
type Slot struct {
	// Index is the position of the unit, 0 <= Index < Total
	Index int

	// Total is the parallelism degree of the pool
	Total int
}

// Factory builds the unit for one slot from the configuration shared by all
// units of a pool. It is invoked once per slot at pool construction.
type Factory[C, R any] func(cfg C, slot Slot) (Unit[R], error)

// AsAny erases the result type of a unit so units of different kinds can be
// driven through a single Pool[any].
func AsAny[R any](u Unit[R]) Unit[any] {
	return UnitFunc[any](func(ctx context.Context) (any, error) {
		v, err := u.Execute(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// AnyFactory lifts a typed factory into one producing Unit[any]
func AnyFactory[C, R any](f Factory[C, R]) Factory[C, any] {
	if f == nil {
		return nil
	}
	return func(cfg C, slot Slot) (Unit[any], error) {
		u, err := f(cfg, slot)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, nil
		}
		return AsAny(u), nil
	}
}
