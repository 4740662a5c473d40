package units

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/util"
)

// Kind names of the built-in stream executors
const (
	KindNop       = "nop"
	KindEcho      = "echo"
	KindReadBytes = "read-bytes"
)

// NewNop builds the null stream executor for any slot
func NewNop(_ struct{}, _ executor.Slot) (executor.Unit[any], error) {
	return executor.NopUnit[any]{}, nil
}

// EchoConfig is shared by all echo units of a pool
type EchoConfig struct {
	// MaxDelay bounds the random sleep before the unit answers; zero answers
	// immediately
	MaxDelay time.Duration
}

// Echo returns its own slot index, optionally after a random delay
type Echo struct {
	index int
	delay time.Duration
}

// NewEcho is the executor.Factory for echo units
func NewEcho(cfg EchoConfig, slot executor.Slot) (executor.Unit[int], error) {
	if cfg.MaxDelay < 0 {
		return nil, fmt.Errorf("%w: echo max delay must not be negative", util.ErrInvalidConfig)
	}

	var delay time.Duration
	if cfg.MaxDelay > 0 {
		delay = rand.N(cfg.MaxDelay)
	}
	return &Echo{index: slot.Index, delay: delay}, nil
}

// Execute implements executor.Unit
func (e *Echo) Execute(ctx context.Context) (int, error) {
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", util.ErrCancelled, ctx.Err())
		case <-timer.C:
		}
	}
	return e.index, nil
}
