package executor

import (
	"errors"
	"fmt"

	"github.com/aryankumar/fanout/internal/util"
)

var (
	// ErrInvalidParallelism is returned when a pool is built with P <= 0
	ErrInvalidParallelism = fmt.Errorf("%w: parallelism must be a positive integer", util.ErrInvalidConfig)

	// ErrPoolRunning is returned by Execute while another Execute is in progress
	ErrPoolRunning = errors.New("pool is already running")
)

// UnitError reports the failure of the unit at Index
type UnitError struct {
	Index int
	Kind  string
	Err   error
}

// Error implements the error interface
func (e *UnitError) Error() string {
	return fmt.Sprintf("%s unit %d: %v", e.Kind, e.Index, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As compatibility
func (e *UnitError) Unwrap() error {
	return e.Err
}

// Format keeps the wrapped error's stack trace reachable through %+v
func (e *UnitError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s unit %d: %+v", e.Kind, e.Index, e.Err)
			return
		}
		fmt.Fprint(s, e.Error())
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// UnitIndex returns the index of the failed unit carried by err, or -1
func UnitIndex(err error) int {
	var unitErr *UnitError
	if errors.As(err, &unitErr) {
		return unitErr.Index
	}
	return -1
}
