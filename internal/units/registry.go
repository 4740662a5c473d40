// Package units holds the concrete stream executors the CLI can run and the
// registry that maps kind names to pool builders.
package units

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/sink"
	"github.com/aryankumar/fanout/internal/util"
)

// Options is everything a builder may need to construct a pool
type Options struct {
	Parallelism int

	// Path is the input of read-bytes
	Path       string
	ChunkSize  int64
	SkipHeader bool
	Sink       sink.Driver

	// MaxDelay is used by echo
	MaxDelay time.Duration

	Logger *slog.Logger
}

// Builder constructs a pool of one kind
type Builder func(opts Options) (*executor.Pool[any], error)

// Registry maps kind names to builders
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Default returns a registry with the built-in kinds
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindNop, buildNop)
	r.Register(KindEcho, buildEcho)
	r.Register(KindReadBytes, buildReadBytes)
	return r
}

// Register adds or replaces the builder of kind
func (r *Registry) Register(kind string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[kind] = b
}

// Build constructs the pool for kind
func (r *Registry) Build(kind string, opts Options) (*executor.Pool[any], error) {
	r.mu.RLock()
	b, ok := r.builders[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", util.ErrUnknownKind, kind, r.Kinds())
	}
	return b(opts)
}

// Kinds returns the registered kind names, sorted
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.builders))
	for k := range r.builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func buildNop(opts Options) (*executor.Pool[any], error) {
	return executor.New(KindNop, executor.Factory[struct{}, any](NewNop), opts.Parallelism, struct{}{},
		executor.WithLogger(opts.Logger))
}

func buildEcho(opts Options) (*executor.Pool[any], error) {
	cfg := EchoConfig{MaxDelay: opts.MaxDelay}
	return executor.New(KindEcho, executor.AnyFactory[EchoConfig, int](NewEcho), opts.Parallelism, cfg,
		executor.WithLogger(opts.Logger))
}

func buildReadBytes(opts Options) (*executor.Pool[any], error) {
	cfg := ReadBytesConfig{
		Path:       opts.Path,
		ChunkSize:  opts.ChunkSize,
		SkipHeader: opts.SkipHeader,
		Sink:       opts.Sink,
		Logger:     opts.Logger,
	}
	return executor.New(KindReadBytes, executor.AnyFactory[ReadBytesConfig, *Partition](NewReadBytes), opts.Parallelism, cfg,
		executor.WithLogger(opts.Logger))
}
