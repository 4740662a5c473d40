package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aryankumar/fanout/internal/config"
	"github.com/aryankumar/fanout/internal/output"
	"github.com/aryankumar/fanout/internal/sink"
	"github.com/aryankumar/fanout/internal/status"
	"github.com/aryankumar/fanout/internal/units"
	"github.com/aryankumar/fanout/internal/util"
)

// newRunCmd creates the run command
func newRunCmd(a *app) *cobra.Command {
	var (
		input    string
		maxDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <kind>",
		Short: "Run P stream executors of one kind in parallel",
		Long: `Run builds P stream executors of the given kind from the same
configuration, runs them all at once and waits for every one of them.

With the default status output a single line is written to stdout:

  {"type": "return", "content": [...]}   every executor succeeded
  {"type": "error", "content": "..."}    the lowest-index failure, with its trace

Use -o table, json or yaml for a per-executor report instead.`,
		Example: `  # Split a CSV file into chunks with four readers
  fanout run read-bytes -p 4 --input ~/data/events.csv --skip-header

  # Store the chunks on disk and show a table
  fanout run read-bytes -p 8 -i $DATA/big.log --sink local -o table

  # Smoke test the executor pool
  fanout run echo -p 3`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return a.registry.Kinds(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], input, maxDelay)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file of read-bytes (supports ~ and $VAR)")
	cmd.Flags().Int64("chunk-size", 0, "maximum chunk size in bytes (default 1MiB)")
	cmd.Flags().Bool("skip-header", false, "skip the first line of the input")
	cmd.Flags().String("sink", "", "chunk store: memory, local or s3 (default memory)")
	cmd.Flags().String("sink-dir", "", "base directory of the local sink")
	cmd.Flags().DurationVar(&maxDelay, "max-delay", 0, "maximum random delay of echo executors")

	return cmd
}

func (a *app) run(cmd *cobra.Command, kind, input string, maxDelay time.Duration) error {
	cfg := a.config

	format, err := a.outputFormat()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Defaults.Timeout)
		defer cancel()
	}

	reporter := status.NewReporter(cmd.OutOrStdout())
	fail := func(err error) error {
		if format != output.FormatStatus {
			return err
		}
		if rerr := reporter.Exception(err); rerr != nil {
			a.logger.Error("failed to report status", "error", rerr)
			return err
		}
		return &exitError{err: err}
	}

	if a.configErr != nil {
		return fail(a.configErr)
	}
	if err := cfg.Validate(); err != nil {
		return fail(err)
	}

	driver, err := sink.New(ctx, cfg.Sink, a.logger)
	if err != nil {
		return fail(err)
	}

	if kind == units.KindReadBytes && cfg.Sink.Type == config.SinkMemory {
		a.logger.Warn("chunks are kept in the memory sink and are lost when fanout exits; use --sink local or s3 to keep them",
			"kind", kind)
	}

	pool, err := a.registry.Build(kind, units.Options{
		Parallelism: cfg.Defaults.Parallel,
		Path:        input,
		ChunkSize:   cfg.Reader.ChunkSize,
		SkipHeader:  cfg.Reader.SkipHeader,
		Sink:        driver,
		MaxDelay:    maxDelay,
		Logger:      a.logger,
	})
	if err != nil {
		return fail(err)
	}

	a.logger.Debug("running stream executors",
		"kind", kind,
		"parallelism", pool.Parallelism(),
		"sink", driver.Name(),
		"timeout", cfg.Defaults.Timeout)

	values, err := pool.Execute(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", util.ErrTimeout, cfg.Defaults.Timeout, err)
	}

	if format != output.FormatStatus {
		if ferr := a.formatter(format).FormatResults(cmd.OutOrStdout(), pool.Results()); ferr != nil {
			return ferr
		}
		return err
	}

	if err != nil {
		return fail(err)
	}
	return reporter.Success(values)
}
