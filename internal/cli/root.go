package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aryankumar/fanout/internal/config"
	"github.com/aryankumar/fanout/internal/output"
	"github.com/aryankumar/fanout/internal/units"
)

// flagBindings maps configuration keys to the flags that override them.
// A flag only takes effect when it is given on the command line.
var flagBindings = map[string]string{
	"defaults.parallel":     "parallel",
	"defaults.timeout":      "timeout",
	"defaults.outputFormat": "output",
	"defaults.noColor":      "no-color",
	"sink.type":             "sink",
	"sink.localDir":         "sink-dir",
	"reader.chunkSize":      "chunk-size",
	"reader.skipHeader":     "skip-header",
}

// app is the state shared by all commands of one invocation
type app struct {
	cfgFile   string
	noHeaders bool
	wide      bool

	// configErr is a load failure kept for run, which reports it as a
	// status line instead of failing before stdout is written
	configErr error

	manager  *config.Manager
	config   *config.FanoutConfig
	logger   *slog.Logger
	registry *units.Registry
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	return newRootCmdWithRegistry(units.Default())
}

func newRootCmdWithRegistry(registry *units.Registry) *cobra.Command {
	a := &app{registry: registry}

	rootCmd := &cobra.Command{
		Use:   "fanout",
		Short: "Fanout - parallel stream executors",
		Long: `Fanout runs P copies of a stream executor side by side, one worker
each, waits for all of them and reports the outcome as a single JSON status
line on stdout, ready to be read by the process that launched it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := a.initConfig(cmd)
			if err != nil && cmd.Name() == "run" {
				a.configErr = err
				return nil
			}
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.fanout/config.yaml or $HOME/.fanout.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (status, table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Duration("timeout", 0, "timeout for the whole run (0 means none)")
	rootCmd.PersistentFlags().IntP("parallel", "p", 1, "number of stream executors")
	rootCmd.PersistentFlags().BoolVar(&a.noHeaders, "no-headers", false, "omit table headers")
	rootCmd.PersistentFlags().BoolVar(&a.wide, "wide", false, "do not truncate long table cells")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newExpandCmd(a))
	rootCmd.AddCommand(newDecodeCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// initConfig loads configuration, applies flag overrides and sets up logging
func (a *app) initConfig(cmd *cobra.Command) error {
	a.manager = config.NewManager(a.cfgFile)

	v := a.manager.Viper()
	for key, name := range flagBindings {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := a.manager.Load()
	if err != nil {
		a.config = fallbackConfig(cmd)
		a.setupLogging(cmd)
		return err
	}
	a.config = cfg

	a.setupLogging(cmd)
	return nil
}

// fallbackConfig is used when no configuration could be loaded. Only the
// flags that decide how the failure itself is shown are honored.
func fallbackConfig(cmd *cobra.Command) *config.FanoutConfig {
	cfg := &config.FanoutConfig{}
	cfg.Defaults.OutputFormat, _ = cmd.Flags().GetString("output")
	if cfg.Defaults.OutputFormat == "" {
		cfg.Defaults.OutputFormat = string(output.FormatStatus)
	}
	cfg.Defaults.NoColor, _ = cmd.Flags().GetBool("no-color")
	return cfg
}

// setupLogging configures structured logging with slog. Logs always go to
// stderr; stdout carries the status line.
func (a *app) setupLogging(cmd *cobra.Command) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	stderr := cmd.ErrOrStderr()
	var handler slog.Handler
	if a.config.Defaults.NoColor || !output.IsTerminal(stderr) {
		handler = slog.NewJSONHandler(stderr, opts)
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}

	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)

	if verbose {
		a.logger.Debug("verbose logging enabled")
		if file := a.manager.ConfigFile(); file != "" {
			a.logger.Debug("loaded configuration", "file", file)
		}
	}
}

// outputFormat returns the validated output format of this invocation
func (a *app) outputFormat() (output.Format, error) {
	return output.ParseFormat(a.config.Defaults.OutputFormat)
}

// formatter returns a formatter honoring the color settings
func (a *app) formatter(format output.Format) output.Formatter {
	return output.NewFormatter(format,
		output.WithNoColor(a.config.Defaults.NoColor),
		output.WithNoHeaders(a.noHeaders),
		output.WithWide(a.wide))
}

// exitError carries a failure that was already reported on stdout
type exitError struct {
	err error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// IsReported reports whether err was already written to stdout as a status
// line, so the caller only needs to set the exit code
func IsReported(err error) bool {
	var reported *exitError
	return errors.As(err, &reported)
}
