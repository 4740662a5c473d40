package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryankumar/fanout/internal/output"
	"github.com/aryankumar/fanout/internal/status"
	"github.com/aryankumar/fanout/internal/util"
)

// newDecodeCmd creates the decode command
func newDecodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode status lines written by a run",
		Long: `Decode reads the stdout of one or more runs (from a file or stdin), picks
out the status lines and renders them. Lines that are not status messages are
passed through to stderr.

The command fails if any decoded message is of type error.`,
		Example: `  # Fan out and read the result back
  fanout run echo -p 3 | fanout decode

  # Decode a captured log as JSON
  fanout decode -o json worker.out`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}
			if format == output.FormatStatus {
				format = output.FormatTable
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(util.ExpandFullPath(args[0]))
				if err != nil {
					return fmt.Errorf("failed to open status file: %w", err)
				}
				defer f.Close()
				in = f
			}

			return a.decode(cmd, in, format)
		},
	}

	return cmd
}

func (a *app) decode(cmd *cobra.Command, in io.Reader, format output.Format) error {
	messages, diagnostics, err := status.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read status lines: %w", err)
	}

	for _, line := range diagnostics {
		fmt.Fprintln(cmd.ErrOrStderr(), line)
	}

	if err := a.formatter(format).FormatMessages(cmd.OutOrStdout(), messages); err != nil {
		return err
	}

	failed := 0
	for _, msg := range messages {
		if msg.IsError() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d status messages report an error", failed, len(messages))
	}
	return nil
}
