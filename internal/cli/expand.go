package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aryankumar/fanout/internal/output"
	"github.com/aryankumar/fanout/internal/util"
)

// newExpandCmd creates the expand command
func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <path>...",
		Short: "Expand environment variables and ~ in paths",
		Long: `Expand prints each path with $VAR and ${VAR} references replaced by their
values and a leading ~ or ~user replaced by the home directory, the same way
input paths of stream executors are resolved. Unknown variables are kept as
written.`,
		Example: `  fanout expand '$HOME/data/*.csv' '~/logs'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.outputFormat()
			if err != nil {
				return err
			}

			expanded := make([]string, len(args))
			for i, path := range args {
				expanded[i] = util.ExpandFullPath(path)
			}

			switch format {
			case output.FormatJSON, output.FormatYAML:
				return a.formatter(format).Format(cmd.OutOrStdout(), expanded)
			default:
				for _, path := range expanded {
					fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				return nil
			}
		},
	}
}
