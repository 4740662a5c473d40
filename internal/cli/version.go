package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aryankumar/fanout/internal/output"
	"github.com/aryankumar/fanout/pkg/version"
)

// newVersionCmd creates the version command
func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display detailed version information for the Fanout CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVersion(cmd)
		},
	}

	return cmd
}

func (a *app) runVersion(cmd *cobra.Command) error {
	info := version.Get()

	format, err := a.outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON, output.FormatYAML:
		return a.formatter(format).Format(cmd.OutOrStdout(), info)
	case output.FormatTable:
		return a.formatter(format).Format(cmd.OutOrStdout(), map[string]interface{}{
			"Version":    info.Version,
			"Commit":     info.Commit,
			"Build Time": info.BuildTime,
			"Go Version": info.GoVersion,
			"Platform":   info.Platform,
		})
	default:
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	}
}
