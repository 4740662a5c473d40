// Package output renders fanout results for humans and scripts.
//
// A run normally reports through the one-line status protocol (see package
// status). When a different format is requested with -o, the per-unit
// results of the pool are rendered instead:
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(true))
//	formatter.FormatResults(os.Stdout, pool.Results())
//
// The decode command uses FormatMessages to render status lines read back
// from a child process.
//
// Tables are borderless and tab-separated. Colors are used only when the
// writer is a terminal and WithNoColor is not set.
package output
