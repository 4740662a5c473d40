package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/status"
)

// maxCellWidth is where values are cut in non-wide tables
const maxCellWidth = 60

// TableFormatter formats output as a borderless, tab-separated table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case map[string]interface{}:
		f.formatMap(f.createTable(w), v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	default:
		fmt.Fprintln(w, v)
	}
	return nil
}

// FormatResults outputs one row per unit followed by a summary line
func (f *TableFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, "UNIT", "KIND", "STATUS", "DURATION", "VALUE")

	for _, result := range results {
		table.Append(f.resultRow(result, colors))
	}
	table.Render()

	f.printSummary(w, results, colors)
	return nil
}

// FormatMessages outputs one row per status message
func (f *TableFormatter) FormatMessages(w io.Writer, messages []status.Message) error {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)
	f.setHeader(table, colors, "TYPE", "CONTENT")

	for _, msg := range messages {
		typ := colors.StatusColor(msg.IsError())("%s", string(msg.Type))
		table.Append([]string{typ, f.cell(msg.Text())})
	}
	table.Render()
	return nil
}

// resultRow formats a single result as a table row
func (f *TableFormatter) resultRow(result executor.Result, colors *ColorScheme) []string {
	failed := result.Error != nil

	state := "Success"
	if failed {
		state = "Failed"
	}

	value := ""
	if failed {
		value = result.Error.Error()
	} else if result.Value != nil {
		value = renderValue(result.Value)
	}

	return []string{
		colors.Unit("%s", strconv.Itoa(result.Index)),
		result.Kind,
		colors.StatusColor(failed)("%s", state),
		colors.Duration("%s", result.Duration.Round(1000).String()),
		f.cell(value),
	}
}

// cell flattens a value onto one line and truncates it unless wide
func (f *TableFormatter) cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if !f.options.Wide && len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

// renderValue prints structured values as compact JSON and scalars as is
func renderValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// formatMap formats a map as a two-column table in key order
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}
	table.Render()
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, colors *ColorScheme, headers ...string) {
	if f.options.NoHeaders {
		return
	}
	if !colors.Disabled {
		for i, h := range headers {
			headers[i] = colors.Header("%s", h)
		}
	}
	table.SetHeader(headers)
}

// createTable creates a borderless table padded with tabs
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints the summary line and, when units failed, their full
// error messages, which the table cells may have truncated
func (f *TableFormatter) printSummary(w io.Writer, results []executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(results)

	successText := colors.Success("%d successful", summary.Successful)

	failedText := fmt.Sprintf("%d failed", summary.Failed)
	if summary.Failed > 0 {
		failedText = colors.Error("%s", failedText)
	}

	rateText := fmt.Sprintf("%.0f%% success", executor.SuccessRate(results))
	durationText := colors.Duration("max=%s", summary.MaxDuration.Round(1000))

	fmt.Fprintf(w, "\nSummary: %s, %s, %s, %s\n", successText, failedText, rateText, durationText)

	if !executor.HasErrors(results) {
		return
	}
	fmt.Fprintln(w, "\nErrors:")
	for _, err := range executor.GetErrors(results) {
		fmt.Fprintf(w, "  %s\n", colors.Error("%v", err))
	}
}
