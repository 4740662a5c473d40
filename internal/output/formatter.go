package output

import (
	"fmt"
	"io"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/status"
	"github.com/aryankumar/fanout/internal/util"
)

// Format names an output format selectable with -o
type Format string

// FormatStatus is the single status line of a run. It is written by
// status.Reporter, so NewFormatter maps it to the table formatter.
const (
	FormatStatus Format = "status"
	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat validates a format name given on the command line
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatStatus, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want status, table, json or yaml)", util.ErrInvalidConfig, s)
	}
}

// Formatter renders data, pool results and decoded status messages
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatResults outputs the per-unit results of a pool run
	FormatResults(w io.Writer, results []executor.Result) error

	// FormatMessages outputs decoded status messages
	FormatMessages(w io.Writer, messages []status.Message) error
}

// Option configures a formatter
type Option func(*Options)

// Options holds the settings shared by all formatters. Only the table
// formatter looks at them; JSON and YAML output is never colored.
type Options struct {
	NoColor   bool
	NoHeaders bool

	// Wide keeps long table cells untruncated
	Wide bool
}

func WithNoColor(noColor bool) Option {
	return func(o *Options) { o.NoColor = noColor }
}

func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) { o.NoHeaders = noHeaders }
}

func WithWide(wide bool) Option {
	return func(o *Options) { o.Wide = wide }
}

// NewFormatter returns the formatter for format; anything other than JSON or
// YAML renders as a table
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}

// ResultRecord is the serialized form of one executor.Result
type ResultRecord struct {
	Unit     int         `json:"unit" yaml:"unit"`
	Kind     string      `json:"kind" yaml:"kind"`
	Status   string      `json:"status" yaml:"status"`
	Duration string      `json:"duration" yaml:"duration"`
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Records converts results to their serialized form
func Records(results []executor.Result) []ResultRecord {
	records := make([]ResultRecord, len(results))
	for i, r := range results {
		rec := ResultRecord{
			Unit:     r.Index,
			Kind:     r.Kind,
			Status:   "success",
			Duration: r.Duration.String(),
			Value:    r.Value,
		}
		if r.Error != nil {
			rec.Status = "failed"
			rec.Error = r.Error.Error()
			rec.Value = nil
		}
		records[i] = rec
	}
	return records
}
