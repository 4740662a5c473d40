package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/status"
)

// JSONFormatter formats output as indented JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatResults outputs pool results as a JSON array
func (f *JSONFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	return f.Format(w, Records(results))
}

// FormatMessages outputs status messages as a JSON array
func (f *JSONFormatter) FormatMessages(w io.Writer, messages []status.Message) error {
	if messages == nil {
		messages = []status.Message{}
	}
	return f.Format(w, messages)
}
