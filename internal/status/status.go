// Package status implements the line-delimited JSON status channel a stream
// executor process uses to tell its supervising process how it finished.
//
// Every message is a single line holding a JSON object with exactly two keys:
//
//	{"type": "return", "content": "000043c5c6d5e646"}
//	{"type": "error", "content": "read partition 2: ...stack..."}
//
// The encoding uses ", " and ": " separators and escapes non-ASCII
// characters, byte-for-byte what existing supervisors already parse.
package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
)

// Type is the kind of a status message
type Type string

const (
	// TypeError reports a failure; content is the formatted error and stack
	TypeError Type = "error"

	// TypeReturn reports success; content is the serialized result
	TypeReturn Type = "return"
)

// Valid reports whether t is one of the protocol's message types
func (t Type) Valid() bool {
	return t == TypeError || t == TypeReturn
}

// ObjectRef is implemented by object identifiers; they are reported as their
// canonical string rather than their numeric value
type ObjectRef interface {
	ObjectRef() string
}

type flusher interface {
	Flush() error
}

type syncer interface {
	Sync() error
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Reporter writes status messages to an injected writer
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes one message of the given type. The line is flushed before
// Report returns when the writer supports Flush or Sync.
func (r *Reporter) Report(typ Type, content interface{}) error {
	line, err := Encode(typ, content)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(line); err != nil {
		return fmt.Errorf("failed to write status message: %w", err)
	}

	switch w := r.w.(type) {
	case flusher:
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to flush status message: %w", err)
		}
	case syncer:
		// Sync fails on pipes and terminals; the write already reached them.
		_ = w.Sync()
	}
	return nil
}

// Error reports a failure with a preformatted message
func (r *Reporter) Error(content string) error {
	return r.Report(TypeError, content)
}

// Success reports a result. Object references are reported by their
// canonical string form.
func (r *Reporter) Success(content interface{}) error {
	if ref, ok := content.(ObjectRef); ok {
		content = ref.ObjectRef()
	}
	return r.Report(TypeReturn, content)
}

// Exception reports err as a failure whose content is the error message
// followed by a stack trace. The deepest stack recorded in err's chain is
// used; if there is none, the caller's stack is captured.
func (r *Reporter) Exception(err error) error {
	if err == nil {
		return r.Error("")
	}
	return r.Error(FormatException(err))
}

// FormatException renders err the way Exception reports it
func FormatException(err error) string {
	var st stackTracer
	if !errors.As(err, &st) {
		errors.As(pkgerrors.WithStack(err), &st)
	}

	var sb strings.Builder
	sb.WriteString(err.Error())
	fmt.Fprintf(&sb, "%+v", st.StackTrace())
	return sb.String()
}

// Encode renders a single newline-terminated status line
func Encode(typ Type, content interface{}) ([]byte, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown status type %q", typ)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Type    Type        `json:"type"`
		Content interface{} `json:"content"`
	}{typ, content}); err != nil {
		return nil, fmt.Errorf("failed to encode status content: %w", err)
	}

	compact := bytes.TrimRight(buf.Bytes(), "\n")
	line := spaced(compact)
	return append(line, '\n'), nil
}

// spaced rewrites compact JSON with ", " and ": " separators and \u escapes
// for DEL and every non-ASCII character
func spaced(compact []byte) []byte {
	out := make([]byte, 0, len(compact)+len(compact)/4)
	inString := false

	for i := 0; i < len(compact); {
		c := compact[i]

		if inString {
			switch {
			case c == '\\':
				out = append(out, c, compact[i+1])
				i += 2
				continue
			case c == '"':
				inString = false
			case c == 0x7f:
				out = appendEscapedRune(out, rune(c))
				i++
				continue
			case c >= utf8.RuneSelf:
				r, size := utf8.DecodeRune(compact[i:])
				out = appendEscapedRune(out, r)
				i += size
				continue
			}
			out = append(out, c)
			i++
			continue
		}

		out = append(out, c)
		switch c {
		case '"':
			inString = true
		case ',', ':':
			out = append(out, ' ')
		}
		i++
	}
	return out
}

func appendEscapedRune(out []byte, r rune) []byte {
	if r >= 0x10000 {
		r1, r2 := utf16.EncodeRune(r)
		out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
		return out
	}
	return fmt.Appendf(out, `\u%04x`, r)
}
