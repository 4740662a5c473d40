package status

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aryankumar/fanout/internal/util"
)

// maxLineSize bounds a single status line; error content carries full stacks
const maxLineSize = 4 * 1024 * 1024

// Message is a decoded status message
type Message struct {
	Type    Type        `json:"type" yaml:"type"`
	Content interface{} `json:"content" yaml:"content"`
}

// IsError reports whether the message reports a failure
func (m Message) IsError() bool {
	return m.Type == TypeError
}

// Text returns string content as is and any other content as JSON
func (m Message) Text() string {
	if s, ok := m.Content.(string); ok {
		return s
	}
	data, err := json.Marshal(m.Content)
	if err != nil {
		return fmt.Sprintf("%v", m.Content)
	}
	return string(data)
}

// Decode parses one status line. The line must be a JSON object with exactly
// the keys "type" and "content", and type must be "error" or "return".
func Decode(line []byte) (Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(line), &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", util.ErrMalformedStatus, err)
	}

	typeRaw, hasType := raw["type"]
	contentRaw, hasContent := raw["content"]
	if !hasType || !hasContent || len(raw) != 2 {
		return Message{}, fmt.Errorf("%w: want exactly the keys \"type\" and \"content\"", util.ErrMalformedStatus)
	}

	var msg Message
	if err := json.Unmarshal(typeRaw, &msg.Type); err != nil {
		return Message{}, fmt.Errorf("%w: type: %v", util.ErrMalformedStatus, err)
	}
	if !msg.Type.Valid() {
		return Message{}, fmt.Errorf("%w: unknown type %q", util.ErrMalformedStatus, msg.Type)
	}
	if err := json.Unmarshal(contentRaw, &msg.Content); err != nil {
		return Message{}, fmt.Errorf("%w: content: %v", util.ErrMalformedStatus, err)
	}
	return msg, nil
}

// Scanner reads a child process's output as a stream of status messages.
// Lines that are not status messages are kept as diagnostics.
type Scanner struct {
	sc          *bufio.Scanner
	msg         Message
	diagnostics []string
}

// NewScanner creates a scanner reading from r
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{sc: sc}
}

// Scan advances to the next status message, returning false at the end of
// input or on a read error
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		line := s.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg, err := Decode(line)
		if err != nil {
			s.diagnostics = append(s.diagnostics, string(line))
			continue
		}
		s.msg = msg
		return true
	}
	return false
}

// Message returns the message found by the last successful Scan
func (s *Scanner) Message() Message {
	return s.msg
}

// Diagnostics returns the non-status lines seen so far
func (s *Scanner) Diagnostics() []string {
	return s.diagnostics
}

// Err returns the first read error encountered
func (s *Scanner) Err() error {
	return s.sc.Err()
}

// ReadAll collects every status message from r
func ReadAll(r io.Reader) ([]Message, []string, error) {
	sc := NewScanner(r)
	var msgs []Message
	for sc.Scan() {
		msgs = append(msgs, sc.Message())
	}
	return msgs, sc.Diagnostics(), sc.Err()
}
