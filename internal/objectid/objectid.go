// Package objectid implements the 64-bit object identifiers handed out for
// ingested chunks and streams.
package objectid

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ID identifies an object in the store. Its canonical form is 16 lower-case
// hexadecimal digits, e.g. "000043c5c6d5e646".
type ID uint64

// Invalid is the reserved id that never names an object
const Invalid ID = 0xffffffffffffffff

// String returns the canonical representation
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ObjectRef marks ID as an object reference for status reporting
func (id ID) ObjectRef() string {
	return id.String()
}

// IsValid reports whether id is not Invalid
func (id ID) IsValid() bool {
	return id != Invalid
}

// Parse parses the canonical representation, optionally prefixed with "o"
func Parse(s string) (ID, error) {
	if len(s) > 0 && s[0] == 'o' {
		s = s[1:]
	}
	if len(s) == 0 || len(s) > 16 {
		return Invalid, fmt.Errorf("invalid object id %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Invalid, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return ID(v), nil
}

// MarshalText implements encoding.TextMarshaler, so JSON renders the id as a string
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalYAML renders the id as its canonical string
func (id ID) MarshalYAML() (interface{}, error) {
	return id.String(), nil
}

// UnmarshalYAML parses the canonical string form
func (id *ID) UnmarshalYAML(node *yaml.Node) error {
	return id.UnmarshalText([]byte(node.Value))
}

// NewFunc generates fresh ids. It is a variable so tests can stub it.
var NewFunc = fromUUID

// New returns a fresh object id
func New() ID {
	return NewFunc()
}

// fromUUID folds a random UUID into 64 bits, skipping Invalid
func fromUUID() ID {
	for {
		u := uuid.New()
		id := ID(binary.BigEndian.Uint64(u[:8]) ^ binary.BigEndian.Uint64(u[8:]))
		if id.IsValid() {
			return id
		}
	}
}
