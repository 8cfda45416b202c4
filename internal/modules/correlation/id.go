// Package correlation binds a correlation id to every inbound HTTP request
// and exposes it to the handlers that serve it.
package correlation

import (
	"github.com/google/uuid"
)

// canonicalLength is the length of the 8-4-4-4-12 hyphenated form.
const canonicalLength = 36

// ID identifies a single inbound request and everything done on its behalf.
// IDs are comparable and safe to use as map keys.
type ID struct {
	uuid uuid.UUID
}

// Generate returns a new random (version 4) ID.
func Generate() ID {
	return ID{uuid: uuid.New()}
}

// Parse accepts only the hyphenated 8-4-4-4-12 hex form, in any case.
// Pinning the length keeps uuid.Parse from taking braces, urn prefixes
// and the compact 32 digit form.
func Parse(text string) (ID, error) {
	if len(text) != canonicalLength {
		return ID{}, errInvalidFormat(text)
	}

	u, err := uuid.Parse(text)
	if err != nil {
		return ID{}, errInvalidFormat(text)
	}

	return ID{uuid: u}, nil
}

func MustParse(text string) ID {
	id, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return id
}

// String returns the canonical lowercase hyphenated form.
func (id ID) String() string {
	return id.uuid.String()
}

func (id ID) IsZero() bool {
	return id.uuid == uuid.Nil
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

type Generator interface {
	Generate() ID
}

type GeneratorFunc func() ID

func (f GeneratorFunc) Generate() ID {
	return f()
}

// UUIDGenerator is the default Generator.
var UUIDGenerator Generator = GeneratorFunc(Generate)
