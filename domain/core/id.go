package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID        ID
	InstrumentID string
)

func (id RunID) String() string        { return ID(id).String() }
func (id InstrumentID) String() string { return string(id) }

// NewRunID creates a time-ordered screening run identifier
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid run ID %q: %w", s, err)
	}
	return RunID(s), nil
}

// ParseInstrumentID trims and validates an instrument identifier
func ParseInstrumentID(s string) (InstrumentID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewInvalidInputError("instrument", "identifier cannot be empty")
	}
	return InstrumentID(s), nil
}
