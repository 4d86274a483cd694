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
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
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
	RunID      ID
	DecisionID ID
	// VariantID is the external, opaque identifier of an experiment arm.
	// Supplied by the aggregation pipeline and never generated here.
	VariantID string
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id DecisionID) String() string { return ID(id).String() }
func (id VariantID) String() string  { return string(id) }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseDecisionID parses a string into DecisionID
func ParseDecisionID(s string) (DecisionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("decision ID cannot be empty")
	}
	return DecisionID(s), nil
}

// ParseVariantID parses a string into VariantID
func ParseVariantID(s string) (VariantID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("variant ID cannot be empty")
	}
	return VariantID(s), nil
}
