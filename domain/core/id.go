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
	FarmerID         ID
	RecommendationID ID
)

func (id FarmerID) String() string         { return ID(id).String() }
func (id RecommendationID) String() string { return ID(id).String() }

// NewFarmerID creates a time-ordered farmer identifier
func NewFarmerID() FarmerID { return FarmerID(NewID()) }

// NewRecommendationID creates a time-ordered recommendation identifier
func NewRecommendationID() RecommendationID { return RecommendationID(NewID()) }

// ParseFarmerID parses a string into FarmerID. Farmer IDs are UUIDs.
func ParseFarmerID(s string) (FarmerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: farmer ID cannot be empty", ErrInvalidInput)
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("%w: farmer ID %q is not a UUID", ErrInvalidInput, s)
	}
	return FarmerID(s), nil
}
