package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseFarmerID tests farmer ID parsing
func TestParseFarmerID(t *testing.T) {
	valid := NewFarmerID().String()

	tests := []struct {
		input    string
		expected FarmerID
		hasError bool
	}{
		{valid, FarmerID(valid), false},
		{"  " + valid + " ", FarmerID(valid), false},
		{"", "", true},
		{"   ", "", true},
		{"farmer-42", "", true},
	}

	for _, tt := range tests {
		result, err := ParseFarmerID(tt.input)
		if tt.hasError {
			if err == nil {
				t.Errorf("ParseFarmerID(%q) expected error, got nil", tt.input)
			} else if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseFarmerID(%q) error should wrap ErrInvalidInput, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFarmerID(%q) unexpected error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("ParseFarmerID(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

// TestHashFloatsBitExact tests that the float hash distinguishes bit patterns
func TestHashFloatsBitExact(t *testing.T) {
	a := HashFloats(90, 42, 43, 20.8)
	b := HashFloats(90, 42, 43, 20.8)
	if !a.Equals(b) {
		t.Errorf("Expected equal hashes for equal inputs, got %s and %s", a, b)
	}

	c := HashFloats(90, 42, 43, 20.800000000000001)
	d := HashFloats(90, 42, 43, 20.81)
	if a.Equals(d) {
		t.Error("Expected different hashes for different inputs")
	}
	// 20.800000000000001 parses to the same float64 as 20.8
	if !a.Equals(c) {
		t.Error("Expected identical float64 values to hash equal")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected 12 character short hash, got %q", a.Short())
	}
}
