package ports

import (
	"context"

	"cropadvisor/domain/core"
	"cropadvisor/domain/farmer"
)

// FarmerRepository defines the interface for farmer record operations
type FarmerRepository interface {
	// Create stores a new farmer. Returns core.ErrDuplicateContact when the contact is taken.
	Create(ctx context.Context, f *farmer.Farmer) error

	// GetByID retrieves a farmer by ID, or core.ErrFarmerNotFound
	GetByID(ctx context.Context, id core.FarmerID) (*farmer.Farmer, error)

	// GetByContact retrieves a farmer by contact, or core.ErrFarmerNotFound
	GetByContact(ctx context.Context, contact string) (*farmer.Farmer, error)

	// ClaimAccount stores the password hash and profile of a farmer created
	// without a password. Returns core.ErrDuplicateContact when the record
	// already has a password.
	ClaimAccount(ctx context.Context, f *farmer.Farmer) error

	// List returns farmers newest first
	List(ctx context.Context, limit, offset int) ([]*farmer.Farmer, error)
}
