package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/farmer"
	"cropadvisor/ports"

	"github.com/jmoiron/sqlx"
)

const farmerColumns = `id, name, contact, password_hash, location, crops_grown, notes, created_at`

// FarmerRepositoryImpl implements FarmerRepository on sqlx
type FarmerRepositoryImpl struct {
	db *sqlx.DB
}

// NewFarmerRepository creates a new farmer repository
func NewFarmerRepository(db *sqlx.DB) ports.FarmerRepository {
	return &FarmerRepositoryImpl{db: db}
}

// Create stores a new farmer, assigning the ID and creation time when unset
func (r *FarmerRepositoryImpl) Create(ctx context.Context, f *farmer.Farmer) error {
	if f.ID == "" {
		f.ID = core.NewFarmerID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO farmers (`+farmerColumns+`)
		VALUES (:id, :name, :contact, :password_hash, :location, :crops_grown, :notes, :created_at)
	`, f)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", core.ErrDuplicateContact, f.Contact)
		}
		return fmt.Errorf("insert farmer: %w", err)
	}
	return nil
}

// GetByID retrieves a farmer by their ID
func (r *FarmerRepositoryImpl) GetByID(ctx context.Context, id core.FarmerID) (*farmer.Farmer, error) {
	return r.getOne(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE id = ?`, string(id))
}

// GetByContact retrieves a farmer by their contact
func (r *FarmerRepositoryImpl) GetByContact(ctx context.Context, contact string) (*farmer.Farmer, error) {
	return r.getOne(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE contact = ?`, contact)
}

func (r *FarmerRepositoryImpl) getOne(ctx context.Context, query string, arg string) (*farmer.Farmer, error) {
	var f farmer.Farmer
	err := r.db.GetContext(ctx, &f, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrFarmerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get farmer: %w", err)
	}
	return &f, nil
}

// ClaimAccount sets the password of a roster-imported farmer. The empty
// password_hash guard makes concurrent claims of one contact fail.
func (r *FarmerRepositoryImpl) ClaimAccount(ctx context.Context, f *farmer.Farmer) error {
	if f.PasswordHash == "" {
		return core.NewInvalidInputError("password_hash", "is required")
	}

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE farmers
		SET name = :name, password_hash = :password_hash, location = :location,
			crops_grown = :crops_grown, notes = :notes
		WHERE id = :id AND password_hash = ''
	`, f)
	if err != nil {
		return fmt.Errorf("claim farmer account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim farmer account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDuplicateContact, f.Contact)
	}
	return nil
}

// List returns farmers newest first
func (r *FarmerRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*farmer.Farmer, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	farmers := []*farmer.Farmer{}
	err := r.db.SelectContext(ctx, &farmers, r.db.Rebind(`
		SELECT `+farmerColumns+`
		FROM farmers
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list farmers: %w", err)
	}
	return farmers, nil
}
