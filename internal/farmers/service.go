// Package farmers manages farmer accounts: signup, signin, listing and roster
// imports.
package farmers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cropadvisor/adapters/excel"
	"cropadvisor/domain/core"
	"cropadvisor/domain/farmer"
	"cropadvisor/internal"
	"cropadvisor/ports"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced at signup
const MinPasswordLength = 6

// Service implements farmer account operations
type Service struct {
	repo   ports.FarmerRepository
	cost   int
	logger *internal.Logger
}

// NewService creates a farmer service hashing passwords at bcryptCost
func NewService(repo ports.FarmerRepository, bcryptCost int, logger *internal.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Service{repo: repo, cost: bcryptCost, logger: logger}
}

// Signup registers a farmer. Contacts are unique, except that a roster
// entry without a password is claimed by the first signup for its contact.
func (s *Service) Signup(ctx context.Context, reg farmer.Registration) (*farmer.Farmer, error) {
	name := strings.TrimSpace(reg.Name)
	contact := normalizeContact(reg.Contact)
	if name == "" {
		return nil, core.NewInvalidInputError("name", "is required")
	}
	if contact == "" {
		return nil, core.NewInvalidInputError("contact", "is required")
	}
	if len(reg.Password) < MinPasswordLength {
		return nil, core.NewInvalidInputError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	existing, err := s.repo.GetByContact(ctx, contact)
	switch {
	case err == nil && existing.PasswordHash != "":
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateContact, contact)
	case err != nil && !core.IsNotFoundError(err):
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// roster imports create farmers without a password; signup claims them
	if existing != nil {
		existing.Name = name
		existing.PasswordHash = string(hash)
		existing.Location = keep(existing.Location, reg.Location)
		existing.CropsGrown = keep(existing.CropsGrown, reg.CropsGrown)
		existing.Notes = keep(existing.Notes, reg.Notes)
		if err := s.repo.ClaimAccount(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("[FarmerService] imported farmer %s claimed their account", existing.ID)
		return existing, nil
	}

	f := &farmer.Farmer{
		Name:         name,
		Contact:      contact,
		PasswordHash: string(hash),
		Location:     strings.TrimSpace(reg.Location),
		CropsGrown:   strings.TrimSpace(reg.CropsGrown),
		Notes:        strings.TrimSpace(reg.Notes),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("[FarmerService] registered farmer %s", f.ID)
	return f, nil
}

// Signin checks credentials. Unknown contacts and wrong passwords both
// report core.ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, creds farmer.Credentials) (*farmer.Farmer, error) {
	contact := normalizeContact(creds.Contact)
	f, err := s.repo.GetByContact(ctx, contact)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	// unclaimed roster entry
	if f.PasswordHash == "" {
		return nil, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(f.PasswordHash), []byte(creds.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	return f, nil
}

// Get returns one farmer
func (s *Service) Get(ctx context.Context, id core.FarmerID) (*farmer.Farmer, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns farmers newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*farmer.Farmer, error) {
	return s.repo.List(ctx, limit, offset)
}

// Import adds the farmers of a roster sheet. Rows need name and contact
// columns; location, crops_grown and notes are optional. Rows whose contact
// is already registered are skipped, malformed rows are reported per line.
func (s *Service) Import(ctx context.Context, table *excel.Table) (*farmer.ImportSummary, error) {
	summary := &farmer.ImportSummary{}
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		f := rosterFarmer(row.Values)
		if f.Name == "" || f.Contact == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: name and contact are required", row.Line))
			continue
		}

		err := s.repo.Create(ctx, f)
		switch {
		case err == nil:
			summary.Imported++
		case errors.Is(err, core.ErrDuplicateContact):
			summary.Skipped++
		default:
			return summary, fmt.Errorf("import line %d: %w", row.Line, err)
		}
	}

	s.logger.Info("[FarmerService] roster import: %d imported, %d skipped, %d invalid",
		summary.Imported, summary.Skipped, len(summary.Errors))
	return summary, nil
}

func rosterFarmer(values map[string]string) *farmer.Farmer {
	get := func(keys ...string) string {
		for key, v := range values {
			k := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
			for _, want := range keys {
				if k == want {
					return strings.TrimSpace(v)
				}
			}
		}
		return ""
	}
	return &farmer.Farmer{
		Name:       get("name", "farmer_name"),
		Contact:    normalizeContact(get("contact", "phone", "mobile")),
		Location:   get("location", "village"),
		CropsGrown: get("crops_grown", "crops"),
		Notes:      get("notes"),
	}
}

// keep prefers a non-blank form value over the stored one
func keep(stored, submitted string) string {
	if v := strings.TrimSpace(submitted); v != "" {
		return v
	}
	return stored
}

func normalizeContact(contact string) string {
	return strings.Join(strings.Fields(contact), "")
}
