package farmer

import (
	"time"

	"cropadvisor/domain/core"
)

// Farmer is a registered grower. PasswordHash is never serialized.
type Farmer struct {
	ID           core.FarmerID `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Contact      string        `json:"contact" db:"contact"`
	PasswordHash string        `json:"-" db:"password_hash"`
	Location     string        `json:"location" db:"location"`
	CropsGrown   string        `json:"crops_grown" db:"crops_grown"`
	Notes        string        `json:"notes" db:"notes"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// Registration carries the signup form fields.
type Registration struct {
	Name       string `json:"name" binding:"required"`
	Contact    string `json:"contact" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Location   string `json:"location"`
	CropsGrown string `json:"crops_grown"`
	Notes      string `json:"notes"`
}

// Credentials carries the signin form fields.
type Credentials struct {
	Contact  string `json:"contact" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ImportSummary reports the outcome of a roster import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
