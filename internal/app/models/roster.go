package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// DefaultIdentifierName labels roster identifiers when the instructor gives none
const DefaultIdentifierName = "Identifiers"

// Roster is a named list of students
type Roster struct {
	ID             int64          `json:"id" db:"id"`
	IdentifierName string         `json:"identifierName" db:"identifier_name"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
	Entries        []*RosterEntry `json:"entries,omitempty" db:"-"`
}

// RosterEntry is one student slot, optionally linked to a user
type RosterEntry struct {
	ID           int64     `json:"id" db:"id"`
	RosterID     int64     `json:"rosterId" db:"roster_id"`
	UserID       *int64    `json:"userId,omitempty" db:"user_id"`
	Identifier   string    `json:"identifier" db:"identifier"`
	GoogleUserID *string   `json:"googleUserId,omitempty" db:"google_user_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	User         *User     `json:"user,omitempty" db:"-"`
}

// IsLinked reports whether the entry points at a user
func (e *RosterEntry) IsLinked() bool {
	return e.UserID != nil
}

// Validate checks the fields that must always be present
func (e *RosterEntry) Validate() error {
	if strings.TrimSpace(e.Identifier) == "" {
		return fmt.Errorf("%w: identifier can't be blank", apperrors.ErrValidationFailed)
	}
	if e.RosterID <= 0 {
		return fmt.Errorf("%w: roster can't be blank", apperrors.ErrValidationFailed)
	}
	return nil
}
