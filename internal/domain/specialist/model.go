// Package specialist manages the medical specialists examinations are booked
// with. Each specialist owns one calendar on the external scheduling provider;
// webhook ingestion resolves specialists by that calendar id.
package specialist

import (
	"time"

	"github.com/google/uuid"
)

// Specialist maps to the specialist table. UserID links the specialist to an
// auth subject so the specialist role can see its own bookings.
type Specialist struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	CalendarID     int64     `db:"calendar_id" json:"calendar_id"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateSpecialistRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	UserID         *string   `json:"user_id"`
	Name           string    `json:"name" validate:"required,max=255"`
	Email          string    `json:"email" validate:"required,email"`
	CalendarID     int64     `json:"calendar_id" validate:"required,gt=0"`
}

type UpdateSpecialistRequest struct {
	UserID     *string `json:"user_id"`
	Name       string  `json:"name" validate:"omitempty,max=255"`
	Email      string  `json:"email" validate:"omitempty,email"`
	CalendarID *int64  `json:"calendar_id" validate:"omitempty,gt=0"`
	Active     *bool   `json:"active"`
}
