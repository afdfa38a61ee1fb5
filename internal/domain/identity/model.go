// Package identity manages the people around a booking: examinees who attend
// the examination and referrers who request it.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Examinee maps to the examinee table.
type Examinee struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Email          string     `db:"email" json:"email"`
	Phone          string     `db:"phone" json:"phone"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Referrer maps to the referrer table. Email is unique; webhook ingestion
// resolves referrers by it.
type Referrer struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateExamineeRequest struct {
	OrganizationID uuid.UUID  `json:"organization_id" validate:"required"`
	FirstName      string     `json:"first_name" validate:"required,max=255"`
	LastName       string     `json:"last_name" validate:"required,max=255"`
	Email          string     `json:"email" validate:"required,email"`
	Phone          string     `json:"phone" validate:"required,max=64"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
}

type UpdateExamineeRequest struct {
	FirstName   string     `json:"first_name" validate:"omitempty,max=255"`
	LastName    string     `json:"last_name" validate:"omitempty,max=255"`
	Email       string     `json:"email" validate:"omitempty,email"`
	Phone       string     `json:"phone" validate:"omitempty,max=64"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

type CreateReferrerRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=255"`
	Email          string    `json:"email" validate:"required,email"`
}

type UpdateReferrerRequest struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
}
