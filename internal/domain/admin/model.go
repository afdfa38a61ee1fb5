// Package admin manages organizations, the top-level grouping every
// specialist, examinee and booking hangs off.
package admin

import (
	"time"

	"github.com/google/uuid"
)

// Organization maps to the organization table.
type Organization struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateOrganizationRequest is the payload for POST /organizations.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// UpdateOrganizationRequest is the payload for PUT /organizations/:id.
type UpdateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}
