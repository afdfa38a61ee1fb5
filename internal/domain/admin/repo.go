package admin

import (
	"context"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Organization, int, error)
}
