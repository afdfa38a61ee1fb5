package identity

import (
	"context"

	"github.com/google/uuid"
)

type ExamineeRepository interface {
	Create(ctx context.Context, e *Examinee) error
	GetByID(ctx context.Context, id uuid.UUID) (*Examinee, error)
	Update(ctx context.Context, e *Examinee) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Examinee, int, error)
}

type ReferrerRepository interface {
	Create(ctx context.Context, r *Referrer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referrer, error)
	GetByEmail(ctx context.Context, email string) (*Referrer, error)
	Update(ctx context.Context, r *Referrer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Referrer, int, error)
}
