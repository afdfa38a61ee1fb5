package documents

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
