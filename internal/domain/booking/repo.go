package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists booking rows. Reads hydrate the Progress field from
// the latest progress log entry.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByAcuityID(ctx context.Context, acuityID int64) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Booking, int, error)
}

// ProgressRepository appends to and reads the booking progress log. Rows are
// never updated or deleted.
type ProgressRepository interface {
	Append(ctx context.Context, e *ProgressEntry) error
	Latest(ctx context.Context, bookingID uuid.UUID) (*ProgressEntry, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*ProgressEntry, error)
}
