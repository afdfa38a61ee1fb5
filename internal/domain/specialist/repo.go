package specialist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Specialist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialist, error)
	GetByCalendarID(ctx context.Context, calendarID int64) (*Specialist, error)
	GetByUserID(ctx context.Context, userID string) (*Specialist, error)
	Update(ctx context.Context, s *Specialist) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, organizationID uuid.UUID, activeOnly bool, limit, offset int) ([]*Specialist, int, error)
}
