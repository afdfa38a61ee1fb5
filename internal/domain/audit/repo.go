package audit

import "context"

type Repository interface {
	Insert(ctx context.Context, e *Event) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, int, error)
}
