package specialist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medexam/medexam/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const cols = `id, organization_id, user_id, name, email, calendar_id, active, created_at, updated_at`

func scan(row pgx.Row) (*Specialist, error) {
	var s Specialist
	err := row.Scan(&s.ID, &s.OrganizationID, &s.UserID, &s.Name, &s.Email,
		&s.CalendarID, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Specialist) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO specialist (id, organization_id, user_id, name, email, calendar_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.OrganizationID, s.UserID, s.Name, s.Email, s.CalendarID, s.Active).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM specialist WHERE id = $1`, id))
}

func (r *repoPG) GetByCalendarID(ctx context.Context, calendarID int64) (*Specialist, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM specialist WHERE calendar_id = $1`, calendarID))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*Specialist, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM specialist WHERE user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, s *Specialist) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE specialist
		SET user_id=$2, name=$3, email=$4, calendar_id=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.UserID, s.Name, s.Email, s.CalendarID, s.Active)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM specialist WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, organizationID uuid.UUID, activeOnly bool, limit, offset int) ([]*Specialist, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if organizationID != uuid.Nil {
		where += fmt.Sprintf(` AND organization_id = $%d`, idx)
		args = append(args, organizationID)
		idx++
	}
	if activeOnly {
		where += ` AND active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM specialist`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+cols+` FROM specialist`+where+` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Specialist
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
