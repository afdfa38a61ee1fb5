package audit

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

func (r *repoPG) Insert(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_event (id, actor_id, actor_role, action, entity_type, entity_id, before, after, request_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		e.ID, e.ActorID, e.ActorRole, e.Action, e.EntityType, e.EntityID,
		e.Before, e.After, e.RequestID).
		Scan(&e.CreatedAt)
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Event, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, val interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, val)
		idx++
	}
	if f.ActorID != "" {
		add(` AND actor_id = $%d`, f.ActorID)
	}
	if f.EntityType != "" {
		add(` AND entity_type = $%d`, f.EntityType)
	}
	if f.EntityID != "" {
		add(` AND entity_id = $%d`, f.EntityID)
	}
	if f.Action != "" {
		add(` AND action = $%d`, f.Action)
	}
	if !f.Since.IsZero() {
		add(` AND created_at >= $%d`, f.Since)
	}
	if !f.Until.IsZero() {
		add(` AND created_at <= $%d`, f.Until)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_event`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, actor_role, action, entity_type, entity_id, before, after, request_id, created_at
		FROM audit_event`+where+`
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.EntityType,
			&e.EntityID, &e.Before, &e.After, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &e)
	}
	return events, total, rows.Err()
}
