package admin

import (
	"context"
	"errors"

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

type organizationRepoPG struct{ pool *pgxpool.Pool }

func NewOrganizationRepoPG(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepoPG{pool: pool}
}

func (r *organizationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orgCols = `id, name, created_at, updated_at`

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pgx.ErrNoRows
	}
	return &o, err
}

func (r *organizationRepoPG) Create(ctx context.Context, o *Organization) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO organization (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`,
		o.ID, o.Name).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (r *organizationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrganization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE id = $1`, id))
}

func (r *organizationRepoPG) GetByName(ctx context.Context, name string) (*Organization, error) {
	return scanOrganization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE name = $1`, name))
}

func (r *organizationRepoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE organization SET name = $2, updated_at = NOW() WHERE id = $1`,
		o.ID, o.Name)
	return err
}

func (r *organizationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM organization WHERE id = $1`, id)
	return err
}

func (r *organizationRepoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organization`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgCols+` FROM organization ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
