package documents

import (
	"context"

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

const cols = `id, booking_id, category, filename, content_type, size_bytes, storage_key, uploaded_by, created_at`

func scan(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.BookingID, &d.Category, &d.Filename, &d.ContentType,
		&d.SizeBytes, &d.StorageKey, &d.UploadedBy, &d.CreatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO document (id, booking_id, category, filename, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		d.ID, d.BookingID, d.Category, d.Filename, d.ContentType,
		d.SizeBytes, d.StorageKey, d.UploadedBy).
		Scan(&d.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM document WHERE id = $1`, id))
}

func (r *repoPG) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM document WHERE booking_id = $1 ORDER BY created_at ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	return err
}
