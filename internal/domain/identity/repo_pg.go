package identity

import (
	"context"
	"strings"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Examinee Repository ===========

type examineeRepoPG struct{ pool *pgxpool.Pool }

func NewExamineeRepoPG(pool *pgxpool.Pool) ExamineeRepository {
	return &examineeRepoPG{pool: pool}
}

const examineeCols = `id, organization_id, first_name, last_name, email, phone,
	date_of_birth, created_at, updated_at`

func scanExaminee(row pgx.Row) (*Examinee, error) {
	var e Examinee
	err := row.Scan(&e.ID, &e.OrganizationID, &e.FirstName, &e.LastName, &e.Email,
		&e.Phone, &e.DateOfBirth, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *examineeRepoPG) Create(ctx context.Context, e *Examinee) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO examinee (id, organization_id, first_name, last_name, email, phone, date_of_birth)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		e.ID, e.OrganizationID, e.FirstName, e.LastName, e.Email, e.Phone, e.DateOfBirth).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *examineeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Examinee, error) {
	return scanExaminee(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+examineeCols+` FROM examinee WHERE id = $1`, id))
}

func (r *examineeRepoPG) Update(ctx context.Context, e *Examinee) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE examinee
		SET first_name=$2, last_name=$3, email=$4, phone=$5, date_of_birth=$6, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Phone, e.DateOfBirth)
	return err
}

func (r *examineeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM examinee WHERE id = $1`, id)
	return err
}

func (r *examineeRepoPG) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Examinee, int, error) {
	where := ``
	args := []interface{}{}
	if organizationID != uuid.Nil {
		where = ` WHERE organization_id = $1`
		args = append(args, organizationID)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM examinee`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examineeCols + ` FROM examinee` + where +
		` ORDER BY last_name, first_name` + limitOffset(len(args))
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Examinee
	for rows.Next() {
		e, err := scanExaminee(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// =========== Referrer Repository ===========

type referrerRepoPG struct{ pool *pgxpool.Pool }

func NewReferrerRepoPG(pool *pgxpool.Pool) ReferrerRepository {
	return &referrerRepoPG{pool: pool}
}

const referrerCols = `id, organization_id, name, email, created_at, updated_at`

func scanReferrer(row pgx.Row) (*Referrer, error) {
	var rf Referrer
	err := row.Scan(&rf.ID, &rf.OrganizationID, &rf.Name, &rf.Email, &rf.CreatedAt, &rf.UpdatedAt)
	return &rf, err
}

func (r *referrerRepoPG) Create(ctx context.Context, rf *Referrer) error {
	if rf.ID == uuid.Nil {
		rf.ID = uuid.New()
	}
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO referrer (id, organization_id, name, email)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		rf.ID, rf.OrganizationID, rf.Name, strings.ToLower(rf.Email)).
		Scan(&rf.CreatedAt, &rf.UpdatedAt)
}

func (r *referrerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referrer, error) {
	return scanReferrer(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+referrerCols+` FROM referrer WHERE id = $1`, id))
}

func (r *referrerRepoPG) GetByEmail(ctx context.Context, email string) (*Referrer, error) {
	return scanReferrer(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+referrerCols+` FROM referrer WHERE email = $1`, strings.ToLower(email)))
}

func (r *referrerRepoPG) Update(ctx context.Context, rf *Referrer) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE referrer SET name=$2, email=$3, updated_at=NOW() WHERE id = $1`,
		rf.ID, rf.Name, strings.ToLower(rf.Email))
	return err
}

func (r *referrerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM referrer WHERE id = $1`, id)
	return err
}

func (r *referrerRepoPG) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Referrer, int, error) {
	where := ``
	args := []interface{}{}
	if organizationID != uuid.Nil {
		where = ` WHERE organization_id = $1`
		args = append(args, organizationID)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM referrer`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + referrerCols + ` FROM referrer` + where +
		` ORDER BY name` + limitOffset(len(args))
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Referrer
	for rows.Next() {
		rf, err := scanReferrer(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rf)
	}
	return items, total, rows.Err()
}

func limitOffset(argCount int) string {
	switch argCount {
	case 0:
		return ` LIMIT $1 OFFSET $2`
	default:
		return ` LIMIT $2 OFFSET $3`
	}
}
