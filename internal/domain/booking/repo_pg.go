package booking

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// bookingCols joins the latest progress row in so a single read answers both
// the booking and its current progress state.
const bookingCols = `
	b.id, b.organization_id, b.specialist_id, b.examinee_id, b.referrer_id,
	b.status, b.appointment_type, b.scheduled_at, b.duration_minutes,
	b.location, b.acuity_appointment_id, b.notes, b.completed_at,
	b.cancelled_at, b.created_at, b.updated_at,
	COALESCE((SELECT p.to_status FROM booking_progress p
	          WHERE p.booking_id = b.id
	          ORDER BY p.created_at DESC, p.id DESC LIMIT 1), '')`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.OrganizationID, &b.SpecialistID, &b.ExamineeID,
		&b.ReferrerID, &b.Status, &b.AppointmentType, &b.ScheduledAt,
		&b.DurationMinutes, &b.Location, &b.AcuityAppointmentID, &b.Notes,
		&b.CompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt, &b.Progress)
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO booking (id, organization_id, specialist_id, examinee_id, referrer_id,
			status, appointment_type, scheduled_at, duration_minutes, location,
			acuity_appointment_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		b.ID, b.OrganizationID, b.SpecialistID, b.ExamineeID, b.ReferrerID,
		b.Status, b.AppointmentType, b.ScheduledAt, b.DurationMinutes, b.Location,
		b.AcuityAppointmentID, b.Notes).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return scanBooking(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM booking b WHERE b.id = $1`, id))
}

func (r *repoPG) GetByAcuityID(ctx context.Context, acuityID int64) (*Booking, error) {
	return scanBooking(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM booking b WHERE b.acuity_appointment_id = $1`, acuityID))
}

func (r *repoPG) Update(ctx context.Context, b *Booking) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE booking
		SET status=$2, scheduled_at=$3, duration_minutes=$4, location=$5,
			notes=$6, completed_at=$7, cancelled_at=$8, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.ScheduledAt, b.DurationMinutes, b.Location,
		b.Notes, b.CompletedAt, b.CancelledAt)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Booking, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause string, val interface{}) {
		where += fmt.Sprintf(clause, idx)
		args = append(args, val)
		idx++
	}
	if f.Status != "" {
		add(` AND b.status = $%d`, f.Status)
	}
	if f.SpecialistID != uuid.Nil {
		add(` AND b.specialist_id = $%d`, f.SpecialistID)
	}
	if f.ReferrerID != uuid.Nil {
		add(` AND b.referrer_id = $%d`, f.ReferrerID)
	}
	if !f.StartDate.IsZero() {
		add(` AND b.scheduled_at >= $%d`, f.StartDate)
	}
	if !f.EndDate.IsZero() {
		add(` AND b.scheduled_at <= $%d`, f.EndDate)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM booking b`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+bookingCols+` FROM booking b`+where+
		` ORDER BY b.scheduled_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

type progressRepoPG struct{ pool *pgxpool.Pool }

func NewProgressRepoPG(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepoPG{pool: pool}
}

func (r *progressRepoPG) Append(ctx context.Context, e *ProgressEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO booking_progress (id, booking_id, from_status, to_status, actor_id, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		e.ID, e.BookingID, e.FromStatus, e.ToStatus, e.ActorID, e.Notes).
		Scan(&e.CreatedAt)
}

func (r *progressRepoPG) Latest(ctx context.Context, bookingID uuid.UUID) (*ProgressEntry, error) {
	var e ProgressEntry
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_id, notes, created_at
		FROM booking_progress
		WHERE booking_id = $1
		ORDER BY created_at DESC, id DESC LIMIT 1`, bookingID).
		Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Notes, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *progressRepoPG) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*ProgressEntry, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_id, notes, created_at
		FROM booking_progress
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus,
			&e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
