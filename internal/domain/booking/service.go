package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/domain/specialist"
	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/internal/platform/db"
)

// SpecialistDirectory resolves specialists for validation and visibility
// checks. Satisfied by specialist.Service.
type SpecialistDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*specialist.Specialist, error)
	GetByCalendarID(ctx context.Context, calendarID int64) (*specialist.Specialist, error)
	GetByUserID(ctx context.Context, userID string) (*specialist.Specialist, error)
}

// AvailabilityChecker confirms a slot is still open with the external
// provider. Satisfied by acuity.SlotChecker.
type AvailabilityChecker interface {
	SlotAvailable(ctx context.Context, calendarID int64, at time.Time) (bool, error)
}

// AuditTrail records mutation events. Satisfied by audit.Service.
type AuditTrail interface {
	Record(ctx context.Context, action, entityType, entityID string, before, after interface{})
}

// TxRunner executes fn atomically. Production wiring uses PgTxRunner; tests
// substitute a recording runner.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PgTxRunner runs fn inside a single pgx transaction.
func PgTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// Service is the sole writer of booking and booking_progress rows.
type Service struct {
	bookings     Repository
	progress     ProgressRepository
	specialists  SpecialistDirectory
	availability AvailabilityChecker
	audit        AuditTrail
	tx           TxRunner
	logger       zerolog.Logger
}

func NewService(bookings Repository, progress ProgressRepository, specialists SpecialistDirectory, tx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		bookings:    bookings,
		progress:    progress,
		specialists: specialists,
		tx:          tx,
		logger:      logger.With().Str("component", "booking").Logger(),
	}
}

// WithAvailability enables provider-side slot confirmation on create.
func (s *Service) WithAvailability(c AvailabilityChecker) *Service {
	s.availability = c
	return s
}

// WithAudit enables audit trail emission.
func (s *Service) WithAudit(a AuditTrail) *Service {
	s.audit = a
	return s
}

// Create books an examination. The referrer is the authenticated caller for
// the user role; admins must name one in the request. The booking row and its
// first progress entry are written in one transaction.
func (s *Service) Create(ctx context.Context, actor auth.Identity, req CreateBookingRequest) (*Booking, error) {
	referrerID := req.ReferrerID
	if actor.Role == auth.RoleUser {
		rid, err := uuid.Parse(actor.ID)
		if err != nil {
			return nil, apierr.AccessDenied("caller has no referrer profile")
		}
		referrerID = rid
	}
	if referrerID == uuid.Nil {
		return nil, apierr.Validation("referrer_id is required")
	}

	sp, err := s.specialists.Get(ctx, req.SpecialistID)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, apierr.NotFound("specialist not found")
	}

	if s.availability != nil {
		open, err := s.availability.SlotAvailable(ctx, sp.CalendarID, req.ScheduledAt)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, apierr.Conflict("slot at %s is no longer available", req.ScheduledAt.Format(time.RFC3339))
		}
	}

	b := &Booking{
		OrganizationID:  sp.OrganizationID,
		SpecialistID:    sp.ID,
		ExamineeID:      req.ExamineeID,
		ReferrerID:      referrerID,
		Status:          StatusActive,
		AppointmentType: AppointmentType(req.AppointmentType),
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		Notes:           req.Notes,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		return s.progress.Append(ctx, &ProgressEntry{
			BookingID: b.ID,
			ToStatus:  ProgressScheduled,
			ActorID:   actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	b.Progress = ProgressScheduled

	if s.audit != nil {
		s.audit.Record(ctx, "create", "booking", b.ID.String(), nil, b)
	}
	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("specialist_id", sp.ID.String()).
		Time("scheduled_at", b.ScheduledAt).
		Msg("booking created")
	return b, nil
}

// Get loads a booking, enforcing visibility for the caller.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("booking not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns bookings visible to the caller: admins see everything, users
// see bookings they referred, specialists see bookings assigned to them.
func (s *Service) List(ctx context.Context, actor auth.Identity, filter ListFilter, limit, offset int) ([]*Booking, int, error) {
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RoleUser:
		rid, err := uuid.Parse(actor.ID)
		if err != nil {
			return nil, 0, apierr.AccessDenied("caller has no referrer profile")
		}
		filter.ReferrerID = rid
	case auth.RoleSpecialist:
		sp, err := s.specialists.GetByUserID(ctx, actor.ID)
		if err != nil {
			if apierr.IsCode(err, apierr.CodeNotFound) {
				return nil, 0, apierr.AccessDenied("caller has no specialist profile")
			}
			return nil, 0, err
		}
		filter.SpecialistID = sp.ID
	default:
		return nil, 0, apierr.AccessDenied("unknown role")
	}
	return s.bookings.List(ctx, filter, limit, offset)
}

// UpdateProgress validates and applies a progress transition, writing the
// derived booking fields and the new log entry in one transaction. Admins may
// record a different actor on the log row via req.ActorID.
func (s *Service) UpdateProgress(ctx context.Context, actor auth.Identity, bookingID uuid.UUID, req UpdateProgressRequest) (*Booking, error) {
	b, err := s.Get(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	to, ok := ParseProgress(req.Progress)
	if !ok {
		return nil, apierr.Validation("unknown progress status %q", req.Progress)
	}

	var fromPtr *Progress
	latest, err := s.progress.Latest(ctx, bookingID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		fromPtr = &latest.ToStatus
	}

	if err := ValidateTransition(fromPtr, to); err != nil {
		return nil, err
	}

	actorID := actor.ID
	if req.ActorID != "" && actor.IsAdmin() {
		actorID = req.ActorID
	}

	beforeProgress, beforeStatus := b.Progress, b.Status
	now := time.Now().UTC()
	switch to {
	case ProgressCancelled:
		b.Status = StatusClosed
		b.CancelledAt = &now
	case ProgressNoShow:
		b.Status = StatusClosed
	case ProgressPaymentReceived:
		b.Status = StatusClosed
		b.CompletedAt = &now
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}
		return s.progress.Append(ctx, &ProgressEntry{
			BookingID:  bookingID,
			FromStatus: fromPtr,
			ToStatus:   to,
			ActorID:    actorID,
			Notes:      req.Notes,
		})
	})
	if err != nil {
		return nil, err
	}
	b.Progress = to

	if s.audit != nil {
		s.audit.Record(ctx, "update", "booking", bookingID.String(),
			map[string]interface{}{"progress": beforeProgress, "status": beforeStatus},
			map[string]interface{}{"progress": to, "status": b.Status})
	}
	s.logger.Info().
		Str("booking_id", bookingID.String()).
		Str("to_status", string(to)).
		Str("actor_id", actorID).
		Msg("booking progress updated")
	return b, nil
}

// ListProgress returns the full progress log for a booking the caller may
// see, oldest first.
func (s *Service) ListProgress(ctx context.Context, actor auth.Identity, bookingID uuid.UUID) ([]*ProgressEntry, error) {
	if _, err := s.Get(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.progress.ListByBooking(ctx, bookingID)
}

func (s *Service) authorize(ctx context.Context, actor auth.Identity, b *Booking) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleUser:
		if b.ReferrerID.String() == actor.ID {
			return nil
		}
	case auth.RoleSpecialist:
		sp, err := s.specialists.GetByUserID(ctx, actor.ID)
		if err == nil && sp.ID == b.SpecialistID {
			return nil
		}
	}
	return apierr.AccessDenied("you do not have access to this booking")
}
