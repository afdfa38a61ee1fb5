package specialist

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "specialist").Logger()}
}

func (s *Service) Create(ctx context.Context, req CreateSpecialistRequest) (*Specialist, error) {
	if existing, err := s.repo.GetByCalendarID(ctx, req.CalendarID); err == nil && existing != nil {
		return nil, apierr.Conflict("calendar %d is already assigned to specialist %s", req.CalendarID, existing.ID)
	}

	sp := &Specialist{
		OrganizationID: req.OrganizationID,
		UserID:         req.UserID,
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		CalendarID:     req.CalendarID,
		Active:         true,
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	s.logger.Info().Str("specialist_id", sp.ID.String()).Int64("calendar_id", sp.CalendarID).Msg("specialist created")
	return sp, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("specialist not found")
	}
	return sp, err
}

// GetByCalendarID resolves the specialist owning an external calendar.
func (s *Service) GetByCalendarID(ctx context.Context, calendarID int64) (*Specialist, error) {
	sp, err := s.repo.GetByCalendarID(ctx, calendarID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("no specialist for calendar %d", calendarID)
	}
	return sp, err
}

// GetByUserID resolves the specialist linked to an auth subject. Used by the
// booking visibility rules for the specialist role.
func (s *Service) GetByUserID(ctx context.Context, userID string) (*Specialist, error) {
	sp, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("no specialist for user %s", userID)
	}
	return sp, err
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateSpecialistRequest) (*Specialist, error) {
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CalendarID != nil && *req.CalendarID != sp.CalendarID {
		if existing, err := s.repo.GetByCalendarID(ctx, *req.CalendarID); err == nil && existing != nil {
			return nil, apierr.Conflict("calendar %d is already assigned to specialist %s", *req.CalendarID, existing.ID)
		}
		sp.CalendarID = *req.CalendarID
	}
	if req.UserID != nil {
		sp.UserID = req.UserID
	}
	if req.Name != "" {
		sp.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		sp.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Active != nil {
		sp.Active = *req.Active
	}

	if err := s.repo.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, organizationID uuid.UUID, activeOnly bool, limit, offset int) ([]*Specialist, int, error) {
	return s.repo.List(ctx, organizationID, activeOnly, limit, offset)
}
