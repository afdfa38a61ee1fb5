package identity

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
	examinees ExamineeRepository
	referrers ReferrerRepository
	logger    zerolog.Logger
}

func NewService(examinees ExamineeRepository, referrers ReferrerRepository, logger zerolog.Logger) *Service {
	return &Service{
		examinees: examinees,
		referrers: referrers,
		logger:    logger.With().Str("component", "identity").Logger(),
	}
}

// -- Examinee --

func (s *Service) CreateExaminee(ctx context.Context, req CreateExamineeRequest) (*Examinee, error) {
	e := &Examinee{
		OrganizationID: req.OrganizationID,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		DateOfBirth:    req.DateOfBirth,
	}
	if err := s.examinees.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetExaminee(ctx context.Context, id uuid.UUID) (*Examinee, error) {
	e, err := s.examinees.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("examinee not found")
	}
	return e, err
}

func (s *Service) UpdateExaminee(ctx context.Context, id uuid.UUID, req UpdateExamineeRequest) (*Examinee, error) {
	e, err := s.GetExaminee(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != "" {
		e.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		e.LastName = strings.TrimSpace(req.LastName)
	}
	if req.Email != "" {
		e.Email = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		e.Phone = strings.TrimSpace(req.Phone)
	}
	if req.DateOfBirth != nil {
		e.DateOfBirth = req.DateOfBirth
	}
	if err := s.examinees.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) DeleteExaminee(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetExaminee(ctx, id); err != nil {
		return err
	}
	return s.examinees.Delete(ctx, id)
}

func (s *Service) ListExaminees(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Examinee, int, error) {
	return s.examinees.List(ctx, organizationID, limit, offset)
}

// -- Referrer --

func (s *Service) CreateReferrer(ctx context.Context, req CreateReferrerRequest) (*Referrer, error) {
	email := normalizeEmail(req.Email)
	if existing, err := s.referrers.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apierr.Conflict("referrer with email %s already exists", email)
	}

	r := &Referrer{
		OrganizationID: req.OrganizationID,
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
	}
	if err := s.referrers.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetReferrer(ctx context.Context, id uuid.UUID) (*Referrer, error) {
	r, err := s.referrers.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("referrer not found")
	}
	return r, err
}

func (s *Service) UpdateReferrer(ctx context.Context, id uuid.UUID, req UpdateReferrerRequest) (*Referrer, error) {
	r, err := s.GetReferrer(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		r.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		r.Email = normalizeEmail(req.Email)
	}
	if err := s.referrers.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteReferrer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetReferrer(ctx, id); err != nil {
		return err
	}
	return s.referrers.Delete(ctx, id)
}

func (s *Service) ListReferrers(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*Referrer, int, error) {
	return s.referrers.List(ctx, organizationID, limit, offset)
}

// ResolveOrCreateReferrer returns the referrer with the given email, creating
// one when absent. Webhook ingestion uses this so appointments from unknown
// referrers still land.
func (s *Service) ResolveOrCreateReferrer(ctx context.Context, organizationID uuid.UUID, name, email string) (*Referrer, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apierr.Validation("referrer email is required")
	}

	r, err := s.referrers.GetByEmail(ctx, email)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	r = &Referrer{
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(name),
		Email:          email,
	}
	if r.Name == "" {
		r.Name = email
	}
	if err := s.referrers.Create(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().Str("referrer_id", r.ID.String()).Str("email", email).Msg("referrer auto-created")
	return r, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
