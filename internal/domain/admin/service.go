package admin

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
	orgs   OrganizationRepository
	logger zerolog.Logger
}

func NewService(orgs OrganizationRepository, logger zerolog.Logger) *Service {
	return &Service{orgs: orgs, logger: logger.With().Str("component", "admin").Logger()}
}

func (s *Service) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierr.Validation("organization name is required")
	}
	if existing, err := s.orgs.GetByName(ctx, name); err == nil && existing != nil {
		return nil, apierr.Conflict("organization %q already exists", name)
	}

	org := &Organization{Name: name}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info().Str("organization_id", org.ID.String()).Msg("organization created")
	return org, nil
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("organization not found")
	}
	return org, err
}

func (s *Service) UpdateOrganization(ctx context.Context, id uuid.UUID, req UpdateOrganizationRequest) (*Organization, error) {
	org, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	org.Name = strings.TrimSpace(req.Name)
	if org.Name == "" {
		return nil, apierr.Validation("organization name is required")
	}
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetOrganization(ctx, id); err != nil {
		return err
	}
	return s.orgs.Delete(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.orgs.List(ctx, limit, offset)
}

// ResolveOrCreate returns the organization with the given name, creating it
// when absent. Webhook ingestion uses this so an appointment naming a new
// organization never fails on a missing row.
func (s *Service) ResolveOrCreate(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("organization name is required")
	}
	org, err := s.orgs.GetByName(ctx, name)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	org = &Organization{Name: name}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}
	s.logger.Info().Str("organization_id", org.ID.String()).Str("name", name).Msg("organization auto-created")
	return org, nil
}
