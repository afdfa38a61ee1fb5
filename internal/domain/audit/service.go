package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/internal/platform/middleware"
)

// Service writes and queries the audit trail. Recording is best-effort: a
// failed insert is logged and never fails the business operation that
// triggered it.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "audit").Logger()}
}

// Record persists a mutation event. Actor and request id are taken from the
// context; before and after are marshalled to JSON snapshots.
func (s *Service) Record(ctx context.Context, action, entityType, entityID string, before, after interface{}) {
	id := auth.IdentityFromContext(ctx)
	e := &Event{
		ActorID:    id.ID,
		ActorRole:  string(id.Role),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.RequestIDFromContext(ctx),
	}
	e.Before = marshalSnapshot(s.logger, before)
	e.After = marshalSnapshot(s.logger, after)

	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("failed to record audit event")
	}
}

// RecordAccess implements middleware.AuditRecorder. Reads are left to the
// structured access log; only mutations earn a trail row.
func (s *Service) RecordAccess(ctx context.Context, entry middleware.AuditEntry) error {
	if entry.Action == "read" {
		return nil
	}
	return s.repo.Insert(ctx, &Event{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		RequestID:  entry.RequestID,
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func marshalSnapshot(logger zerolog.Logger, v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to marshal audit snapshot")
		return nil
	}
	return raw
}
