package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/auth"
)

// AuditEntry captures who did what to which entity, when and from where.
// Entity payloads themselves are never included; examinee health data stays
// out of the access log.
type AuditEntry struct {
	ActorID    string
	ActorRole  string
	EntityType string
	EntityID   string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. The middleware stays decoupled from
// the concrete store so tests can supply a mock. The context carries the
// tenant connection so entries land in the right schema.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit returns middleware that logs every /api/v1 access with the
// authenticated actor and the entity it touched. If a recorder is provided
// the entry is persisted as well; the structured log line is always emitted.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			// Run the handler first so the entry carries the response status.
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
				Action:     httpMethodToAction(req.Method),
			}

			id := auth.IdentityFromContext(req.Context())
			entry.ActorID = id.ID
			entry.ActorRole = string(id.Role)

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.EntityType, entry.EntityID = splitEntityPath(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(req.Context(), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("actor_id", entry.ActorID).
				Str("actor_role", entry.ActorRole).
				Str("entity_type", entry.EntityType).
				Str("entity_id", entry.EntityID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitEntityPath parses /api/v1/<entity>/<id>/... into its entity type and
// id. The id segment is only reported when it parses as a UUID so that
// subresource names like "progress" are not mistaken for identifiers.
func splitEntityPath(path string) (entityType, entityID string) {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	entityType = segments[0]
	if len(segments) > 1 {
		if _, err := uuid.Parse(segments[1]); err == nil {
			entityID = segments[1]
		}
	}
	return entityType, entityID
}
