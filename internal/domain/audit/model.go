package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one immutable row in the audit trail. Before and After hold JSON
// snapshots of the entity state around a mutation; both are null for access
// events.
type Event struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorRole  string          `db:"actor_role" json:"actor_role"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Before     json.RawMessage `db:"before" json:"before,omitempty"`
	After      json.RawMessage `db:"after" json:"after,omitempty"`
	RequestID  string          `db:"request_id" json:"request_id"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ListFilter narrows an audit trail query. Zero values mean "any".
type ListFilter struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	Since      time.Time
	Until      time.Time
}
