package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status is the coarse lifecycle of a booking row. The fine-grained
// examination progress lives in the append-only progress log.
type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// Progress is one of the examination progress states tracked in the
// booking_progress log.
type Progress string

const (
	ProgressScheduled        Progress = "scheduled"
	ProgressRescheduled      Progress = "rescheduled"
	ProgressCancelled        Progress = "cancelled"
	ProgressNoShow           Progress = "no-show"
	ProgressGeneratingReport Progress = "generating-report"
	ProgressReportGenerated  Progress = "report-generated"
	ProgressPaymentReceived  Progress = "payment-received"
)

// ParseProgress validates a progress literal from untrusted input.
func ParseProgress(s string) (Progress, bool) {
	switch p := Progress(s); p {
	case ProgressScheduled, ProgressRescheduled, ProgressCancelled, ProgressNoShow,
		ProgressGeneratingReport, ProgressReportGenerated, ProgressPaymentReceived:
		return p, true
	}
	return "", false
}

// AppointmentType distinguishes how the examination is delivered.
type AppointmentType string

const (
	AppointmentInPerson   AppointmentType = "in-person"
	AppointmentTelehealth AppointmentType = "telehealth"
)

// Booking maps to the booking table.
type Booking struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	OrganizationID      uuid.UUID       `db:"organization_id" json:"organization_id"`
	SpecialistID        uuid.UUID       `db:"specialist_id" json:"specialist_id"`
	ExamineeID          uuid.UUID       `db:"examinee_id" json:"examinee_id"`
	ReferrerID          uuid.UUID       `db:"referrer_id" json:"referrer_id"`
	Status              Status          `db:"status" json:"status"`
	AppointmentType     AppointmentType `db:"appointment_type" json:"appointment_type"`
	ScheduledAt         time.Time       `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes     int             `db:"duration_minutes" json:"duration_minutes"`
	Location            *string         `db:"location" json:"location,omitempty"`
	AcuityAppointmentID *int64          `db:"acuity_appointment_id" json:"acuity_appointment_id,omitempty"`
	Notes               string          `db:"notes" json:"notes"`
	CompletedAt         *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt         *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`

	// Progress is the latest progress state, joined in on reads.
	Progress Progress `db:"progress" json:"progress,omitempty"`
}

// ProgressEntry is one append-only row in the booking progress log.
type ProgressEntry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BookingID  uuid.UUID `db:"booking_id" json:"booking_id"`
	FromStatus *Progress `db:"from_status" json:"from_status,omitempty"`
	ToStatus   Progress  `db:"to_status" json:"to_status"`
	ActorID    string    `db:"actor_id" json:"actor_id"`
	Notes      string    `db:"notes" json:"notes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CreateBookingRequest is the interactive creation payload. For the user
// role the referrer is always the authenticated caller; ReferrerID is only
// honoured for admins booking on someone's behalf.
type CreateBookingRequest struct {
	ReferrerID      uuid.UUID `json:"referrer_id,omitempty"`
	SpecialistID    uuid.UUID `json:"specialist_id" validate:"required"`
	ExamineeID      uuid.UUID `json:"examinee_id" validate:"required"`
	AppointmentType string    `json:"appointment_type" validate:"required,oneof=in-person telehealth"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	Location        *string   `json:"location,omitempty"`
	Notes           string    `json:"notes" validate:"max=2000"`
}

// UpdateProgressRequest requests a transition of the booking's progress
// state. ActorID lets admins record an impersonated actor on the log row.
type UpdateProgressRequest struct {
	Progress string `json:"progress" validate:"required"`
	Notes    string `json:"notes" validate:"max=2000"`
	ActorID  string `json:"actor_id,omitempty"`
}

// ListFilter narrows a booking listing. Zero values mean "any".
type ListFilter struct {
	Status       Status
	SpecialistID uuid.UUID
	ReferrerID   uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
}
