package booking

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/domain/admin"
	"github.com/medexam/medexam/internal/domain/identity"
	"github.com/medexam/medexam/internal/platform/acuity"
)

// IdentityResolver creates examinees and resolves referrers during webhook
// ingestion. Satisfied by identity.Service.
type IdentityResolver interface {
	CreateExaminee(ctx context.Context, req identity.CreateExamineeRequest) (*identity.Examinee, error)
	ResolveOrCreateReferrer(ctx context.Context, organizationID uuid.UUID, name, email string) (*identity.Referrer, error)
}

// OrganizationResolver resolves organizations by name during webhook
// ingestion. Satisfied by admin.Service.
type OrganizationResolver interface {
	ResolveOrCreate(ctx context.Context, name string) (*admin.Organization, error)
}

// webhookActor is recorded on progress rows written by the automation
// source, which carries no authenticated identity.
const webhookActor = "acuity-webhook"

// errBadSignature distinguishes a signature mismatch from a body that could
// not be read or parsed.
var errBadSignature = errors.New("invalid webhook signature")

// requiredExamineeFields are the inbound form fields that must be present to
// create an examinee. dateOfBirth is optional and parsed separately.
var requiredExamineeFields = []string{"firstName", "lastName", "email", "phone"}

// WebhookHandler ingests appointment events pushed by the scheduling
// provider. The routes sit outside /api/v1: the source is a trusted
// automation peer authenticated by HMAC signature, not a JWT.
type WebhookHandler struct {
	svc    *Service
	ident  IdentityResolver
	orgs   OrganizationResolver
	secret string
	logger zerolog.Logger
}

func NewWebhookHandler(svc *Service, ident IdentityResolver, orgs OrganizationResolver, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:    svc,
		ident:  ident,
		orgs:   orgs,
		secret: secret,
		logger: logger.With().Str("component", "booking_webhook").Logger(),
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/appointment", h.AppointmentCreated)
	e.DELETE("/webhooks/appointment", h.AppointmentCancelled)
	e.PUT("/webhooks/appointment", h.AppointmentRescheduled)
}

// AppointmentCreated handles created/updated events. A second event for an
// appointment id already on record only refreshes the location field.
func (h *WebhookHandler) AppointmentCreated(c echo.Context) error {
	form, err := h.readForm(c)
	if err != nil {
		return formError(c, err)
	}

	acuityID, err := strconv.ParseInt(form.Get("id"), 10, 64)
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "missing or invalid appointment id")
	}

	ctx := c.Request().Context()

	existing, err := h.svc.bookings.GetByAcuityID(ctx, acuityID)
	switch {
	case err == nil:
		loc := form.Get("location")
		existing.Location = &loc
		if err := h.svc.bookings.Update(ctx, existing); err != nil {
			return webhookError(c, http.StatusInternalServerError, "failed to update booking")
		}
		h.logger.Info().Int64("acuity_id", acuityID).Str("booking_id", existing.ID.String()).
			Msg("duplicate appointment event, location refreshed")
		return webhookOK(c, http.StatusOK, "Booking already exists; location updated", existing.ID)
	case !isNoRows(err):
		h.logger.Error().Err(err).Int64("acuity_id", acuityID).Msg("booking lookup failed")
		return webhookError(c, http.StatusInternalServerError, "failed to load booking")
	}

	if missing := missingFields(form, "datetime", "duration", "calendarID", "appointmentTypeID"); len(missing) > 0 {
		return webhookError(c, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
	}

	scheduledAt, err := time.Parse(acuity.TimeFormat, form.Get("datetime"))
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "invalid datetime")
	}
	duration, err := strconv.Atoi(form.Get("duration"))
	if err != nil || duration <= 0 {
		return webhookError(c, http.StatusBadRequest, "invalid duration")
	}
	calendarID, err := strconv.ParseInt(form.Get("calendarID"), 10, 64)
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "invalid calendarID")
	}
	if _, err := strconv.ParseInt(form.Get("appointmentTypeID"), 10, 64); err != nil {
		return webhookError(c, http.StatusBadRequest, "invalid appointmentTypeID")
	}

	sp, err := h.svc.specialists.GetByCalendarID(ctx, calendarID)
	if err != nil {
		return webhookError(c, http.StatusNotFound, "no specialist for calendar")
	}

	if missing := missingFields(form, requiredExamineeFields...); len(missing) > 0 {
		return webhookError(c, http.StatusBadRequest, "missing required examinee fields: "+strings.Join(missing, ", "))
	}

	org, err := h.orgs.ResolveOrCreate(ctx, form.Get("organization"))
	if err != nil {
		return webhookError(c, http.StatusInternalServerError, "failed to resolve organization")
	}

	referrer, err := h.ident.ResolveOrCreateReferrer(ctx, org.ID, form.Get("referrerName"), form.Get("referrerEmail"))
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "failed to resolve referrer")
	}

	exReq := identity.CreateExamineeRequest{
		OrganizationID: org.ID,
		FirstName:      form.Get("firstName"),
		LastName:       form.Get("lastName"),
		Email:          form.Get("email"),
		Phone:          form.Get("phone"),
	}
	if raw := form.Get("dateOfBirth"); raw != "" {
		if dob, err := time.Parse("2006-01-02", raw); err == nil {
			exReq.DateOfBirth = &dob
		}
	}

	loc := form.Get("location")
	b := &Booking{
		OrganizationID:      org.ID,
		SpecialistID:        sp.ID,
		ReferrerID:          referrer.ID,
		Status:              StatusActive,
		AppointmentType:     appointmentTypeOf(form.Get("type"), loc),
		ScheduledAt:         scheduledAt,
		DurationMinutes:     duration,
		Location:            &loc,
		AcuityAppointmentID: &acuityID,
		Notes:               form.Get("notes"),
	}

	// The examinee and booking land together or not at all. This path
	// intentionally writes no progress row, unlike interactive creation.
	err = h.svc.tx(ctx, func(ctx context.Context) error {
		ex, err := h.ident.CreateExaminee(ctx, exReq)
		if err != nil {
			return err
		}
		b.ExamineeID = ex.ID
		return h.svc.bookings.Create(ctx, b)
	})
	if err != nil {
		h.logger.Error().Err(err).Int64("acuity_id", acuityID).Msg("webhook ingestion failed")
		return webhookError(c, http.StatusInternalServerError, "failed to create booking")
	}

	h.logger.Info().Int64("acuity_id", acuityID).Str("booking_id", b.ID.String()).
		Str("specialist_id", sp.ID.String()).Msg("booking created from webhook")
	return webhookOK(c, http.StatusCreated, "Booking created", b.ID)
}

// AppointmentCancelled closes the booking. No progress row is written on
// this path.
func (h *WebhookHandler) AppointmentCancelled(c echo.Context) error {
	form, err := h.readForm(c)
	if err != nil {
		return formError(c, err)
	}
	acuityID, err := strconv.ParseInt(form.Get("id"), 10, 64)
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "missing or invalid appointment id")
	}

	ctx := c.Request().Context()
	b, err := h.svc.bookings.GetByAcuityID(ctx, acuityID)
	if isNoRows(err) {
		return webhookError(c, http.StatusNotFound, "Booking not found")
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("acuity_id", acuityID).Msg("booking lookup failed")
		return webhookError(c, http.StatusInternalServerError, "failed to load booking")
	}

	now := time.Now().UTC()
	b.Status = StatusClosed
	b.CancelledAt = &now
	if err := h.svc.bookings.Update(ctx, b); err != nil {
		return webhookError(c, http.StatusInternalServerError, "failed to cancel booking")
	}

	h.logger.Info().Int64("acuity_id", acuityID).Str("booking_id", b.ID.String()).
		Msg("booking cancelled from webhook")
	return webhookOK(c, http.StatusOK, "Booking cancelled", b.ID)
}

// AppointmentRescheduled moves the booking to the new slot and appends a
// rescheduled progress row.
func (h *WebhookHandler) AppointmentRescheduled(c echo.Context) error {
	form, err := h.readForm(c)
	if err != nil {
		return formError(c, err)
	}
	acuityID, err := strconv.ParseInt(form.Get("id"), 10, 64)
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "missing or invalid appointment id")
	}

	// Reject a bad datetime before touching anything.
	scheduledAt, err := time.Parse(acuity.TimeFormat, form.Get("datetime"))
	if err != nil {
		return webhookError(c, http.StatusBadRequest, "invalid datetime")
	}

	ctx := c.Request().Context()
	b, err := h.svc.bookings.GetByAcuityID(ctx, acuityID)
	if isNoRows(err) {
		return webhookError(c, http.StatusNotFound, "Booking not found")
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("acuity_id", acuityID).Msg("booking lookup failed")
		return webhookError(c, http.StatusInternalServerError, "failed to load booking")
	}
	latest, err := h.svc.progress.Latest(ctx, b.ID)
	if err != nil && !isNoRows(err) {
		return webhookError(c, http.StatusInternalServerError, "failed to load progress")
	}
	var fromPtr *Progress
	if latest != nil {
		fromPtr = &latest.ToStatus
	}

	b.ScheduledAt = scheduledAt
	err = h.svc.tx(ctx, func(ctx context.Context) error {
		if err := h.svc.bookings.Update(ctx, b); err != nil {
			return err
		}
		return h.svc.progress.Append(ctx, &ProgressEntry{
			BookingID:  b.ID,
			FromStatus: fromPtr,
			ToStatus:   ProgressRescheduled,
			ActorID:    webhookActor,
		})
	})
	if err != nil {
		return webhookError(c, http.StatusInternalServerError, "failed to reschedule booking")
	}

	h.logger.Info().Int64("acuity_id", acuityID).Str("booking_id", b.ID.String()).
		Time("scheduled_at", scheduledAt).Msg("booking rescheduled from webhook")
	return webhookOK(c, http.StatusOK, "Booking rescheduled", b.ID)
}

// readForm verifies the HMAC signature over the raw body and parses it as a
// form payload. A signature mismatch returns errBadSignature; any other
// failure means the body itself was unreadable or malformed.
func (h *WebhookHandler) readForm(c echo.Context) (url.Values, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if !acuity.VerifySignature(h.secret, body, c.Request().Header.Get(acuity.SignatureHeader)) {
		return nil, errBadSignature
	}
	return url.ParseQuery(string(body))
}

// formError maps a readForm failure onto the webhook envelope.
func formError(c echo.Context, err error) error {
	if errors.Is(err, errBadSignature) {
		return webhookError(c, http.StatusUnauthorized, "invalid signature")
	}
	return webhookError(c, http.StatusBadRequest, "malformed request body")
}

func appointmentTypeOf(typeName, location string) AppointmentType {
	if strings.Contains(strings.ToLower(typeName), "telehealth") || location == "" {
		return AppointmentTelehealth
	}
	return AppointmentInPerson
}

func missingFields(form url.Values, names ...string) []string {
	var missing []string
	for _, n := range names {
		if form.Get(n) == "" {
			missing = append(missing, n)
		}
	}
	return missing
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func webhookOK(c echo.Context, status int, message string, bookingID uuid.UUID) error {
	return c.JSON(status, map[string]interface{}{
		"success":   true,
		"message":   message,
		"bookingId": bookingID.String(),
	})
}

func webhookError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
