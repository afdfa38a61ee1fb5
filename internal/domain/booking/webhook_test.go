package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/domain/admin"
	"github.com/medexam/medexam/internal/domain/identity"
	"github.com/medexam/medexam/internal/platform/acuity"
)

type mockIdent struct {
	examinees []*identity.Examinee
	referrers map[string]*identity.Referrer
}

func newMockIdent() *mockIdent {
	return &mockIdent{referrers: make(map[string]*identity.Referrer)}
}

func (m *mockIdent) CreateExaminee(_ context.Context, req identity.CreateExamineeRequest) (*identity.Examinee, error) {
	ex := &identity.Examinee{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
	}
	m.examinees = append(m.examinees, ex)
	return ex, nil
}

func (m *mockIdent) ResolveOrCreateReferrer(_ context.Context, orgID uuid.UUID, name, email string) (*identity.Referrer, error) {
	if r, ok := m.referrers[email]; ok {
		return r, nil
	}
	r := &identity.Referrer{ID: uuid.New(), OrganizationID: orgID, Name: name, Email: email}
	m.referrers[email] = r
	return r, nil
}

type mockOrgs struct {
	orgs map[string]*admin.Organization
}

func newMockOrgs() *mockOrgs {
	return &mockOrgs{orgs: make(map[string]*admin.Organization)}
}

func (m *mockOrgs) ResolveOrCreate(_ context.Context, name string) (*admin.Organization, error) {
	if name == "" {
		name = "Unknown"
	}
	if o, ok := m.orgs[name]; ok {
		return o, nil
	}
	o := &admin.Organization{ID: uuid.New(), Name: name}
	m.orgs[name] = o
	return o, nil
}

type webhookFixture struct {
	*fixture
	handler *WebhookHandler
	ident   *mockIdent
	orgs    *mockOrgs
	secret  string
}

func newWebhookFixture(secret string) *webhookFixture {
	f := newFixture()
	ident := newMockIdent()
	orgs := newMockOrgs()
	return &webhookFixture{
		fixture: f,
		handler: NewWebhookHandler(f.svc, ident, orgs, secret, zerolog.Nop()),
		ident:   ident,
		orgs:    orgs,
		secret:  secret,
	}
}

func (wf *webhookFixture) do(t *testing.T, method string, form url.Values, sign bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	body := form.Encode()
	req := httptest.NewRequest(method, "/webhooks/appointment", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if sign {
		req.Header.Set(acuity.SignatureHeader, acuity.SignPayload(wf.secret, []byte(body)))
	}
	w := httptest.NewRecorder()
	c := echo.New().NewContext(req, w)

	var h echo.HandlerFunc
	switch method {
	case http.MethodPost:
		h = wf.handler.AppointmentCreated
	case http.MethodDelete:
		h = wf.handler.AppointmentCancelled
	case http.MethodPut:
		h = wf.handler.AppointmentRescheduled
	default:
		t.Fatalf("unsupported method %s", method)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func createForm(wf *webhookFixture, acuityID int64) url.Values {
	form := url.Values{}
	form.Set("id", strconv.FormatInt(acuityID, 10))
	form.Set("datetime", "2026-09-15T10:00:00+1000")
	form.Set("duration", "60")
	form.Set("calendarID", strconv.FormatInt(wf.specialist.CalendarID, 10))
	form.Set("appointmentTypeID", "5")
	form.Set("type", "Independent Medical Examination")
	form.Set("location", "Suite 4, 12 Collins St")
	form.Set("firstName", "Alex")
	form.Set("lastName", "Chen")
	form.Set("email", "alex.chen@example.com")
	form.Set("phone", "0400000000")
	form.Set("organization", "Acme Insurance")
	form.Set("referrerName", "Pat Riley")
	form.Set("referrerEmail", "pat@acme.example.com")
	return form
}

func TestWebhookCreate_NewBooking(t *testing.T) {
	wf := newWebhookFixture("")
	w, resp := wf.do(t, http.MethodPost, createForm(wf, 9001), false)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("expected success:true, got %v", resp)
	}

	bookingID := uuid.MustParse(resp["bookingId"].(string))
	b := wf.bookings.bookings[bookingID]
	if b == nil {
		t.Fatal("booking not persisted")
	}
	if b.Status != StatusActive {
		t.Errorf("expected status active, got %s", b.Status)
	}
	if b.AcuityAppointmentID == nil || *b.AcuityAppointmentID != 9001 {
		t.Errorf("expected acuity id 9001, got %v", b.AcuityAppointmentID)
	}
	if b.SpecialistID != wf.specialist.ID {
		t.Errorf("expected specialist resolved by calendar id")
	}
	if len(wf.ident.examinees) != 1 {
		t.Fatalf("expected 1 examinee created, got %d", len(wf.ident.examinees))
	}
	if wf.ident.examinees[0].FirstName != "Alex" || wf.ident.examinees[0].Phone != "0400000000" {
		t.Errorf("examinee fields not mapped from form: %+v", wf.ident.examinees[0])
	}

	// Webhook creation writes no progress row, unlike interactive creation.
	if n := wf.progress.countFor(bookingID); n != 0 {
		t.Errorf("webhook creation must not write progress rows, got %d", n)
	}
}

func TestWebhookCreate_DuplicateUpdatesLocationOnly(t *testing.T) {
	wf := newWebhookFixture("")
	_, resp := wf.do(t, http.MethodPost, createForm(wf, 9002), false)
	bookingID := uuid.MustParse(resp["bookingId"].(string))
	original := *wf.bookings.bookings[bookingID]

	dup := createForm(wf, 9002)
	dup.Set("datetime", "2026-10-01T09:00:00+1000")
	dup.Set("location", "Telehealth Room B")
	dup.Set("firstName", "Someone")
	dup.Set("email", "else@example.com")
	w, resp := wf.do(t, http.MethodPost, dup, false)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", w.Code)
	}
	if resp["bookingId"] != bookingID.String() {
		t.Errorf("duplicate must reference the existing booking")
	}
	if len(wf.bookings.bookings) != 1 {
		t.Fatalf("duplicate webhook must not create a second booking, have %d", len(wf.bookings.bookings))
	}

	updated := wf.bookings.bookings[bookingID]
	if updated.Location == nil || *updated.Location != "Telehealth Room B" {
		t.Errorf("expected location refreshed, got %v", updated.Location)
	}
	if !updated.ScheduledAt.Equal(original.ScheduledAt) {
		t.Errorf("duplicate must not move the appointment: %s vs %s", updated.ScheduledAt, original.ScheduledAt)
	}
	if len(wf.ident.examinees) != 1 {
		t.Errorf("duplicate must not create another examinee, got %d", len(wf.ident.examinees))
	}
}

func TestWebhookCreate_UnknownCalendar(t *testing.T) {
	wf := newWebhookFixture("")
	form := createForm(wf, 9003)
	form.Set("calendarID", "424242")

	w, resp := wf.do(t, http.MethodPost, form, false)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected success:false, got %v", resp)
	}
}

func TestWebhookCreate_MissingExamineeFields(t *testing.T) {
	wf := newWebhookFixture("")
	form := createForm(wf, 9004)
	form.Del("firstName")
	form.Del("phone")

	w, resp := wf.do(t, http.MethodPost, form, false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	msg, _ := resp["error"].(string)
	for _, want := range []string{"firstName", "phone"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should list missing field %q", msg, want)
		}
	}
	if len(wf.bookings.bookings) != 0 {
		t.Error("no booking should be created with missing examinee fields")
	}
}

func TestWebhookCancel_ClosesWithoutProgressRow(t *testing.T) {
	wf := newWebhookFixture("")
	_, resp := wf.do(t, http.MethodPost, createForm(wf, 9005), false)
	bookingID := uuid.MustParse(resp["bookingId"].(string))

	form := url.Values{}
	form.Set("id", "9005")
	w, _ := wf.do(t, http.MethodDelete, form, false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	b := wf.bookings.bookings[bookingID]
	if b.Status != StatusClosed {
		t.Errorf("expected status closed, got %s", b.Status)
	}
	if b.CancelledAt == nil {
		t.Error("expected cancelled_at to be set")
	}
	if n := wf.progress.countFor(bookingID); n != 0 {
		t.Errorf("cancel webhook must not write progress rows, got %d", n)
	}
}

func TestWebhookCancel_UnknownBooking(t *testing.T) {
	wf := newWebhookFixture("")
	form := url.Values{}
	form.Set("id", "77777")

	w, resp := wf.do(t, http.MethodDelete, form, false)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if resp["success"] != false || resp["error"] != "Booking not found" {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestWebhookReschedule_MovesBookingAndAppendsProgress(t *testing.T) {
	wf := newWebhookFixture("")
	_, resp := wf.do(t, http.MethodPost, createForm(wf, 9006), false)
	bookingID := uuid.MustParse(resp["bookingId"].(string))

	form := url.Values{}
	form.Set("id", "9006")
	form.Set("datetime", "2026-09-20T14:00:00+1000")
	w, _ := wf.do(t, http.MethodPut, form, false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	b := wf.bookings.bookings[bookingID]
	want, _ := time.Parse(acuity.TimeFormat, "2026-09-20T14:00:00+1000")
	if !b.ScheduledAt.Equal(want) {
		t.Errorf("expected scheduled_at %s, got %s", want, b.ScheduledAt)
	}

	if n := wf.progress.countFor(bookingID); n != 1 {
		t.Fatalf("expected 1 progress row after reschedule, got %d", n)
	}
	latest, err := wf.progress.Latest(context.Background(), bookingID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ToStatus != ProgressRescheduled {
		t.Errorf("expected to_status rescheduled, got %s", latest.ToStatus)
	}
	if latest.ActorID != webhookActor {
		t.Errorf("expected webhook actor on the row, got %q", latest.ActorID)
	}
}

func TestWebhookReschedule_BadDatetimeDoesNotMutate(t *testing.T) {
	wf := newWebhookFixture("")
	_, resp := wf.do(t, http.MethodPost, createForm(wf, 9007), false)
	bookingID := uuid.MustParse(resp["bookingId"].(string))
	original := *wf.bookings.bookings[bookingID]

	form := url.Values{}
	form.Set("id", "9007")
	form.Set("datetime", "not-a-date")
	w, respErr := wf.do(t, http.MethodPut, form, false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if respErr["success"] != false {
		t.Errorf("expected success:false, got %v", respErr)
	}

	b := wf.bookings.bookings[bookingID]
	if !b.ScheduledAt.Equal(original.ScheduledAt) {
		t.Error("booking must not be mutated on a bad datetime")
	}
	if n := wf.progress.countFor(bookingID); n != 0 {
		t.Errorf("no progress row may be written on a bad datetime, got %d", n)
	}
}

func TestWebhook_LookupFailureIsServerError(t *testing.T) {
	wf := newWebhookFixture("")
	wf.bookings.failGetByAcuity = errors.New("connection refused")

	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPut} {
		w, resp := wf.do(t, method, createForm(wf, 9100), false)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: a failed lookup is not a missing booking, expected 500, got %d", method, w.Code)
		}
		if resp["success"] != false {
			t.Errorf("%s: expected success:false, got %v", method, resp)
		}
	}
	if len(wf.bookings.bookings) != 0 {
		t.Error("no booking may be created while the lookup is failing")
	}
}

func TestWebhook_UnreadableBodyIsNotASignatureFailure(t *testing.T) {
	wf := newWebhookFixture("")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/appointment", failingReader{})
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	w := httptest.NewRecorder()
	c := echo.New().NewContext(req, w)

	if err := wf.handler.AppointmentCreated(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("an unreadable body should be 400, got %d: %s", w.Code, w.Body.String())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWebhook_SignatureVerification(t *testing.T) {
	wf := newWebhookFixture("topsecret")

	w, resp := wf.do(t, http.MethodPost, createForm(wf, 9008), false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned payload should be rejected, got %d", w.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected success:false, got %v", resp)
	}

	w, _ = wf.do(t, http.MethodPost, createForm(wf, 9008), true)
	if w.Code != http.StatusCreated {
		t.Fatalf("signed payload should be accepted, got %d: %s", w.Code, w.Body.String())
	}
}
