package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
	"github.com/medexam/medexam/internal/platform/auth"
	"github.com/medexam/medexam/internal/platform/validate"
)

func newBookingAPI(f *fixture) *echo.Echo {
	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(zerolog.Nop())
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func apiRequest(t *testing.T, e *echo.Echo, method, path, body string, actor auth.Identity) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), actor))
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	var resp map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func TestHandlerGet_ForbiddenForUnrelatedUser(t *testing.T) {
	f := newFixture()
	b := f.createBooking(t)
	e := newBookingAPI(f)

	stranger := auth.Identity{ID: "0e4bb447-47b2-4bd0-8e1e-9c1dd35c8a9b", Role: auth.RoleUser}
	w, resp := apiRequest(t, e, http.MethodGet, "/api/v1/bookings/"+b.ID.String(), "", stranger)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != false {
		t.Errorf("expected success:false, got %v", resp)
	}
	if resp["error"] != string(apierr.CodeAccessDenied) {
		t.Errorf("expected error %s, got %v", apierr.CodeAccessDenied, resp["error"])
	}
}

func TestHandlerGet_ReferrerSeesOwnBooking(t *testing.T) {
	f := newFixture()
	b := f.createBooking(t)
	e := newBookingAPI(f)

	w, resp := apiRequest(t, e, http.MethodGet, "/api/v1/bookings/"+b.ID.String(), "", f.referrer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]interface{})
	if data["id"] != b.ID.String() {
		t.Errorf("expected booking %s, got %v", b.ID, data["id"])
	}
}

func TestHandlerProgress_PayloadKeyIsProgress(t *testing.T) {
	f := newFixture()
	b := f.createBooking(t)
	e := newBookingAPI(f)

	w, resp := apiRequest(t, e, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/progress",
		`{"progress":"cancelled"}`, f.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a legal transition, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]interface{})
	if data["progress"] != string(ProgressCancelled) {
		t.Errorf("expected progress cancelled, got %v", data["progress"])
	}
	if data["status"] != string(StatusClosed) {
		t.Errorf("expected status closed, got %v", data["status"])
	}

	// The pre-rename payload key is not honoured.
	w, resp = apiRequest(t, e, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/progress",
		`{"status":"cancelled"}`, f.admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when the progress key is missing, got %d", w.Code)
	}
	if resp["error"] != string(apierr.CodeValidation) {
		t.Errorf("expected validation error, got %v", resp["error"])
	}
}

func TestHandlerProgress_RejectedTransitionLeavesLogUntouched(t *testing.T) {
	f := newFixture()
	b := f.createBooking(t)
	e := newBookingAPI(f)

	w, _ := apiRequest(t, e, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/progress",
		`{"progress":"cancelled"}`, f.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel should succeed, got %d: %s", w.Code, w.Body.String())
	}
	rows := f.progress.countFor(b.ID)

	w, resp := apiRequest(t, e, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/progress",
		`{"progress":"scheduled"}`, f.admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a transition out of cancelled, got %d", w.Code)
	}
	if resp["success"] != false {
		t.Errorf("expected success:false envelope, got %v", resp)
	}
	if resp["error"] != string(apierr.CodeInvalidTransition) {
		t.Errorf("expected error %s, got %v", apierr.CodeInvalidTransition, resp["error"])
	}
	if got := f.progress.countFor(b.ID); got != rows {
		t.Errorf("rejected transition must not append a progress row: had %d, now %d", rows, got)
	}
}

func TestHandlerCreate_ValidationErrors(t *testing.T) {
	f := newFixture()
	e := newBookingAPI(f)

	w, resp := apiRequest(t, e, http.MethodPost, "/api/v1/bookings",
		`{"appointment_type":"carrier-pigeon"}`, f.admin)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if resp["error"] != string(apierr.CodeValidation) {
		t.Errorf("expected validation error, got %v", resp["error"])
	}
}

func TestHandlerCreate_ReturnsBookingWithProgress(t *testing.T) {
	f := newFixture()
	e := newBookingAPI(f)

	body := `{"specialist_id":"` + f.specialist.ID.String() + `",` +
		`"examinee_id":"8f14e45f-ceea-4b7a-9c5d-3b1f0a9a6d11",` +
		`"appointment_type":"telehealth",` +
		`"scheduled_at":"2026-09-15T10:00:00Z",` +
		`"duration_minutes":45}`
	w, resp := apiRequest(t, e, http.MethodPost, "/api/v1/bookings", body, f.referrer)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]interface{})
	if data["progress"] != string(ProgressScheduled) {
		t.Errorf("expected progress scheduled, got %v", data["progress"])
	}
	if data["status"] != string(StatusActive) {
		t.Errorf("expected status active, got %v", data["status"])
	}
}

func TestHandlerList_FilterValidation(t *testing.T) {
	f := newFixture()
	e := newBookingAPI(f)

	w, _ := apiRequest(t, e, http.MethodGet, "/api/v1/bookings?status=bogus", "", f.admin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status filter, got %d", w.Code)
	}

	w, _ = apiRequest(t, e, http.MethodGet, "/api/v1/bookings?startDate=not-a-date", "", f.admin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad startDate, got %d", w.Code)
	}

	w, resp := apiRequest(t, e, http.MethodGet,
		"/api/v1/bookings?status=active&startDate=2026-01-01&endDate=2027-01-01", "", f.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("expected success envelope, got %v", resp)
	}
}
