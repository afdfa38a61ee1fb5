package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestInvalidTransition_NamesBothStatuses(t *testing.T) {
	err := InvalidTransition("cancelled", "scheduled")
	if err.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.Status)
	}
	want := `invalid progress transition from "cancelled" to "scheduled"`
	if err.Message != want {
		t.Errorf("expected %q, got %q", want, err.Message)
	}
}

func TestInvalidTransition_EmptyFrom(t *testing.T) {
	err := InvalidTransition("", "rescheduled")
	want := `invalid progress transition from "none" to "rescheduled"`
	if err.Message != want {
		t.Errorf("expected %q, got %q", want, err.Message)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("booking not found"))
	if !IsCode(err, CodeNotFound) {
		t.Error("expected IsCode to match through wrapping")
	}
	if IsCode(err, CodeConflict) {
		t.Error("did not expect conflict code")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("plain errors have no code")
	}
}

func TestWithCause_HiddenFromMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Upstream("scheduling provider unavailable").WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
	if err.Message != "scheduling provider unavailable" {
		t.Errorf("cause leaked into message: %q", err.Message)
	}
}

func handle(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.Nop())(err, c)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return rec, body
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	rec, body := handle(t, AccessDenied("not your booking"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Error("expected success:false")
	}
	if body["error"] != string(CodeAccessDenied) {
		t.Errorf("expected access_denied code, got %v", body["error"])
	}
	if body["message"] != "not your booking" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	rec, body := handle(t, echo.NewHTTPError(http.StatusNotFound, "no such route"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if body["error"] != string(CodeNotFound) {
		t.Errorf("expected not_found code, got %v", body["error"])
	}
}

func TestHTTPErrorHandler_UnknownErrorIsOpaque(t *testing.T) {
	rec, body := handle(t, errors.New("pgx: something terrible with internals"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body["message"] != "internal server error" {
		t.Errorf("internal detail leaked: %v", body["message"])
	}
}
