// Package acuity is the HTTP gateway to the Acuity Scheduling API. All
// outbound traffic to the provider goes through the Client so that throttling
// and retry behaviour stay in one place.
package acuity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/medexam/medexam/internal/platform/apierr"
)

const DefaultBaseURL = "https://acuityscheduling.com/api/v1"

// TimeFormat is the provider's datetime layout, used for appointment fields
// and webhook payloads alike.
const TimeFormat = "2006-01-02T15:04:05-0700"

// Appointment is the provider's representation of a scheduled appointment.
type Appointment struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	EndTime           string `json:"endTime"`
	Datetime          string `json:"datetime"`
	CalendarID        int64  `json:"calendarID"`
	Calendar          string `json:"calendar"`
	AppointmentTypeID int64  `json:"appointmentTypeID"`
	Type              string `json:"type"`
	Location          string `json:"location"`
	Notes             string `json:"notes"`
	Canceled          bool   `json:"canceled"`
}

// StartAt parses the appointment's datetime field.
func (a Appointment) StartAt() (time.Time, error) {
	return time.Parse(TimeFormat, a.Datetime)
}

// Calendar is a bookable calendar belonging to one specialist.
type Calendar struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
	Location string `json:"location"`
}

// AppointmentType is an examination type offered for booking.
type AppointmentType struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
	Price    string `json:"price"`
	Active   bool   `json:"active"`
}

// TimeSlot is one bookable slot returned by the availability endpoint.
type TimeSlot struct {
	Time           string `json:"time"`
	SlotsAvailable int    `json:"slotsAvailable"`
}

// Config carries the provider credentials and tuning knobs.
type Config struct {
	BaseURL     string
	UserID      string
	APIKey      string
	MinInterval time.Duration
	MaxRetries  uint64
}

// Client is a throttled, retrying Acuity API client. It is safe for
// concurrent use; the throttle serialises request dispatch so bursts from
// parallel handlers still respect the provider's rate expectations.
type Client struct {
	baseURL     string
	userID      string
	apiKey      string
	httpClient  *http.Client
	logger      zerolog.Logger
	minInterval time.Duration
	maxRetries  uint64

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &Client{
		baseURL:     baseURL,
		userID:      cfg.UserID,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger.With().Str("component", "acuity").Logger(),
		minInterval: cfg.MinInterval,
		maxRetries:  maxRetries,
	}
}

// GetAppointment fetches one appointment by its provider ID.
func (c *Client) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var appt Appointment
	if err := c.get(ctx, "/appointments/"+strconv.FormatInt(id, 10), nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListCalendars returns all calendars configured on the Acuity account.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var cals []Calendar
	if err := c.get(ctx, "/calendars", nil, &cals); err != nil {
		return nil, err
	}
	return cals, nil
}

// ListAppointmentTypes returns the examination types offered for booking.
func (c *Client) ListAppointmentTypes(ctx context.Context) ([]AppointmentType, error) {
	var types []AppointmentType
	if err := c.get(ctx, "/appointment-types", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// ListAvailableTimes returns the open slots for an appointment type on a
// given date. date is formatted YYYY-MM-DD. calendarID of zero queries all
// calendars.
func (c *Client) ListAvailableTimes(ctx context.Context, date string, appointmentTypeID, calendarID int64) ([]TimeSlot, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("appointmentTypeID", strconv.FormatInt(appointmentTypeID, 10))
	if calendarID != 0 {
		q.Set("calendarID", strconv.FormatInt(calendarID, 10))
	}

	var slots []TimeSlot
	if err := c.get(ctx, "/availability/times", q, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	operation := func() error {
		c.throttle(ctx)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.userID, c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("acuity request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("reading acuity response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding acuity response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(apierr.NotFound("appointment"))
		case resp.StatusCode == http.StatusConflict:
			return backoff.Permanent(apierr.Conflict("scheduling provider rejected the request: slot no longer available"))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// The request itself is at fault, not the provider. Will not
			// heal on retry, and is not the caller's 503.
			return backoff.Permanent(apierr.Validation(
				"scheduling provider rejected the request (status %d)", resp.StatusCode))
		default:
			return fmt.Errorf("acuity returned status %d", resp.StatusCode)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackoff(), c.maxRetries), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Dur("retry_in", wait).Str("url", u).Msg("acuity request failed, retrying")
	})
	if err == nil {
		return nil
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	c.logger.Error().Err(err).Str("url", u).Msg("acuity request exhausted retries")
	return apierr.Upstream("scheduling provider unavailable").WithCause(err)
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 45 * time.Second
	return b
}

// throttle enforces a minimum spacing between outbound calls.
func (c *Client) throttle(ctx context.Context) {
	if c.minInterval <= 0 {
		return
	}
	c.mu.Lock()
	wait := c.minInterval - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
