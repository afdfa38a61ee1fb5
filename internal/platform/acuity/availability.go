package acuity

import (
	"context"
	"time"
)

// SlotChecker answers "is this slot still open" for one appointment type by
// querying the provider's availability endpoint.
type SlotChecker struct {
	Client            *Client
	AppointmentTypeID int64
}

func NewSlotChecker(client *Client, appointmentTypeID int64) *SlotChecker {
	return &SlotChecker{Client: client, AppointmentTypeID: appointmentTypeID}
}

// SlotAvailable returns true when the provider lists the given start time as
// an open slot on the calendar.
func (s *SlotChecker) SlotAvailable(ctx context.Context, calendarID int64, at time.Time) (bool, error) {
	slots, err := s.Client.ListAvailableTimes(ctx, at.Format("2006-01-02"), s.AppointmentTypeID, calendarID)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		slotTime, err := time.Parse(TimeFormat, slot.Time)
		if err != nil {
			continue
		}
		if slotTime.Equal(at) && slot.SlotsAvailable > 0 {
			return true, nil
		}
	}
	return false, nil
}
