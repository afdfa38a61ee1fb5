package booking

import "github.com/medexam/medexam/internal/platform/apierr"

// transitions enumerates every legal progress change. A nil from pointer
// (no progress yet) may only move to scheduled. Terminal states have no
// entry at all.
var transitions = map[Progress][]Progress{
	ProgressScheduled:        {ProgressRescheduled, ProgressCancelled, ProgressNoShow, ProgressGeneratingReport},
	ProgressRescheduled:      {ProgressRescheduled, ProgressCancelled, ProgressNoShow, ProgressGeneratingReport},
	ProgressGeneratingReport: {ProgressReportGenerated, ProgressCancelled},
	ProgressReportGenerated:  {ProgressPaymentReceived},
}

// ValidateTransition reports whether a booking may move from its current
// progress state to the requested one. It performs no I/O. A nil from means
// the booking has no progress yet.
func ValidateTransition(from *Progress, to Progress) error {
	if from == nil {
		if to == ProgressScheduled {
			return nil
		}
		return apierr.InvalidTransition("none", string(to))
	}
	for _, allowed := range transitions[*from] {
		if allowed == to {
			return nil
		}
	}
	return apierr.InvalidTransition(string(*from), string(to))
}

// IsTerminal reports whether no further transitions are possible from p.
func IsTerminal(p Progress) bool {
	return len(transitions[p]) == 0
}
