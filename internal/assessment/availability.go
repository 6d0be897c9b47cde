// Package assessment holds the timed-assessment rules shared by the services:
// the availability gate, the countdown, submission status resolution and
// grading eligibility.
package assessment

import "time"

const (
	ReasonNotYetAvailable = "not yet available"
	ReasonWindowClosed    = "window closed"
)

// Window is the optional [From, Until) range in which an assessment accepts
// work. A nil bound is open.
type Window struct {
	From  *time.Time
	Until *time.Time
}

type Decision struct {
	Allowed bool
	Reason  string
}

// Check gates access at now. A blocked decision is final for the request.
func Check(w Window, now time.Time) Decision {
	if w.From != nil && now.Before(*w.From) {
		return Decision{Reason: ReasonNotYetAvailable}
	}
	if w.Until != nil && !now.Before(*w.Until) {
		return Decision{Reason: ReasonWindowClosed}
	}
	return Decision{Allowed: true}
}
