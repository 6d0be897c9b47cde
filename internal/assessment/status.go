package assessment

import (
	"time"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

// ResolveStatus picks the status a turned-in submission is written with.
// Work handed in once the deadline has passed and the timer has run out is
// late; everything else is submitted.
func ResolveStatus(now, deadline time.Time, timerExpired bool) models.SubmissionStatus {
	if timerExpired && !now.Before(deadline) {
		return models.SubmissionLate
	}
	return models.SubmissionSubmitted
}

// Remaining is the time left until deadline, never negative. It is always
// derived from the fixed deadline so a reload cannot extend an attempt.
func Remaining(now, deadline time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
