package service

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrCertificateNotFound = errors.New("certificate not found")

	ErrValidation        = errors.New("validation failed")
	ErrEmailTaken        = errors.New("user with this email already exists")
	ErrNotAvailable      = errors.New("assessment not available")
	ErrAlreadyTurnedIn   = errors.New("submission already turned in")
	ErrInvalidTransition = errors.New("invalid submission status transition")
	ErrAttemptsExhausted = errors.New("no attempts left")
	ErrAttemptNotStarted = errors.New("timed attempt not started")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrUploadTooLarge = errors.New("file exceeds upload limit")
	ErrPDFUnavailable = errors.New("certificate PDF could not be produced")
)
