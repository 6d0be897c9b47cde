package models

type SubmissionTurnedInEvent struct {
	SubmissionID string `json:"submission_id"`
	AssessmentID string `json:"assessment_id"`
	CourseID     string `json:"course_id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	Automatic    bool   `json:"automatic"`
	Timestamp    int64  `json:"timestamp"`
}

type SubmissionGradedEvent struct {
	SubmissionID string `json:"submission_id"`
	CourseID     string `json:"course_id"`
	UserID       string `json:"user_id"`
	Score        int    `json:"score"`
	Passed       bool   `json:"passed"`
	Timestamp    int64  `json:"timestamp"`
}

type CertificateIssuedEvent struct {
	CertificateID string `json:"certificate_id"`
	CourseID      string `json:"course_id"`
	UserID        string `json:"user_id"`
	Timestamp     int64  `json:"timestamp"`
}
