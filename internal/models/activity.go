package models

import (
	"strings"
	"time"
)

// SubmissionStatus tracks the lifecycle of an activity submission.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionVerified  SubmissionStatus = "VERIFIED"
	SubmissionRejected  SubmissionStatus = "REJECTED"
)

// ParseSubmissionStatus validates a raw status filter value.
func ParseSubmissionStatus(raw string) (SubmissionStatus, bool) {
	switch SubmissionStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case SubmissionPending:
		return SubmissionPending, true
	case SubmissionSubmitted:
		return SubmissionSubmitted, true
	case SubmissionVerified:
		return SubmissionVerified, true
	case SubmissionRejected:
		return SubmissionRejected, true
	default:
		return "", false
	}
}

// Completed reports whether the status counts towards completion metrics.
func (s SubmissionStatus) Completed() bool {
	return s == SubmissionSubmitted || s == SubmissionVerified
}

// ActivityAssignment targets an activity at one class.
type ActivityAssignment struct {
	ID          string     `db:"id" json:"id"`
	SchoolID    string     `db:"school_id" json:"school_id"`
	ClassID     string     `db:"class_id" json:"class_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Active      bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ActivitySubmission is a (student, assignment) record.
type ActivitySubmission struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Note         *string          `db:"note" json:"note,omitempty"`
	SubmittedAt  *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// StudentActivityRow is one submission joined with its assignment metadata
// for the per-student history view.
type StudentActivityRow struct {
	SubmissionID string           `db:"submission_id"`
	AssignmentID string           `db:"assignment_id"`
	Title        string           `db:"title"`
	Status       SubmissionStatus `db:"status"`
	DueDate      *time.Time       `db:"due_date"`
	SubmittedAt  *time.Time       `db:"submitted_at"`
	CreatedAt    time.Time        `db:"created_at"`
}

// AssignmentSubmissionRow is one submission of an assignment joined with the
// submitting student, for the per-assignment drill-down.
type AssignmentSubmissionRow struct {
	StudentID   string           `db:"student_id"`
	FullName    string           `db:"full_name"`
	ClassID     *string          `db:"class_id"`
	Status      SubmissionStatus `db:"status"`
	SubmittedAt *time.Time       `db:"submitted_at"`
}

// AssignmentStatRow backs the assignment list view: one assignment with its
// submission aggregates.
type AssignmentStatRow struct {
	AssignmentID string     `db:"assignment_id"`
	ClassID      string     `db:"class_id"`
	ClassName    *string    `db:"class_name"`
	Title        string     `db:"title"`
	DueDate      *time.Time `db:"due_date"`
	CreatedAt    time.Time  `db:"created_at"`
	Submitted    int        `db:"submitted"`
	Verified     int        `db:"verified"`
	Pending      int        `db:"pending"`
	Rejected     int        `db:"rejected"`
}
