package models

import "time"

// Observation is a qualitative note a counsellor recorded about a student.
type Observation struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Note       string    `db:"note" json:"note"`
	AuthorName *string   `db:"author_name" json:"author_name,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RiskAlert is an automated flag raised on a student's behaviour or scores.
type RiskAlert struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	AlertType string    `db:"alert_type" json:"alert_type"`
	Severity  string    `db:"severity" json:"severity"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
