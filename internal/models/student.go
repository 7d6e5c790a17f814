package models

import "time"

// Student is one learner enrolled at a partner school.
type Student struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"school_id"`
	ClassID        *string    `db:"class_id" json:"class_id,omitempty"`
	FullName       string     `db:"full_name" json:"full_name"`
	Email          *string    `db:"email" json:"email,omitempty"`
	RollNumber     *string    `db:"roll_number" json:"roll_number,omitempty"`
	Grade          *string    `db:"grade" json:"grade,omitempty"`
	WellbeingScore *float64   `db:"wellbeing_score" json:"wellbeing_score,omitempty"`
	RiskLevel      *RiskLevel `db:"risk_level" json:"risk_level,omitempty"`
	Active         bool       `db:"is_active" json:"is_active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// CohortFilter narrows the set of students a metric is computed over.
// Scope precedence: ClassID, then TeacherID (via owned classes), then the
// whole school.
type CohortFilter struct {
	SchoolID  string
	ClassID   string
	TeacherID string
	Search    string
	Grade     string
	RiskLevel *RiskLevel
}

// RosterFilter extends CohortFilter with pagination for listing endpoints.
type RosterFilter struct {
	CohortFilter
	Page     int
	PageSize int
}
