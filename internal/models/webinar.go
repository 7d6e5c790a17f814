package models

import "time"

// Webinar is a platform-wide live session students can be invited to.
type Webinar struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     *string   `db:"description" json:"description,omitempty"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Active          bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// WebinarRegistration scopes a webinar to a school. An empty ClassIDs list
// invites the whole school.
type WebinarRegistration struct {
	ID        string    `db:"id" json:"id"`
	WebinarID string    `db:"webinar_id" json:"webinar_id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	ClassIDs  []string  `json:"class_ids"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WebinarAttendance is a (student, webinar) record.
type WebinarAttendance struct {
	ID                   string    `db:"id" json:"id"`
	StudentID            string    `db:"student_id" json:"student_id"`
	WebinarID            string    `db:"webinar_id" json:"webinar_id"`
	Attended             bool      `db:"attended" json:"attended"`
	WatchDurationMinutes *int      `db:"watch_duration_minutes" json:"watch_duration_minutes,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// RegistrationRow is one school registration with the webinar metadata and
// the raw class-id scope payload.
type RegistrationRow struct {
	RegistrationID string    `db:"registration_id"`
	WebinarID      string    `db:"webinar_id"`
	Title          string    `db:"title"`
	ScheduledAt    time.Time `db:"scheduled_at"`
	ClassIDs       []byte    `db:"class_ids"`
}

// AttendancePair links an attendee to a webinar, used to reconcile invited
// sets against historical attendance.
type AttendancePair struct {
	WebinarID string `db:"webinar_id"`
	StudentID string `db:"student_id"`
	Attended  bool   `db:"attended"`
}

// WebinarAttendanceRow is one attendance record of a webinar joined with the
// attending student, for the per-webinar drill-down.
type WebinarAttendanceRow struct {
	StudentID            string  `db:"student_id"`
	FullName             string  `db:"full_name"`
	RollNumber           *string `db:"roll_number"`
	ClassID              *string `db:"class_id"`
	ClassName            *string `db:"class_name"`
	Attended             bool    `db:"attended"`
	WatchDurationMinutes *int    `db:"watch_duration_minutes"`
}

// StudentWebinarRow is one attendance record joined with webinar metadata
// for the per-student history view.
type StudentWebinarRow struct {
	WebinarID            string    `db:"webinar_id"`
	Title                string    `db:"title"`
	ScheduledAt          time.Time `db:"scheduled_at"`
	Attended             bool      `db:"attended"`
	WatchDurationMinutes *int      `db:"watch_duration_minutes"`
	CreatedAt            time.Time `db:"created_at"`
}
