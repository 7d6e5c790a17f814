package models

import "time"

// ClassGroup is one class roster within a school.
type ClassGroup struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Grade     *string   `db:"grade" json:"grade,omitempty"`
	Active    bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentClassPair links a student to their current class, used to build
// per-class id sets without issuing one query per class.
type StudentClassPair struct {
	StudentID string  `db:"student_id"`
	ClassID   *string `db:"class_id"`
}
