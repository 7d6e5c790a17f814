package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpulse/insights-api/internal/models"
)

// WebinarReportRepository serves the webinar list and per-student attendance
// history views.
type WebinarReportRepository struct {
	db *sqlx.DB
}

// NewWebinarReportRepository constructs a WebinarReportRepository.
func NewWebinarReportRepository(db *sqlx.DB) *WebinarReportRepository {
	return &WebinarReportRepository{db: db}
}

// RegistrationsBySchool lists every live webinar registration for a school
// along with the raw class-id scope payload.
func (r *WebinarReportRepository) RegistrationsBySchool(ctx context.Context, schoolID string) ([]models.RegistrationRow, error) {
	const query = `SELECT wr.id AS registration_id, wr.webinar_id, w.title, w.scheduled_at, wr.class_ids
        FROM b2b_webinar_registrations wr
        JOIN b2b_webinars w ON w.id = wr.webinar_id
        WHERE wr.school_id = $1 AND w.is_active = TRUE
        ORDER BY w.scheduled_at DESC, wr.id ASC`
	var rows []models.RegistrationRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return rows, nil
}

// AttendancePairs returns every (webinar, student) attendance record for a
// school's students. Inactive students stay included so historical attendees
// survive the invited-set reconciliation.
func (r *WebinarReportRepository) AttendancePairs(ctx context.Context, schoolID string) ([]models.AttendancePair, error) {
	const query = `SELECT a.webinar_id, a.student_id, a.attended
        FROM student_webinar_attendance a
        JOIN b2b_students s ON s.id = a.student_id
        WHERE s.school_id = $1`
	var pairs []models.AttendancePair
	if err := r.db.SelectContext(ctx, &pairs, query, schoolID); err != nil {
		return nil, fmt.Errorf("list attendance pairs: %w", err)
	}
	return pairs, nil
}

// GetWebinar fetches one webinar.
func (r *WebinarReportRepository) GetWebinar(ctx context.Context, webinarID string) (*models.Webinar, error) {
	const query = `SELECT id, title, description, scheduled_at, duration_minutes, is_active, created_at
        FROM b2b_webinars WHERE id = $1`
	var webinar models.Webinar
	if err := r.db.GetContext(ctx, &webinar, query, webinarID); err != nil {
		return nil, err
	}
	return &webinar, nil
}

// RegistrationForSchool fetches the school's registration for one webinar.
// Nil without error means the school never registered.
func (r *WebinarReportRepository) RegistrationForSchool(ctx context.Context, schoolID, webinarID string) (*models.RegistrationRow, error) {
	const query = `SELECT wr.id AS registration_id, wr.webinar_id, w.title, w.scheduled_at, wr.class_ids
        FROM b2b_webinar_registrations wr
        JOIN b2b_webinars w ON w.id = wr.webinar_id
        WHERE wr.school_id = $1 AND wr.webinar_id = $2
        ORDER BY wr.id ASC LIMIT 1`
	var row models.RegistrationRow
	if err := r.db.GetContext(ctx, &row, query, schoolID, webinarID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &row, nil
}

// WebinarAttendanceRows lists every attendance record of one webinar for a
// school's students, with names and current class.
func (r *WebinarReportRepository) WebinarAttendanceRows(ctx context.Context, schoolID, webinarID string) ([]models.WebinarAttendanceRow, error) {
	const query = `SELECT a.student_id, s.full_name, s.roll_number, s.class_id, c.name AS class_name,
        a.attended, a.watch_duration_minutes
        FROM student_webinar_attendance a
        JOIN b2b_students s ON s.id = a.student_id
        LEFT JOIN b2b_classes c ON c.id = s.class_id
        WHERE a.webinar_id = $1 AND s.school_id = $2
        ORDER BY s.full_name ASC, s.id ASC`
	var rows []models.WebinarAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, webinarID, schoolID); err != nil {
		return nil, fmt.Errorf("query webinar attendance rows: %w", err)
	}
	return rows, nil
}

// StudentWebinarRows lists one student's attendance records with webinar
// metadata, newest first.
func (r *WebinarReportRepository) StudentWebinarRows(ctx context.Context, studentID string) ([]models.StudentWebinarRow, error) {
	const query = `SELECT a.webinar_id, w.title, w.scheduled_at, a.attended, a.watch_duration_minutes, a.created_at
        FROM student_webinar_attendance a
        JOIN b2b_webinars w ON w.id = a.webinar_id
        WHERE a.student_id = $1
        ORDER BY w.scheduled_at DESC`
	var rows []models.StudentWebinarRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("query student webinar rows: %w", err)
	}
	return rows, nil
}
