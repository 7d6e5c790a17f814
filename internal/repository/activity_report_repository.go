package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpulse/insights-api/internal/models"
)

// ActivityReportRepository serves the assignment list and per-student
// submission history views.
type ActivityReportRepository struct {
	db *sqlx.DB
}

// NewActivityReportRepository constructs an ActivityReportRepository.
func NewActivityReportRepository(db *sqlx.DB) *ActivityReportRepository {
	return &ActivityReportRepository{db: db}
}

// ListWithStats returns every active assignment for a school with its
// per-status submission counts in one grouped query.
func (r *ActivityReportRepository) ListWithStats(ctx context.Context, schoolID string) ([]models.AssignmentStatRow, error) {
	const query = `SELECT aa.id AS assignment_id, aa.class_id, c.name AS class_name, aa.title, aa.due_date, aa.created_at,
        SUM(CASE WHEN sub.status = 'SUBMITTED' THEN 1 ELSE 0 END) AS submitted,
        SUM(CASE WHEN sub.status = 'VERIFIED' THEN 1 ELSE 0 END) AS verified,
        SUM(CASE WHEN sub.status = 'PENDING' THEN 1 ELSE 0 END) AS pending,
        SUM(CASE WHEN sub.status = 'REJECTED' THEN 1 ELSE 0 END) AS rejected
        FROM b2b_activity_assignments aa
        LEFT JOIN b2b_classes c ON c.id = aa.class_id
        LEFT JOIN b2b_activity_submissions sub ON sub.assignment_id = aa.id
        WHERE aa.school_id = $1 AND aa.is_active = TRUE
        GROUP BY aa.id, aa.class_id, c.name, aa.title, aa.due_date, aa.created_at
        ORDER BY aa.created_at DESC`
	var rows []models.AssignmentStatRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list assignments with stats: %w", err)
	}
	return rows, nil
}

// GetAssignment fetches one assignment scoped to a school.
func (r *ActivityReportRepository) GetAssignment(ctx context.Context, schoolID, assignmentID string) (*models.ActivityAssignment, error) {
	const query = `SELECT id, school_id, class_id, title, description, due_date, is_active, created_at
        FROM b2b_activity_assignments WHERE id = $1 AND school_id = $2`
	var assignment models.ActivityAssignment
	if err := r.db.GetContext(ctx, &assignment, query, assignmentID, schoolID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// SubmissionsForAssignment lists every submission of one assignment with the
// submitting student's name and current class. Students who moved classes
// since submitting stay included.
func (r *ActivityReportRepository) SubmissionsForAssignment(ctx context.Context, assignmentID string) ([]models.AssignmentSubmissionRow, error) {
	const query = `SELECT sub.student_id, s.full_name, s.class_id, sub.status, sub.submitted_at
        FROM b2b_activity_submissions sub
        JOIN b2b_students s ON s.id = sub.student_id
        WHERE sub.assignment_id = $1
        ORDER BY s.full_name ASC, s.id ASC`
	var rows []models.AssignmentSubmissionRow
	if err := r.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, fmt.Errorf("query assignment submissions: %w", err)
	}
	return rows, nil
}

// StudentActivityRows lists one student's submissions with assignment
// metadata, optionally narrowed to one status.
func (r *ActivityReportRepository) StudentActivityRows(ctx context.Context, schoolID, studentID string, status *models.SubmissionStatus) ([]models.StudentActivityRow, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT sub.id AS submission_id, sub.assignment_id, aa.title, sub.status, aa.due_date, sub.submitted_at, sub.created_at
        FROM b2b_activity_submissions sub
        JOIN b2b_activity_assignments aa ON aa.id = sub.assignment_id
        WHERE sub.student_id = $1 AND aa.school_id = $2`)
	args := []interface{}{studentID, schoolID}
	if status != nil {
		args = append(args, string(*status))
		builder.WriteString(fmt.Sprintf(" AND sub.status = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY sub.created_at DESC")

	var rows []models.StudentActivityRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query student activity rows: %w", err)
	}
	return rows, nil
}

// StatusBreakdown counts one student's submissions per status.
func (r *ActivityReportRepository) StatusBreakdown(ctx context.Context, schoolID, studentID string) ([]models.GroupCount, error) {
	const query = `SELECT sub.status AS key, COUNT(*) AS count
        FROM b2b_activity_submissions sub
        JOIN b2b_activity_assignments aa ON aa.id = sub.assignment_id
        WHERE sub.student_id = $1 AND aa.school_id = $2
        GROUP BY sub.status`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, studentID, schoolID); err != nil {
		return nil, fmt.Errorf("query status breakdown: %w", err)
	}
	return counts, nil
}

// CountAssignmentsForClass counts the active assignments targeting a class.
func (r *ActivityReportRepository) CountAssignmentsForClass(ctx context.Context, classID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM b2b_activity_assignments WHERE class_id = $1 AND is_active = TRUE", classID)
	if err != nil {
		return 0, fmt.Errorf("count assignments for class: %w", err)
	}
	return count, nil
}
