package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpulse/insights-api/internal/models"
)

// AssessmentReportRepository serves the assessment list and template
// drill-down views.
type AssessmentReportRepository struct {
	db *sqlx.DB
}

// NewAssessmentReportRepository constructs an AssessmentReportRepository.
func NewAssessmentReportRepository(db *sqlx.DB) *AssessmentReportRepository {
	return &AssessmentReportRepository{db: db}
}

// ListWithStats returns every assessment for a school with participation
// aggregates attached in the same grouped query.
func (r *AssessmentReportRepository) ListWithStats(ctx context.Context, schoolID string) ([]models.AssessmentStatRow, error) {
	const query = `SELECT a.id AS assessment_id, a.template_id, a.title, a.class_id, c.name AS class_name,
        a.status, a.created_at,
        COUNT(DISTINCT r.student_id) AS submissions,
        AVG(r.score) AS avg_score
        FROM b2b_assessments a
        LEFT JOIN b2b_classes c ON c.id = a.class_id
        LEFT JOIN b2b_student_responses r ON r.assessment_id = a.id
        WHERE a.school_id = $1
        GROUP BY a.id, a.template_id, a.title, a.class_id, c.name, a.status, a.created_at
        ORDER BY a.created_at DESC`
	var rows []models.AssessmentStatRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list assessments with stats: %w", err)
	}
	return rows, nil
}

// GetTemplate fetches one assessment template with its raw question payload.
func (r *AssessmentReportRepository) GetTemplate(ctx context.Context, templateID string) (*models.AssessmentTemplate, error) {
	const query = `SELECT id, title, description, questions, is_active, created_at
        FROM b2b_assessment_templates WHERE id = $1`
	var template models.AssessmentTemplate
	if err := r.db.GetContext(ctx, &template, query, templateID); err != nil {
		return nil, err
	}
	return &template, nil
}

// TemplateSubmissionScores returns one row per (student, assessment)
// submission of the template within a school, with summed scores.
func (r *AssessmentReportRepository) TemplateSubmissionScores(ctx context.Context, schoolID, templateID string) ([]models.SubmissionScore, error) {
	const query = `SELECT r.student_id, s.full_name, s.class_id, c.name AS class_name,
        r.assessment_id, SUM(r.score) AS total_score, MAX(r.created_at) AS completed_at
        FROM b2b_student_responses r
        JOIN b2b_assessments a ON a.id = r.assessment_id
        JOIN b2b_students s ON s.id = r.student_id
        LEFT JOIN b2b_classes c ON c.id = s.class_id
        WHERE a.school_id = $1 AND a.template_id = $2 AND s.is_active = TRUE
        GROUP BY r.student_id, s.full_name, s.class_id, c.name, r.assessment_id
        ORDER BY completed_at DESC`
	var rows []models.SubmissionScore
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, templateID); err != nil {
		return nil, fmt.Errorf("query template submission scores: %w", err)
	}
	return rows, nil
}

// StudentResponses lists one student's question-level answers for every
// instance of a template within a school.
func (r *AssessmentReportRepository) StudentResponses(ctx context.Context, schoolID, templateID, studentID string) ([]models.StudentResponse, error) {
	const query = `SELECT r.id, r.student_id, r.assessment_id, r.question_id, r.response_value, r.score, r.created_at
        FROM b2b_student_responses r
        JOIN b2b_assessments a ON a.id = r.assessment_id
        WHERE a.school_id = $1 AND a.template_id = $2 AND r.student_id = $3
        ORDER BY r.created_at ASC, r.question_id ASC`
	var rows []models.StudentResponse
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, templateID, studentID); err != nil {
		return nil, fmt.Errorf("query student responses: %w", err)
	}
	return rows, nil
}

// StudentAssessmentRows returns one student's submissions grouped per
// assessment, carrying the template questions for max-score derivation.
func (r *AssessmentReportRepository) StudentAssessmentRows(ctx context.Context, schoolID, studentID string) ([]models.StudentAssessmentRow, error) {
	const query = `SELECT r.assessment_id, a.template_id, a.title, t.questions,
        SUM(r.score) AS total_score, COUNT(*) AS response_count, MAX(r.created_at) AS completed_at
        FROM b2b_student_responses r
        JOIN b2b_assessments a ON a.id = r.assessment_id
        JOIN b2b_assessment_templates t ON t.id = a.template_id
        WHERE r.student_id = $1 AND a.school_id = $2
        GROUP BY r.assessment_id, a.template_id, a.title, t.questions
        ORDER BY completed_at DESC`
	var rows []models.StudentAssessmentRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, schoolID); err != nil {
		return nil, fmt.Errorf("query student assessment rows: %w", err)
	}
	return rows, nil
}

// ClassSubmissionAverages returns the average per-submission score per
// student within one class, ranked descending. Used for the in-class
// comparison fields on the profile.
func (r *AssessmentReportRepository) ClassSubmissionAverages(ctx context.Context, schoolID, classID string) ([]models.StudentScore, error) {
	const query = `SELECT per.student_id, AVG(per.total)::DOUBLE PRECISION AS score
        FROM (
            SELECT r.student_id, r.assessment_id, SUM(r.score) AS total
            FROM b2b_student_responses r
            JOIN b2b_students s ON s.id = r.student_id
            JOIN b2b_assessments a ON a.id = r.assessment_id
            WHERE s.class_id = $1 AND s.is_active = TRUE AND a.school_id = $2
            GROUP BY r.student_id, r.assessment_id
        ) per
        GROUP BY per.student_id
        ORDER BY score DESC, per.student_id ASC`
	var rows []models.StudentScore
	if err := r.db.SelectContext(ctx, &rows, query, classID, schoolID); err != nil {
		return nil, fmt.Errorf("query class submission averages: %w", err)
	}
	return rows, nil
}
