package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/schoolpulse/insights-api/internal/models"
)

// EngagementRepository issues the batched per-family aggregate queries. Every
// method runs exactly one grouped statement over the whole id set; callers
// must treat a missing map key as zero activity.
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository constructs an EngagementRepository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// AssessmentCompletion returns distinct completed assessments and average
// response score per student.
func (r *EngagementRepository) AssessmentCompletion(ctx context.Context, studentIDs []string) (map[string]models.AssessmentAgg, error) {
	if len(studentIDs) == 0 {
		return map[string]models.AssessmentAgg{}, nil
	}
	const query = `SELECT r.student_id,
        COUNT(DISTINCT r.assessment_id) AS completed_count,
        AVG(r.score) AS avg_score
        FROM b2b_student_responses r
        WHERE r.student_id = ANY($1)
        GROUP BY r.student_id`

	var rows []models.AssessmentAgg
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("query assessment completion: %w", err)
	}
	out := make(map[string]models.AssessmentAgg, len(rows))
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}

// ActivityCompletion returns the completed submission count per student.
func (r *EngagementRepository) ActivityCompletion(ctx context.Context, studentIDs []string) (map[string]models.ActivityAgg, error) {
	if len(studentIDs) == 0 {
		return map[string]models.ActivityAgg{}, nil
	}
	const query = `SELECT sub.student_id, COUNT(*) AS completed_count
        FROM b2b_activity_submissions sub
        WHERE sub.student_id = ANY($1) AND sub.status IN ('SUBMITTED', 'VERIFIED')
        GROUP BY sub.student_id`

	var rows []models.ActivityAgg
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("query activity completion: %w", err)
	}
	out := make(map[string]models.ActivityAgg, len(rows))
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}

// WebinarAttendance returns the attended-webinar count per student.
func (r *EngagementRepository) WebinarAttendance(ctx context.Context, studentIDs []string) (map[string]models.WebinarAgg, error) {
	if len(studentIDs) == 0 {
		return map[string]models.WebinarAgg{}, nil
	}
	const query = `SELECT a.student_id, COUNT(*) AS attended_count
        FROM student_webinar_attendance a
        WHERE a.student_id = ANY($1) AND a.attended = TRUE
        GROUP BY a.student_id`

	var rows []models.WebinarAgg
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("query webinar attendance: %w", err)
	}
	out := make(map[string]models.WebinarAgg, len(rows))
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}

// StreakStates returns the derived streak summary per student.
func (r *EngagementRepository) StreakStates(ctx context.Context, studentIDs []string) (map[string]models.StreakAgg, error) {
	if len(studentIDs) == 0 {
		return map[string]models.StreakAgg{}, nil
	}
	const query = `SELECT student_id, current_streak, longest_streak, last_active_date
        FROM student_streak_summaries
        WHERE student_id = ANY($1)`

	var rows []models.StreakAgg
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("query streak states: %w", err)
	}
	out := make(map[string]models.StreakAgg, len(rows))
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}

// SessionCounts returns app-session count and summed minutes per student
// within the window.
func (r *EngagementRepository) SessionCounts(ctx context.Context, studentIDs []string, from, to time.Time) (map[string]models.SessionAgg, error) {
	if len(studentIDs) == 0 {
		return map[string]models.SessionAgg{}, nil
	}
	const query = `SELECT s.student_id, COUNT(*) AS session_count,
        COALESCE(SUM(COALESCE(s.duration_minutes, 0)), 0) AS total_minutes
        FROM student_app_sessions s
        WHERE s.student_id = ANY($1) AND s.started_at >= $2 AND s.started_at < $3
        GROUP BY s.student_id`

	var rows []models.SessionAgg
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs), from, to); err != nil {
		return nil, fmt.Errorf("query session counts: %w", err)
	}
	out := make(map[string]models.SessionAgg, len(rows))
	for _, row := range rows {
		out[row.StudentID] = row
	}
	return out, nil
}

// AssessmentSubmissionsByClass counts distinct (student, assessment)
// submissions grouped by the student's current class.
func (r *EngagementRepository) AssessmentSubmissionsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT s.class_id AS key, COUNT(DISTINCT (r.student_id, r.assessment_id)) AS count
        FROM b2b_student_responses r
        JOIN b2b_students s ON s.id = r.student_id
        WHERE s.school_id = $1 AND s.is_active = TRUE AND s.class_id IS NOT NULL
        GROUP BY s.class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("query assessment submissions by class: %w", err)
	}
	return counts, nil
}

// CompletedSubmissionsByClass counts completed activity submissions grouped
// by the assignment's class, not the student's current one.
func (r *EngagementRepository) CompletedSubmissionsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT aa.class_id AS key, COUNT(*) AS count
        FROM b2b_activity_submissions sub
        JOIN b2b_activity_assignments aa ON aa.id = sub.assignment_id
        WHERE aa.school_id = $1 AND sub.status IN ('SUBMITTED', 'VERIFIED')
        GROUP BY aa.class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("query completed submissions by class: %w", err)
	}
	return counts, nil
}

// AssignmentCountsByClass counts active assignments per class.
func (r *EngagementRepository) AssignmentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT class_id AS key, COUNT(*) AS count
        FROM b2b_activity_assignments
        WHERE school_id = $1 AND is_active = TRUE
        GROUP BY class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("query assignment counts by class: %w", err)
	}
	return counts, nil
}

// AttendedByClass counts attended webinar records grouped by the student's
// current class.
func (r *EngagementRepository) AttendedByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT s.class_id AS key, COUNT(*) AS count
        FROM student_webinar_attendance a
        JOIN b2b_students s ON s.id = a.student_id
        WHERE s.school_id = $1 AND s.is_active = TRUE AND s.class_id IS NOT NULL AND a.attended = TRUE
        GROUP BY s.class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("query attended by class: %w", err)
	}
	return counts, nil
}

// CountSchoolWideAssessments counts assessments targeting the whole school.
func (r *EngagementRepository) CountSchoolWideAssessments(ctx context.Context, schoolID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM b2b_assessments WHERE school_id = $1 AND class_id IS NULL", schoolID)
	if err != nil {
		return 0, fmt.Errorf("count school-wide assessments: %w", err)
	}
	return count, nil
}

// AssessmentCountsByClass counts class-targeted assessments per class.
func (r *EngagementRepository) AssessmentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT class_id AS key, COUNT(*) AS count
        FROM b2b_assessments
        WHERE school_id = $1 AND class_id IS NOT NULL
        GROUP BY class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("query assessment counts by class: %w", err)
	}
	return counts, nil
}

// DailyAssessmentStudents counts distinct responding students per day.
func (r *EngagementRepository) DailyAssessmentStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error) {
	const query = `SELECT DATE(r.created_at) AS day, COUNT(DISTINCT r.student_id) AS count
        FROM b2b_student_responses r
        JOIN b2b_students s ON s.id = r.student_id
        WHERE s.school_id = $1 AND s.is_active = TRUE AND r.created_at >= $2 AND r.created_at < $3
        GROUP BY DATE(r.created_at)`
	var rows []models.DailyDistinct
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, from, to); err != nil {
		return nil, fmt.Errorf("query daily assessment students: %w", err)
	}
	return rows, nil
}

// DailyActivityStudents counts distinct submitting students per day, keyed
// by the submission timestamp when present.
func (r *EngagementRepository) DailyActivityStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error) {
	const query = `SELECT DATE(COALESCE(sub.submitted_at, sub.created_at)) AS day, COUNT(DISTINCT sub.student_id) AS count
        FROM b2b_activity_submissions sub
        JOIN b2b_students s ON s.id = sub.student_id
        WHERE s.school_id = $1 AND s.is_active = TRUE
          AND sub.status IN ('SUBMITTED', 'VERIFIED')
          AND COALESCE(sub.submitted_at, sub.created_at) >= $2
          AND COALESCE(sub.submitted_at, sub.created_at) < $3
        GROUP BY DATE(COALESCE(sub.submitted_at, sub.created_at))`
	var rows []models.DailyDistinct
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, from, to); err != nil {
		return nil, fmt.Errorf("query daily activity students: %w", err)
	}
	return rows, nil
}

// DailyWebinarStudents counts distinct attending students per day.
func (r *EngagementRepository) DailyWebinarStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error) {
	const query = `SELECT DATE(a.created_at) AS day, COUNT(DISTINCT a.student_id) AS count
        FROM student_webinar_attendance a
        JOIN b2b_students s ON s.id = a.student_id
        WHERE s.school_id = $1 AND s.is_active = TRUE AND a.attended = TRUE
          AND a.created_at >= $2 AND a.created_at < $3
        GROUP BY DATE(a.created_at)`
	var rows []models.DailyDistinct
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, from, to); err != nil {
		return nil, fmt.Errorf("query daily webinar students: %w", err)
	}
	return rows, nil
}

// LeaderboardRows returns the full ranked set for the metric inside the
// lookback window, ordered non-increasing with a stable name/id tiebreak.
// Pagination happens in the service so the total always reflects the
// unpaginated set.
func (r *EngagementRepository) LeaderboardRows(ctx context.Context, schoolID string, metric models.LeaderboardMetric, from time.Time) ([]models.LeaderboardRow, error) {
	var query string
	switch metric {
	case models.LeaderboardAssessments:
		query = `SELECT s.id AS student_id, s.full_name, s.class_id, c.name AS class_name,
            AVG(r.score)::DOUBLE PRECISION AS score
            FROM b2b_student_responses r
            JOIN b2b_students s ON s.id = r.student_id
            LEFT JOIN b2b_classes c ON c.id = s.class_id
            WHERE s.school_id = $1 AND s.is_active = TRUE AND r.created_at >= $2
            GROUP BY s.id, s.full_name, s.class_id, c.name
            ORDER BY score DESC, s.full_name ASC, s.id ASC`
	case models.LeaderboardActivities:
		query = `SELECT s.id AS student_id, s.full_name, s.class_id, c.name AS class_name,
            COUNT(*)::DOUBLE PRECISION AS score
            FROM b2b_activity_submissions sub
            JOIN b2b_students s ON s.id = sub.student_id
            LEFT JOIN b2b_classes c ON c.id = s.class_id
            WHERE s.school_id = $1 AND s.is_active = TRUE AND sub.status IN ('SUBMITTED', 'VERIFIED')
              AND COALESCE(sub.submitted_at, sub.created_at) >= $2
            GROUP BY s.id, s.full_name, s.class_id, c.name
            ORDER BY score DESC, s.full_name ASC, s.id ASC`
	case models.LeaderboardWebinars:
		query = `SELECT s.id AS student_id, s.full_name, s.class_id, c.name AS class_name,
            COUNT(*)::DOUBLE PRECISION AS score
            FROM student_webinar_attendance a
            JOIN b2b_students s ON s.id = a.student_id
            LEFT JOIN b2b_classes c ON c.id = s.class_id
            WHERE s.school_id = $1 AND s.is_active = TRUE AND a.attended = TRUE AND a.created_at >= $2
            GROUP BY s.id, s.full_name, s.class_id, c.name
            ORDER BY score DESC, s.full_name ASC, s.id ASC`
	default:
		return nil, fmt.Errorf("unknown leaderboard metric %q", metric)
	}

	var rows []models.LeaderboardRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, from); err != nil {
		return nil, fmt.Errorf("query leaderboard rows: %w", err)
	}
	return rows, nil
}

// DailyStreakHistory lists one student's daily streak rows inside a window,
// newest first.
func (r *EngagementRepository) DailyStreakHistory(ctx context.Context, studentID string, from, to time.Time) ([]models.DailyStreak, error) {
	const query = `SELECT id, student_id, activity_date, app_opened, activity_completed
        FROM student_daily_streaks
        WHERE student_id = $1 AND activity_date >= $2 AND activity_date < $3
        ORDER BY activity_date DESC`
	var rows []models.DailyStreak
	if err := r.db.SelectContext(ctx, &rows, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("query daily streak history: %w", err)
	}
	return rows, nil
}
