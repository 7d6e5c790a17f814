package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/schoolpulse/insights-api/internal/models"
)

// CohortRepository resolves the student id sets every aggregate query
// operates on, plus the school/class roots they hang off.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs a CohortRepository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// SchoolExists reports whether the school id references a live school.
func (r *CohortRepository) SchoolExists(ctx context.Context, schoolID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM b2b_schools WHERE id = $1 AND is_active = TRUE LIMIT 1", schoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school: %w", err)
	}
	return true, nil
}

// GetClass fetches one class scoped to a school.
func (r *CohortRepository) GetClass(ctx context.Context, schoolID, classID string) (*models.ClassGroup, error) {
	const query = `SELECT id, school_id, teacher_id, name, grade, is_active, created_at
        FROM b2b_classes WHERE id = $1 AND school_id = $2`
	var class models.ClassGroup
	if err := r.db.GetContext(ctx, &class, query, classID, schoolID); err != nil {
		return nil, err
	}
	return &class, nil
}

// GetStudent fetches one student scoped to a school.
func (r *CohortRepository) GetStudent(ctx context.Context, schoolID, studentID string) (*models.Student, error) {
	const query = `SELECT id, school_id, class_id, full_name, email, roll_number, grade,
        wellbeing_score, risk_level, is_active, created_at
        FROM b2b_students WHERE id = $1 AND school_id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID, schoolID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ClassesBySchool lists active classes for a school, optionally narrowed to
// one teacher's classes. A teacher owning no classes yields an empty slice.
func (r *CohortRepository) ClassesBySchool(ctx context.Context, schoolID, teacherID string) ([]models.ClassGroup, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT id, school_id, teacher_id, name, grade, is_active, created_at
        FROM b2b_classes WHERE school_id = $1 AND is_active = TRUE`)
	args := []interface{}{schoolID}
	if teacherID != "" {
		args = append(args, teacherID)
		builder.WriteString(fmt.Sprintf(" AND teacher_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY name ASC, id ASC")

	var classes []models.ClassGroup
	if err := r.db.SelectContext(ctx, &classes, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// StudentIDs resolves the ordered cohort for the given scope. Ordering is
// stable (name, then id) so downstream ranked views can tie-break on it.
func (r *CohortRepository) StudentIDs(ctx context.Context, filter models.CohortFilter) ([]string, error) {
	base, args := cohortWhere(filter)
	query := "SELECT s.id " + base + " ORDER BY s.full_name ASC, s.id ASC"

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("resolve cohort: %w", err)
	}
	return ids, nil
}

// Students resolves the full cohort with student attributes attached, in the
// same stable order as StudentIDs. Summary views need the attribute columns
// (wellbeing, risk, class) rather than bare ids.
func (r *CohortRepository) Students(ctx context.Context, filter models.CohortFilter) ([]models.Student, error) {
	base, args := cohortWhere(filter)
	query := `SELECT s.id, s.school_id, s.class_id, s.full_name, s.email, s.roll_number,
        s.grade, s.wellbeing_score, s.risk_level, s.is_active, s.created_at ` +
		base + " ORDER BY s.full_name ASC, s.id ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("resolve cohort students: %w", err)
	}
	return students, nil
}

// ListStudents returns one roster page plus the total cohort count computed
// independently of the page slice.
func (r *CohortRepository) ListStudents(ctx context.Context, filter models.RosterFilter) ([]models.Student, int, error) {
	base, args := cohortWhere(filter.CohortFilter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.school_id, s.class_id, s.full_name, s.email, s.roll_number,
        s.grade, s.wellbeing_score, s.risk_level, s.is_active, s.created_at
        %s ORDER BY s.full_name ASC, s.id ASC LIMIT %d OFFSET %d`, base, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// StudentCountsByClass returns the active roster size per class for a school.
func (r *CohortRepository) StudentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error) {
	const query = `SELECT s.class_id AS key, COUNT(*) AS count
        FROM b2b_students s
        WHERE s.school_id = $1 AND s.is_active = TRUE AND s.class_id IS NOT NULL
        GROUP BY s.class_id`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("count students by class: %w", err)
	}
	return counts, nil
}

// RosterPairs returns every active (student, class) membership for a school
// in one query so callers can assemble per-class id sets in memory.
func (r *CohortRepository) RosterPairs(ctx context.Context, schoolID string) ([]models.StudentClassPair, error) {
	const query = `SELECT s.id AS student_id, s.class_id
        FROM b2b_students s
        WHERE s.school_id = $1 AND s.is_active = TRUE
        ORDER BY s.id ASC`
	var pairs []models.StudentClassPair
	if err := r.db.SelectContext(ctx, &pairs, query, schoolID); err != nil {
		return nil, fmt.Errorf("list roster pairs: %w", err)
	}
	return pairs, nil
}

// cohortWhere builds the shared FROM/WHERE clause for cohort resolution.
// The teacher scope is resolved in the same statement via the class join,
// so a teacher without classes naturally produces an empty set.
func cohortWhere(filter models.CohortFilter) (string, []interface{}) {
	base := "FROM b2b_students s"
	args := []interface{}{filter.SchoolID}
	conditions := []string{"s.school_id = $1", "s.is_active = TRUE"}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		base += fmt.Sprintf(" JOIN b2b_classes tc ON tc.id = s.class_id AND tc.teacher_id = $%d", len(args))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)))
	}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		conditions = append(conditions, fmt.Sprintf("s.grade = $%d", len(args)))
	}
	if filter.RiskLevel != nil {
		args = append(args, string(*filter.RiskLevel))
		if *filter.RiskLevel == models.RiskLow {
			// Absent risk defaults to LOW, so the LOW filter includes NULL rows.
			conditions = append(conditions, fmt.Sprintf("(s.risk_level = $%d OR s.risk_level IS NULL)", len(args)))
		} else {
			conditions = append(conditions, fmt.Sprintf("s.risk_level = $%d", len(args)))
		}
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(COALESCE(s.email, '')) LIKE $%d)", len(args), len(args)))
	}

	return fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND ")), args
}
