package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpulse/insights-api/internal/models"
)

func newActivityReportMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityReportRepositoryListWithStats(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	cols := []string{"assignment_id", "class_id", "class_name", "title", "due_date", "created_at", "submitted", "verified", "pending", "rejected"}
	mock.ExpectQuery(regexp.QuoteMeta("SUM(CASE WHEN sub.status = 'SUBMITTED' THEN 1 ELSE 0 END) AS submitted")).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("asg-1", "class-1", "7A", "Gratitude Journal", time.Now(), time.Now(), 8, 4, 3, 1))

	rows, err := repo.ListWithStats(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Submitted)
	assert.Equal(t, 4, rows[0].Verified)
	assert.Equal(t, 3, rows[0].Pending)
	assert.Equal(t, 1, rows[0].Rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityReportRepositoryStudentActivityRowsStatusFilter(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	cols := []string{"submission_id", "assignment_id", "title", "status", "due_date", "submitted_at", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("AND sub.status = $3 ORDER BY sub.created_at DESC")).
		WithArgs("stu-1", "school-1", "VERIFIED").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("sub-1", "asg-1", "Gratitude Journal", "VERIFIED", nil, time.Now(), time.Now()))

	status := models.SubmissionVerified
	rows, err := repo.StudentActivityRows(context.Background(), "school-1", "stu-1", &status)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SubmissionVerified, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityReportRepositoryStatusBreakdown(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT sub.status AS key, COUNT(*) AS count")).
		WithArgs("stu-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("SUBMITTED", 2).
			AddRow("PENDING", 1))

	counts, err := repo.StatusBreakdown(context.Background(), "school-1", "stu-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "SUBMITTED", counts[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityReportRepositoryCountAssignmentsForClass(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM b2b_activity_assignments WHERE class_id = $1 AND is_active = TRUE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	count, err := repo.CountAssignmentsForClass(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityReportRepositoryGetAssignmentScopesSchool(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	cols := []string{"id", "school_id", "class_id", "title", "description", "due_date", "is_active", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM b2b_activity_assignments WHERE id = $1 AND school_id = $2")).
		WithArgs("asg-1", "school-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("asg-1", "school-1", "class-a", "Journal", nil, nil, true, time.Now()))

	assignment, err := repo.GetAssignment(context.Background(), "school-1", "asg-1")
	require.NoError(t, err)
	assert.Equal(t, "class-a", assignment.ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityReportRepositoryGetAssignmentNoRows(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM b2b_activity_assignments")).
		WithArgs("missing", "school-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAssignment(context.Background(), "school-1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestActivityReportRepositorySubmissionsForAssignment(t *testing.T) {
	db, mock, cleanup := newActivityReportMock(t)
	defer cleanup()
	repo := NewActivityReportRepository(db)

	submitted := time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
	cols := []string{"student_id", "full_name", "class_id", "status", "submitted_at"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sub.assignment_id = $1")).
		WithArgs("asg-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("stu-1", "Asha Verma", "class-a", "VERIFIED", submitted).
			AddRow("stu-2", "Kabir Rao", nil, "PENDING", nil))

	rows, err := repo.SubmissionsForAssignment(context.Background(), "asg-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.SubmissionVerified, rows[0].Status)
	assert.Nil(t, rows[1].ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
