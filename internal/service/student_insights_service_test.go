package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// validSchoolID satisfies the uuid filter validation.
const validSchoolID = "3b8e7a54-9c1d-4f2a-8b6e-5d4c3b2a1f0e"

func newInsightsService(cohorts *fakeCohortRepo, engagement *fakeEngagementRepo, assessments *fakeAssessmentReportRepo, activities *fakeActivityReportRepo, webinars *fakeWebinarRepo) *StudentInsightsService {
	return NewStudentInsightsService(cohorts, engagement, assessments, activities, webinars, nil, nil, zap.NewNop(), StudentInsightsConfig{})
}

func TestStudentListAttachesEngagementColumns(t *testing.T) {
	lastActive := time.Date(2026, 5, 9, 6, 45, 0, 0, time.UTC)
	cohorts := &fakeCohortRepo{
		exists: true,
		roster: []models.Student{
			{ID: "stu-1", SchoolID: validSchoolID, ClassID: strPtr("class-a"), FullName: "Asha Rao", RiskLevel: riskPtr(models.RiskHigh), WellbeingScore: floatPtr(72)},
			{ID: "stu-2", SchoolID: validSchoolID, FullName: "Ben Okafor"},
		},
		rosterTotal: 5,
		classes:     []models.ClassGroup{{ID: "class-a", SchoolID: validSchoolID, Name: "7A"}},
	}
	engagement := &fakeEngagementRepo{
		assessments: map[string]models.AssessmentAgg{"stu-1": {StudentID: "stu-1", CompletedCount: 4}},
		activities:  map[string]models.ActivityAgg{"stu-1": {StudentID: "stu-1", CompletedCount: 2}},
		webinars:    map[string]models.WebinarAgg{"stu-1": {StudentID: "stu-1", AttendedCount: 3}},
		streaks:     map[string]models.StreakAgg{"stu-1": {StudentID: "stu-1", CurrentStreak: 6, LastActiveDate: timePtr(lastActive)}},
	}
	svc := newInsightsService(cohorts, engagement, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	resp, err := svc.ListStudents(context.Background(), StudentListParams{SchoolID: validSchoolID})
	require.NoError(t, err)
	require.Len(t, resp.Students, 2)

	first := resp.Students[0]
	assert.Equal(t, "stu-1", first.StudentID)
	require.NotNil(t, first.ClassName)
	assert.Equal(t, "7A", *first.ClassName)
	assert.Equal(t, riskLabelHigh, first.RiskLevel)
	assert.Equal(t, 4, first.CompletedAssessments)
	assert.Equal(t, 2, first.CompletedActivities)
	assert.Equal(t, 3, first.AttendedWebinars)
	assert.Equal(t, 6, first.CurrentStreak)
	require.NotNil(t, first.LastActive)
	assert.Equal(t, lastActive, *first.LastActive)

	second := resp.Students[1]
	assert.Nil(t, second.ClassName)
	assert.Equal(t, riskLabelLow, second.RiskLevel)
	assert.Zero(t, second.CompletedAssessments)
	assert.Nil(t, second.LastActive)

	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PageSize)
	assert.Equal(t, 5, resp.Pagination.TotalCount)
	assert.Equal(t, []string{"stu-1", "stu-2"}, engagement.lastIDs)
}

func TestStudentListRejectsMalformedSchoolID(t *testing.T) {
	svc := newInsightsService(&fakeCohortRepo{exists: true}, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	_, err := svc.ListStudents(context.Background(), StudentListParams{SchoolID: "not-a-uuid"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ListStudents(context.Background(), StudentListParams{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentListAcceptsAnyUUIDVersion(t *testing.T) {
	// The handler layer parses ids with uuid.Parse, which takes any version;
	// the filter validation must not be stricter than that.
	cohorts := &fakeCohortRepo{exists: true}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	v1SchoolID := "f47ac10b-58cc-11e4-8ed6-0800200c9a66"
	v7ClassID := "0189d6f2-7c3e-7b1a-9c4d-2e5f6a7b8c9d"
	_, err := svc.ListStudents(context.Background(), StudentListParams{SchoolID: v1SchoolID, ClassID: v7ClassID})
	require.NoError(t, err)
}

func TestStudentListUnknownRiskLevel(t *testing.T) {
	svc := newInsightsService(&fakeCohortRepo{exists: true}, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	_, err := svc.ListStudents(context.Background(), StudentListParams{SchoolID: validSchoolID, RiskLevel: "elevated"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFilter.Code, appErrors.FromError(err).Code)
}

func TestStudentListRiskFilterAndPageClamps(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	resp, err := svc.ListStudents(context.Background(), StudentListParams{SchoolID: validSchoolID, RiskLevel: "high", Page: -2, Limit: 500})
	require.NoError(t, err)
	require.NotNil(t, cohorts.lastRoster.RiskLevel)
	assert.Equal(t, models.RiskHigh, *cohorts.lastRoster.RiskLevel)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 100, resp.Pagination.PageSize)

	resp, err = svc.ListStudents(context.Background(), StudentListParams{SchoolID: validSchoolID, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PageSize)
}

func TestStudentAssessmentHistory(t *testing.T) {
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", FullName: "Asha Rao"},
	}
	assessments := &fakeAssessmentReportRepo{
		studentRows: []models.StudentAssessmentRow{
			{AssessmentID: "assess-2", Title: "Check-in 2", Questions: []byte(`[{"text":"Q1","points":10},{"text":"Q2","points":10}]`), TotalScore: 15, ResponseCount: 2, CompletedAt: time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)},
			// Unreadable payload: the maximum falls back to responses times the
			// default points.
			{AssessmentID: "assess-1", Title: "Check-in 1", Questions: nil, TotalScore: 8, ResponseCount: 2, CompletedAt: time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)},
		},
	}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, assessments, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	resp, err := svc.Assessments(context.Background(), "school-1", "stu-1")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalCompleted)
	require.NotNil(t, resp.AverageScore)
	assert.Equal(t, 11.5, *resp.AverageScore)
	require.Len(t, resp.Assessments, 2)
	assert.Equal(t, 20.0, resp.Assessments[0].MaxScore)
	assert.Equal(t, riskLabelHigh, resp.Assessments[0].RiskLevel)
	assert.Equal(t, 20.0, resp.Assessments[1].MaxScore)
	assert.Equal(t, riskLabelMedium, resp.Assessments[1].RiskLevel)
}

func TestStudentAssessmentHistoryNotFound(t *testing.T) {
	cohorts := &fakeCohortRepo{studentErr: sql.ErrNoRows}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	_, err := svc.Assessments(context.Background(), "school-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentActivitiesStatusFilter(t *testing.T) {
	due := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Asha Rao"},
	}
	activities := &fakeActivityReportRepo{
		studentRows: []models.StudentActivityRow{
			{SubmissionID: "sub-1", AssignmentID: "asg-1", Title: "Journal", Status: models.SubmissionVerified, DueDate: &due},
		},
		breakdown: []models.GroupCount{
			{Key: "SUBMITTED", Count: 1},
			{Key: "VERIFIED", Count: 2},
			{Key: "PENDING", Count: 1},
		},
		classTotal: 4,
	}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, activities, &fakeWebinarRepo{})

	resp, err := svc.Activities(context.Background(), "school-1", "stu-1", "verified")
	require.NoError(t, err)

	require.NotNil(t, activities.lastStatus)
	assert.Equal(t, models.SubmissionVerified, *activities.lastStatus)
	assert.Equal(t, 1, resp.StatusBreakdown.Submitted)
	assert.Equal(t, 2, resp.StatusBreakdown.Verified)
	assert.Equal(t, 1, resp.StatusBreakdown.Pending)
	assert.Equal(t, 0, resp.StatusBreakdown.Rejected)
	assert.Equal(t, 75.0, resp.CompletionRate)
	require.Len(t, resp.Activities, 1)
	assert.Equal(t, "sub-1", resp.Activities[0].SubmissionID)
	assert.Equal(t, "VERIFIED", resp.Activities[0].Status)
	assert.Equal(t, &due, resp.Activities[0].DueDate)
}

func TestStudentActivitiesUnknownStatus(t *testing.T) {
	svc := newInsightsService(&fakeCohortRepo{}, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})

	_, err := svc.Activities(context.Background(), "school-1", "stu-1", "done")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFilter.Code, appErrors.FromError(err).Code)
}

func TestStudentActivitiesWithoutClass(t *testing.T) {
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", FullName: "Asha Rao"},
	}
	activities := &fakeActivityReportRepo{
		breakdown: []models.GroupCount{
			{Key: "SUBMITTED", Count: 2},
			{Key: "VERIFIED", Count: 1},
		},
		// Would skew the rate if the class lookup ran for an unassigned student.
		classTotal: 9,
	}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, activities, &fakeWebinarRepo{})

	resp, err := svc.Activities(context.Background(), "school-1", "stu-1", "")
	require.NoError(t, err)
	assert.Nil(t, activities.lastStatus)
	assert.Equal(t, 100.0, resp.CompletionRate)
}

func TestStudentWebinarHistory(t *testing.T) {
	scheduled := time.Date(2026, 5, 2, 17, 0, 0, 0, time.UTC)
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Asha Rao"},
	}
	webinars := &fakeWebinarRepo{
		regs: []models.RegistrationRow{
			{RegistrationID: "reg-1", WebinarID: "web-5", Title: "Focus", ScheduledAt: scheduled},
			{RegistrationID: "reg-2", WebinarID: "web-6", Title: "Sleep", ScheduledAt: scheduled, ClassIDs: []byte(`["class-b"]`)},
			{RegistrationID: "reg-3", WebinarID: "web-2", Title: "Mindset", ScheduledAt: scheduled, ClassIDs: []byte(`["class-a"]`)},
		},
		studentRows: []models.StudentWebinarRow{
			// web-1 was never registered for this school; attendance still counts.
			{WebinarID: "web-1", Title: "Guest talk", ScheduledAt: scheduled, Attended: true, WatchDurationMinutes: intPtr(30)},
			{WebinarID: "web-2", Title: "Mindset", ScheduledAt: scheduled, Attended: false},
		},
	}
	svc := newInsightsService(cohorts, &fakeEngagementRepo{}, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, webinars)

	resp, err := svc.Webinars(context.Background(), "school-1", "stu-1")
	require.NoError(t, err)

	assert.Equal(t, 3, resp.InvitedCount)
	assert.Equal(t, 1, resp.AttendedCount)
	assert.Equal(t, 33.3, resp.AttendanceRate)
	require.Len(t, resp.Webinars, 2)
	assert.True(t, resp.Webinars[0].Attended)
	require.NotNil(t, resp.Webinars[0].WatchMinutes)
	assert.Equal(t, 30, *resp.Webinars[0].WatchMinutes)
	assert.False(t, resp.Webinars[1].Attended)
}

func TestStudentStreakWeeklyRollup(t *testing.T) {
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", FullName: "Asha Rao"},
	}
	engagement := &fakeEngagementRepo{
		streaks: map[string]models.StreakAgg{
			"stu-1": {StudentID: "stu-1", CurrentStreak: 4, LongestStreak: 9},
		},
		streakHistory: []models.DailyStreak{
			{StudentID: "stu-1", ActivityDate: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), AppOpened: true},
			{StudentID: "stu-1", ActivityDate: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), ActivityCompleted: true},
			{StudentID: "stu-1", ActivityDate: time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)},
			{StudentID: "stu-1", ActivityDate: time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), AppOpened: true, ActivityCompleted: true},
		},
	}
	svc := newInsightsService(cohorts, engagement, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 18, 45, 0, 0, time.UTC) }

	resp, err := svc.Streak(context.Background(), "school-1", "stu-1", 7)
	require.NoError(t, err)

	assert.Equal(t, 4, resp.CurrentStreak)
	assert.Equal(t, 9, resp.LongestStreak)
	assert.Equal(t, time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), engagement.lastFrom)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), engagement.lastTo)

	require.Len(t, resp.Days, 4)
	assert.Equal(t, "2026-05-03", resp.Days[0].Date)
	assert.True(t, resp.Days[0].AppOpened)
	assert.False(t, resp.Days[0].ActivityCompleted)

	// May 3rd 2026 falls on a Sunday, so it rolls into the prior week.
	require.Len(t, resp.Weekly, 2)
	assert.Equal(t, "2026-04-27", resp.Weekly[0].WeekStart)
	assert.Equal(t, 1, resp.Weekly[0].ActiveDays)
	assert.Equal(t, "2026-05-04", resp.Weekly[1].WeekStart)
	assert.Equal(t, 2, resp.Weekly[1].ActiveDays)
}

func TestStudentStreakCapsWindow(t *testing.T) {
	cohorts := &fakeCohortRepo{
		student: &models.Student{ID: "stu-1", SchoolID: "school-1", FullName: "Asha Rao"},
	}
	engagement := &fakeEngagementRepo{}
	svc := newInsightsService(cohorts, engagement, &fakeAssessmentReportRepo{}, &fakeActivityReportRepo{}, &fakeWebinarRepo{})
	svc.now = func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }

	resp, err := svc.Streak(context.Background(), "school-1", "stu-1", 400)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), engagement.lastFrom)
	assert.Empty(t, resp.Days)
	assert.Empty(t, resp.Weekly)
}

func TestWeekStartOf(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want string
	}{
		{"monday keys itself", time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), "2026-05-04"},
		{"midweek rolls back", time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), "2026-05-04"},
		{"sunday joins prior week", time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), "2026-04-27"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, weekStartOf(tt.day))
		})
	}
}
