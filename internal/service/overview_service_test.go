package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

// stubCacheRepo backs CacheService with an in-memory map so cache-aside
// behaviour can be exercised without Redis.
type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	return nil
}

type fakeCohortRepo struct {
	exists      bool
	existsErr   error
	class       *models.ClassGroup
	classErr    error
	student     *models.Student
	studentErr  error
	classes     []models.ClassGroup
	classesErr  error
	students    []models.Student
	studentsErr error
	ids         []string
	idsErr      error
	roster      []models.Student
	rosterTotal int
	rosterErr   error
	classCounts []models.GroupCount
	pairs       []models.StudentClassPair

	studentsCalls int
	idsCalls      int
	lastTeacherID string
	lastCohort    models.CohortFilter
	lastRoster    models.RosterFilter
}

func (f *fakeCohortRepo) SchoolExists(_ context.Context, _ string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists, nil
}

func (f *fakeCohortRepo) GetClass(_ context.Context, _, _ string) (*models.ClassGroup, error) {
	if f.classErr != nil {
		return nil, f.classErr
	}
	return f.class, nil
}

func (f *fakeCohortRepo) GetStudent(_ context.Context, _, _ string) (*models.Student, error) {
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	return f.student, nil
}

func (f *fakeCohortRepo) ClassesBySchool(_ context.Context, _, teacherID string) ([]models.ClassGroup, error) {
	f.lastTeacherID = teacherID
	if f.classesErr != nil {
		return nil, f.classesErr
	}
	return f.classes, nil
}

func (f *fakeCohortRepo) Students(_ context.Context, filter models.CohortFilter) ([]models.Student, error) {
	f.studentsCalls++
	f.lastCohort = filter
	if f.studentsErr != nil {
		return nil, f.studentsErr
	}
	return f.students, nil
}

func (f *fakeCohortRepo) StudentIDs(_ context.Context, filter models.CohortFilter) ([]string, error) {
	f.idsCalls++
	f.lastCohort = filter
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return f.ids, nil
}

func (f *fakeCohortRepo) ListStudents(_ context.Context, filter models.RosterFilter) ([]models.Student, int, error) {
	f.lastRoster = filter
	if f.rosterErr != nil {
		return nil, 0, f.rosterErr
	}
	return f.roster, f.rosterTotal, nil
}

func (f *fakeCohortRepo) StudentCountsByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	return f.classCounts, nil
}

func (f *fakeCohortRepo) RosterPairs(_ context.Context, _ string) ([]models.StudentClassPair, error) {
	return f.pairs, nil
}

type fakeEngagementRepo struct {
	assessments map[string]models.AssessmentAgg
	activities  map[string]models.ActivityAgg
	webinars    map[string]models.WebinarAgg
	streaks     map[string]models.StreakAgg
	sessions    map[string]models.SessionAgg

	assessSubsByClass []models.GroupCount
	completedByClass  []models.GroupCount
	assignByClass     []models.GroupCount
	attendedByClass   []models.GroupCount
	schoolWide        int
	assessByClass     []models.GroupCount

	dailyAssessments []models.DailyDistinct
	dailyActivities  []models.DailyDistinct
	dailyWebinars    []models.DailyDistinct

	leaderboard    []models.LeaderboardRow
	leaderboardErr error
	streakHistory  []models.DailyStreak

	err error

	assessmentCalls     int
	lastIDs             []string
	lastFrom, lastTo    time.Time
	lastMetric          models.LeaderboardMetric
	lastLeaderboardFrom time.Time
}

func (f *fakeEngagementRepo) AssessmentCompletion(_ context.Context, ids []string) (map[string]models.AssessmentAgg, error) {
	f.assessmentCalls++
	f.lastIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	return f.assessments, nil
}

func (f *fakeEngagementRepo) ActivityCompletion(_ context.Context, _ []string) (map[string]models.ActivityAgg, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

func (f *fakeEngagementRepo) WebinarAttendance(_ context.Context, _ []string) (map[string]models.WebinarAgg, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.webinars, nil
}

func (f *fakeEngagementRepo) StreakStates(_ context.Context, _ []string) (map[string]models.StreakAgg, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.streaks, nil
}

func (f *fakeEngagementRepo) SessionCounts(_ context.Context, _ []string, from, to time.Time) (map[string]models.SessionAgg, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions, nil
}

func (f *fakeEngagementRepo) AssessmentSubmissionsByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assessSubsByClass, nil
}

func (f *fakeEngagementRepo) CompletedSubmissionsByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.completedByClass, nil
}

func (f *fakeEngagementRepo) AssignmentCountsByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assignByClass, nil
}

func (f *fakeEngagementRepo) AttendedByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.attendedByClass, nil
}

func (f *fakeEngagementRepo) CountSchoolWideAssessments(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.schoolWide, nil
}

func (f *fakeEngagementRepo) AssessmentCountsByClass(_ context.Context, _ string) ([]models.GroupCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assessByClass, nil
}

func (f *fakeEngagementRepo) DailyAssessmentStudents(_ context.Context, _ string, from, to time.Time) ([]models.DailyDistinct, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.dailyAssessments, nil
}

func (f *fakeEngagementRepo) DailyActivityStudents(_ context.Context, _ string, _, _ time.Time) ([]models.DailyDistinct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dailyActivities, nil
}

func (f *fakeEngagementRepo) DailyWebinarStudents(_ context.Context, _ string, _, _ time.Time) ([]models.DailyDistinct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dailyWebinars, nil
}

func (f *fakeEngagementRepo) LeaderboardRows(_ context.Context, _ string, metric models.LeaderboardMetric, from time.Time) ([]models.LeaderboardRow, error) {
	f.lastMetric = metric
	f.lastLeaderboardFrom = from
	if f.leaderboardErr != nil {
		return nil, f.leaderboardErr
	}
	return f.leaderboard, nil
}

func (f *fakeEngagementRepo) DailyStreakHistory(_ context.Context, _ string, from, to time.Time) ([]models.DailyStreak, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	return f.streakHistory, nil
}

type fakeWebinarRepo struct {
	regs        []models.RegistrationRow
	regsErr     error
	attendance  []models.AttendancePair
	studentRows []models.StudentWebinarRow
	rowsErr     error

	webinar        *models.Webinar
	webinarErr     error
	registration   *models.RegistrationRow
	attendanceRows []models.WebinarAttendanceRow
}

func (f *fakeWebinarRepo) RegistrationsBySchool(_ context.Context, _ string) ([]models.RegistrationRow, error) {
	if f.regsErr != nil {
		return nil, f.regsErr
	}
	return f.regs, nil
}

func (f *fakeWebinarRepo) AttendancePairs(_ context.Context, _ string) ([]models.AttendancePair, error) {
	return f.attendance, nil
}

func (f *fakeWebinarRepo) GetWebinar(_ context.Context, _ string) (*models.Webinar, error) {
	if f.webinarErr != nil {
		return nil, f.webinarErr
	}
	return f.webinar, nil
}

func (f *fakeWebinarRepo) RegistrationForSchool(_ context.Context, _, _ string) (*models.RegistrationRow, error) {
	return f.registration, nil
}

func (f *fakeWebinarRepo) WebinarAttendanceRows(_ context.Context, _, _ string) ([]models.WebinarAttendanceRow, error) {
	return f.attendanceRows, nil
}

func (f *fakeWebinarRepo) StudentWebinarRows(_ context.Context, _ string) ([]models.StudentWebinarRow, error) {
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return f.studentRows, nil
}

func overviewCohort() *fakeCohortRepo {
	return &fakeCohortRepo{
		exists: true,
		classes: []models.ClassGroup{
			{ID: "class-a", SchoolID: "school-1", Name: "7A"},
			{ID: "class-b", SchoolID: "school-1", Name: "7B"},
		},
		students: []models.Student{
			{ID: "stu-1", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Asha Rao", WellbeingScore: floatPtr(80), RiskLevel: riskPtr(models.RiskHigh)},
			{ID: "stu-2", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Ben Okafor", WellbeingScore: floatPtr(60)},
			{ID: "stu-3", SchoolID: "school-1", ClassID: strPtr("class-b"), FullName: "Chen Wei", RiskLevel: riskPtr(models.RiskMedium)},
			{ID: "stu-4", SchoolID: "school-1", ClassID: strPtr("class-b"), FullName: "Dina Saleh", WellbeingScore: floatPtr(40), RiskLevel: riskPtr(models.RiskCritical)},
		},
		pairs: []models.StudentClassPair{
			{StudentID: "stu-1", ClassID: strPtr("class-a")},
			{StudentID: "stu-2", ClassID: strPtr("class-a")},
			{StudentID: "stu-3", ClassID: strPtr("class-b")},
			{StudentID: "stu-4", ClassID: strPtr("class-b")},
		},
	}
}

func TestOverviewServiceComputesSchoolSummary(t *testing.T) {
	lastActive := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	cohorts := overviewCohort()
	engagement := &fakeEngagementRepo{
		assessments: map[string]models.AssessmentAgg{
			"stu-1": {StudentID: "stu-1", CompletedCount: 2, AverageScore: floatPtr(12)},
			"stu-2": {StudentID: "stu-2", CompletedCount: 1},
		},
		activities: map[string]models.ActivityAgg{
			"stu-1": {StudentID: "stu-1", CompletedCount: 2},
			"stu-2": {StudentID: "stu-2", CompletedCount: 1},
		},
		webinars: map[string]models.WebinarAgg{
			"stu-1": {StudentID: "stu-1", AttendedCount: 1},
		},
		streaks: map[string]models.StreakAgg{
			"stu-1": {StudentID: "stu-1", CurrentStreak: 5, LongestStreak: 9, LastActiveDate: timePtr(lastActive)},
			"stu-2": {StudentID: "stu-2", CurrentStreak: 7, LongestStreak: 7},
		},
		sessions: map[string]models.SessionAgg{
			"stu-1": {StudentID: "stu-1", SessionCount: 4},
			"stu-3": {StudentID: "stu-3", SessionCount: 2},
		},
		schoolWide:    1,
		assessByClass: []models.GroupCount{{Key: "class-a", Count: 1}},
		assignByClass: []models.GroupCount{{Key: "class-a", Count: 2}, {Key: "class-b", Count: 1}},
	}
	webinars := &fakeWebinarRepo{
		regs: []models.RegistrationRow{
			{RegistrationID: "reg-1", WebinarID: "web-1", Title: "Coping with exams", ScheduledAt: lastActive, ClassIDs: nil},
		},
		attendance: []models.AttendancePair{
			{WebinarID: "web-1", StudentID: "stu-1", Attended: true},
		},
	}

	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewOverviewService(cohorts, engagement, webinars, cacheSvc, nil, zap.NewNop(), OverviewConfig{})

	resp, cacheHit, err := svc.Overview(context.Background(), "school-1", 0)
	require.NoError(t, err)
	assert.False(t, cacheHit)

	assert.Equal(t, "school-1", resp.SchoolID)
	assert.Equal(t, 30, resp.WindowDays)
	assert.Equal(t, 4, resp.TotalStudents)
	assert.Equal(t, 2, resp.TotalClasses)
	require.NotNil(t, resp.AverageWellbeing)
	assert.Equal(t, 60.0, *resp.AverageWellbeing)
	assert.Equal(t, 3.0, resp.AverageStreak)
	assert.Equal(t, 6, resp.TotalSessions)

	dist := resp.RiskDistribution
	assert.Equal(t, 1, dist.Low)
	assert.Equal(t, 1, dist.Medium)
	assert.Equal(t, 2, dist.High)
	assert.Equal(t, resp.TotalStudents, dist.Low+dist.Medium+dist.High)

	assert.Equal(t, 3, resp.Assessments.Done)
	assert.Equal(t, 6, resp.Assessments.Total)
	assert.Equal(t, 50.0, resp.Assessments.Rate)
	assert.Equal(t, 3, resp.Activities.Done)
	assert.Equal(t, 6, resp.Activities.Total)
	assert.Equal(t, 50.0, resp.Activities.Rate)
	assert.Equal(t, 1, resp.Webinars.Done)
	assert.Equal(t, 4, resp.Webinars.Total)
	assert.Equal(t, 25.0, resp.Webinars.Rate)

	require.Len(t, resp.TopPerformers, 4)
	assert.Equal(t, "stu-2", resp.TopPerformers[0].StudentID)
	assert.Equal(t, 7, resp.TopPerformers[0].CurrentStreak)
	assert.Equal(t, "stu-1", resp.TopPerformers[1].StudentID)
	require.NotNil(t, resp.TopPerformers[0].ClassName)
	assert.Equal(t, "7A", *resp.TopPerformers[0].ClassName)

	require.Len(t, resp.AtRiskStudents, 2)
	assert.Equal(t, "stu-1", resp.AtRiskStudents[0].StudentID)
	assert.Equal(t, "HIGH", resp.AtRiskStudents[0].RiskLevel)
	assert.Equal(t, timePtr(lastActive), resp.AtRiskStudents[0].LastActive)
	assert.Equal(t, "stu-4", resp.AtRiskStudents[1].StudentID)
	assert.Equal(t, "CRITICAL", resp.AtRiskStudents[1].RiskLevel)
}

func TestOverviewServiceActivityRateAcrossCohort(t *testing.T) {
	// Three students with two assigned activities each, completing two, one and
	// none: cohort-level completion is 3 of 6.
	cohorts := &fakeCohortRepo{
		exists:  true,
		classes: []models.ClassGroup{{ID: "class-a", SchoolID: "school-1", Name: "7A"}},
		students: []models.Student{
			{ID: "stu-1", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Asha Rao"},
			{ID: "stu-2", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Ben Okafor"},
			{ID: "stu-3", SchoolID: "school-1", ClassID: strPtr("class-a"), FullName: "Chen Wei"},
		},
	}
	engagement := &fakeEngagementRepo{
		activities: map[string]models.ActivityAgg{
			"stu-1": {StudentID: "stu-1", CompletedCount: 2},
			"stu-2": {StudentID: "stu-2", CompletedCount: 1},
		},
		assignByClass: []models.GroupCount{{Key: "class-a", Count: 2}},
	}

	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewOverviewService(cohorts, engagement, &fakeWebinarRepo{}, cacheSvc, nil, zap.NewNop(), OverviewConfig{})

	resp, _, err := svc.Overview(context.Background(), "school-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Activities.Done)
	assert.Equal(t, 6, resp.Activities.Total)
	assert.Equal(t, 50.0, resp.Activities.Rate)
}

func TestOverviewServiceEmptySchool(t *testing.T) {
	cohorts := &fakeCohortRepo{exists: true}
	engagement := &fakeEngagementRepo{}

	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewOverviewService(cohorts, engagement, &fakeWebinarRepo{}, cacheSvc, nil, zap.NewNop(), OverviewConfig{})

	resp, _, err := svc.Overview(context.Background(), "school-1", 7)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.TotalStudents)
	assert.Equal(t, 0, resp.TotalClasses)
	assert.Nil(t, resp.AverageWellbeing)
	assert.Equal(t, 0.0, resp.AverageStreak)
	assert.Equal(t, 0.0, resp.Assessments.Rate)
	assert.Equal(t, 0.0, resp.Activities.Rate)
	assert.Equal(t, 0.0, resp.Webinars.Rate)
	assert.NotNil(t, resp.TopPerformers)
	assert.Empty(t, resp.TopPerformers)
	assert.NotNil(t, resp.AtRiskStudents)
	assert.Empty(t, resp.AtRiskStudents)
}

func TestOverviewServiceSchoolNotFound(t *testing.T) {
	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewOverviewService(&fakeCohortRepo{exists: false}, &fakeEngagementRepo{}, &fakeWebinarRepo{}, cacheSvc, nil, zap.NewNop(), OverviewConfig{})

	_, _, err := svc.Overview(context.Background(), "missing", 30)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOverviewServiceCachesResponse(t *testing.T) {
	cohorts := overviewCohort()
	engagement := &fakeEngagementRepo{}
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewOverviewService(cohorts, engagement, &fakeWebinarRepo{}, cacheSvc, nil, zap.NewNop(), OverviewConfig{WindowDays: 14})

	ctx := context.Background()
	first, cacheHit, err := svc.Overview(ctx, "school-1", 0)
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, cohorts.studentsCalls)

	second, cacheHit2, err := svc.Overview(ctx, "school-1", 0)
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, 1, cohorts.studentsCalls)
	assert.Equal(t, first, second)
}

func TestOverviewServiceErrorPassthrough(t *testing.T) {
	cohorts := overviewCohort()
	cohorts.studentsErr = assert.AnError

	cacheSvc := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	svc := NewOverviewService(cohorts, &fakeEngagementRepo{}, &fakeWebinarRepo{}, cacheSvc, nil, zap.NewNop(), OverviewConfig{})

	_, _, err := svc.Overview(context.Background(), "school-1", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNormalizeWindow(t *testing.T) {
	assert.Equal(t, 30, normalizeWindow(0, 30))
	assert.Equal(t, 30, normalizeWindow(-5, 0))
	assert.Equal(t, 14, normalizeWindow(14, 30))
	assert.Equal(t, 365, normalizeWindow(1000, 30))
}

func TestMakeInsightsCacheKey(t *testing.T) {
	assert.Equal(t, "insights:overview:school-1:30", makeInsightsCacheKey("overview", "school-1", "30"))
	assert.Equal(t, "insights:trends:sch|01", makeInsightsCacheKey("trends", "sch:01"))
	assert.Equal(t, "insights:classes:school-1", makeInsightsCacheKey("classes", "school-1", ""))
}
