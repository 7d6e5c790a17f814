package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// StudentListParams carries the roster filters as received from the API
// layer. RiskLevel stays raw here so validation lives with the rest of the
// filter handling.
type StudentListParams struct {
	SchoolID  string `validate:"required,uuid"`
	ClassID   string `validate:"omitempty,uuid"`
	TeacherID string `validate:"omitempty,uuid"`
	Search    string `validate:"omitempty,max=120"`
	Grade     string `validate:"omitempty,max=20"`
	RiskLevel string
	Page      int
	Limit     int
}

// StudentInsightsConfig tunes the per-student lookback window.
type StudentInsightsConfig struct {
	WindowDays int
}

// StudentInsightsService serves the roster list and the per-student history
// views. Histories are read fresh on every request; only the heavier scope
// summaries go through the cache.
type StudentInsightsService struct {
	cohorts     CohortRepository
	engagement  EngagementRepository
	assessments AssessmentReportRepository
	activities  ActivityReportRepository
	webinars    WebinarReportRepository
	validate    *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         StudentInsightsConfig
	now         func() time.Time
}

// NewStudentInsightsService constructs a student insights service.
func NewStudentInsightsService(cohorts CohortRepository, engagement EngagementRepository, assessments AssessmentReportRepository, activities ActivityReportRepository, webinars WebinarReportRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg StudentInsightsConfig) *StudentInsightsService {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &StudentInsightsService{
		cohorts:     cohorts,
		engagement:  engagement,
		assessments: assessments,
		activities:  activities,
		webinars:    webinars,
		validate:    validate,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ListStudents returns one roster page with per-student engagement columns
// attached via the batched family queries.
func (s *StudentInsightsService) ListStudents(ctx context.Context, params StudentListParams) (*dto.StudentListResponse, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster filter")
	}
	filter := models.RosterFilter{
		CohortFilter: models.CohortFilter{
			SchoolID:  params.SchoolID,
			ClassID:   params.ClassID,
			TeacherID: params.TeacherID,
			Search:    params.Search,
			Grade:     params.Grade,
		},
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if params.RiskLevel != "" {
		level, ok := models.ParseRiskLevel(params.RiskLevel)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidFilter, fmt.Sprintf("unknown risk level %q", params.RiskLevel))
		}
		filter.RiskLevel = &level
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	exists, err := s.cohorts.SchoolExists(ctx, params.SchoolID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	start := time.Now()
	students, total, err := s.cohorts.ListStudents(ctx, filter)
	if err != nil {
		return nil, err
	}
	observeQuery(s.metrics, "student_list", start)

	ids := studentIDsOf(students)
	var (
		assessments map[string]models.AssessmentAgg
		activities  map[string]models.ActivityAgg
		webinars    map[string]models.WebinarAgg
		streaks     map[string]models.StreakAgg
		classes     []models.ClassGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assessments, err = s.engagement.AssessmentCompletion(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		classes, err = s.cohorts.ClassesBySchool(gctx, params.SchoolID, "")
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.engagement.ActivityCompletion(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		webinars, err = s.engagement.WebinarAttendance(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		streaks, err = s.engagement.StreakStates(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch roster families: %w", err)
	}

	names := classNameIndex(classes)
	rows := make([]dto.StudentEngagementRow, 0, len(students))
	for _, st := range students {
		streak := streaks[st.ID]
		rows = append(rows, dto.StudentEngagementRow{
			StudentID:            st.ID,
			FullName:             st.FullName,
			Email:                st.Email,
			ClassID:              st.ClassID,
			ClassName:            classNameFor(names, st.ClassID),
			RollNumber:           st.RollNumber,
			Grade:                st.Grade,
			RiskLevel:            foldRisk(st.RiskLevel),
			WellbeingScore:       st.WellbeingScore,
			CompletedAssessments: assessments[st.ID].CompletedCount,
			CompletedActivities:  activities[st.ID].CompletedCount,
			AttendedWebinars:     webinars[st.ID].AttendedCount,
			CurrentStreak:        streak.CurrentStreak,
			LastActive:           streak.LastActiveDate,
		})
	}

	return &dto.StudentListResponse{
		Students: rows,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}, nil
}

// Assessments returns one student's completed-assessment history with scores
// risk-bucketed against the normalized template maximum.
func (s *StudentInsightsService) Assessments(ctx context.Context, schoolID, studentID string) (*dto.StudentAssessmentsResponse, error) {
	if _, err := resolveStudent(ctx, s.cohorts, schoolID, studentID); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.assessments.StudentAssessmentRows(ctx, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	observeQuery(s.metrics, "student_assessments", start)

	items := make([]dto.StudentAssessmentItem, 0, len(rows))
	var scoreSum float64
	for _, row := range rows {
		maxScore := templateMaxScore(s.logger, row.Questions, row.ResponseCount)
		items = append(items, dto.StudentAssessmentItem{
			AssessmentID: row.AssessmentID,
			Title:        row.Title,
			Score:        row.TotalScore,
			MaxScore:     maxScore,
			RiskLevel:    scoreRiskLabel(row.TotalScore, maxScore),
			CompletedAt:  row.CompletedAt,
		})
		scoreSum += row.TotalScore
	}

	resp := &dto.StudentAssessmentsResponse{
		StudentID:      studentID,
		TotalCompleted: len(items),
		Assessments:    items,
	}
	if len(items) > 0 {
		avg := roundRate(scoreSum / float64(len(items)))
		resp.AverageScore = &avg
	}
	return resp, nil
}

// Activities returns one student's submission history, optionally filtered by
// status, with the completion rate computed against their class's assignment
// count.
func (s *StudentInsightsService) Activities(ctx context.Context, schoolID, studentID, rawStatus string) (*dto.StudentActivitiesResponse, error) {
	var status *models.SubmissionStatus
	if rawStatus != "" {
		parsed, ok := models.ParseSubmissionStatus(rawStatus)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidFilter, fmt.Sprintf("unknown submission status %q", rawStatus))
		}
		status = &parsed
	}

	student, err := resolveStudent(ctx, s.cohorts, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	var (
		rows       []models.StudentActivityRow
		breakdown  []models.GroupCount
		classTotal int
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.activities.StudentActivityRows(gctx, schoolID, studentID, status)
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = s.activities.StatusBreakdown(gctx, schoolID, studentID)
		return err
	})
	g.Go(func() error {
		if student.ClassID == nil {
			return nil
		}
		var err error
		classTotal, err = s.activities.CountAssignmentsForClass(gctx, *student.ClassID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch student activities: %w", err)
	}
	observeQuery(s.metrics, "student_activities", start)

	counts := groupCountMap(breakdown)
	statusCounts := dto.StatusBreakdown{
		Pending:   counts[string(models.SubmissionPending)],
		Submitted: counts[string(models.SubmissionSubmitted)],
		Verified:  counts[string(models.SubmissionVerified)],
		Rejected:  counts[string(models.SubmissionRejected)],
	}
	completed := statusCounts.Submitted + statusCounts.Verified

	items := make([]dto.StudentActivityItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.StudentActivityItem{
			SubmissionID: row.SubmissionID,
			AssignmentID: row.AssignmentID,
			Title:        row.Title,
			Status:       string(row.Status),
			DueDate:      row.DueDate,
			SubmittedAt:  row.SubmittedAt,
		})
	}

	return &dto.StudentActivitiesResponse{
		StudentID:       studentID,
		StatusBreakdown: statusCounts,
		CompletionRate:  zeroGuardRate(completed, classTotal),
		Activities:      items,
	}, nil
}

// Webinars returns one student's attendance history with the invited count
// reconciled against registrations and their own attendance.
func (s *StudentInsightsService) Webinars(ctx context.Context, schoolID, studentID string) (*dto.StudentWebinarsResponse, error) {
	student, err := resolveStudent(ctx, s.cohorts, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	var (
		rows []models.StudentWebinarRow
		regs []models.RegistrationRow
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.webinars.StudentWebinarRows(gctx, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		regs, err = s.webinars.RegistrationsBySchool(gctx, schoolID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch student webinars: %w", err)
	}
	observeQuery(s.metrics, "student_webinars", start)

	attendedSet := make(map[string]struct{})
	items := make([]dto.StudentWebinarItem, 0, len(rows))
	for _, row := range rows {
		if row.Attended {
			attendedSet[row.WebinarID] = struct{}{}
		}
		items = append(items, dto.StudentWebinarItem{
			WebinarID:    row.WebinarID,
			Title:        row.Title,
			ScheduledAt:  row.ScheduledAt,
			Attended:     row.Attended,
			WatchMinutes: row.WatchDurationMinutes,
		})
	}

	invited := studentInvitedWebinars(regs, student.ClassID, attendedSet)
	attended := len(attendedSet)

	return &dto.StudentWebinarsResponse{
		StudentID:      studentID,
		InvitedCount:   invited,
		AttendedCount:  attended,
		AttendanceRate: completionRate(attended, invited),
		Webinars:       items,
	}, nil
}

// Streak returns one student's streak state plus their daily history and a
// per-week active-day rollup over the lookback window.
func (s *StudentInsightsService) Streak(ctx context.Context, schoolID, studentID string, days int) (*dto.StudentStreakResponse, error) {
	if _, err := resolveStudent(ctx, s.cohorts, schoolID, studentID); err != nil {
		return nil, err
	}
	days = normalizeWindow(days, s.cfg.WindowDays)
	if days > maxTrendDays {
		days = maxTrendDays
	}

	nowUTC := s.now().UTC()
	endDate := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	from := endDate.AddDate(0, 0, -days)
	to := endDate.AddDate(0, 0, 1)

	var (
		states  map[string]models.StreakAgg
		history []models.DailyStreak
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		states, err = s.engagement.StreakStates(gctx, []string{studentID})
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.engagement.DailyStreakHistory(gctx, studentID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch student streak: %w", err)
	}
	observeQuery(s.metrics, "student_streak", start)

	state := states[studentID]
	resp := &dto.StudentStreakResponse{
		StudentID:     studentID,
		CurrentStreak: state.CurrentStreak,
		LongestStreak: state.LongestStreak,
		LastActive:    state.LastActiveDate,
		Days:          make([]dto.StreakDay, 0, len(history)),
		Weekly:        []dto.WeeklyStreak{},
	}

	activePerWeek := make(map[string]int)
	for _, day := range history {
		resp.Days = append(resp.Days, dto.StreakDay{
			Date:              day.ActivityDate.Format(trendDateLayout),
			AppOpened:         day.AppOpened,
			ActivityCompleted: day.ActivityCompleted,
		})
		if day.AppOpened || day.ActivityCompleted {
			activePerWeek[weekStartOf(day.ActivityDate)]++
		}
	}

	weeks := make([]string, 0, len(activePerWeek))
	for week := range activePerWeek {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)
	for _, week := range weeks {
		resp.Weekly = append(resp.Weekly, dto.WeeklyStreak{WeekStart: week, ActiveDays: activePerWeek[week]})
	}
	return resp, nil
}

// weekStartOf keys a date by the Monday of its week.
func weekStartOf(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(trendDateLayout)
}

// resolveStudent fetches a school-scoped student, mapping the missing row to
// the client-facing NotFound.
func resolveStudent(ctx context.Context, cohorts CohortRepository, schoolID, studentID string) (*models.Student, error) {
	student, err := cohorts.GetStudent(ctx, schoolID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return student, nil
}
