package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// Ranked shortlist sizes in scope summaries.
const (
	topPerformerLimit = 5
	atRiskLimit       = 10
)

// CohortRepository resolves scope roots and the student cohorts every
// aggregate is computed over.
type CohortRepository interface {
	SchoolExists(ctx context.Context, schoolID string) (bool, error)
	GetClass(ctx context.Context, schoolID, classID string) (*models.ClassGroup, error)
	GetStudent(ctx context.Context, schoolID, studentID string) (*models.Student, error)
	ClassesBySchool(ctx context.Context, schoolID, teacherID string) ([]models.ClassGroup, error)
	Students(ctx context.Context, filter models.CohortFilter) ([]models.Student, error)
	StudentIDs(ctx context.Context, filter models.CohortFilter) ([]string, error)
	ListStudents(ctx context.Context, filter models.RosterFilter) ([]models.Student, int, error)
	StudentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	RosterPairs(ctx context.Context, schoolID string) ([]models.StudentClassPair, error)
}

// EngagementRepository issues the batched per-family aggregate queries.
type EngagementRepository interface {
	AssessmentCompletion(ctx context.Context, studentIDs []string) (map[string]models.AssessmentAgg, error)
	ActivityCompletion(ctx context.Context, studentIDs []string) (map[string]models.ActivityAgg, error)
	WebinarAttendance(ctx context.Context, studentIDs []string) (map[string]models.WebinarAgg, error)
	StreakStates(ctx context.Context, studentIDs []string) (map[string]models.StreakAgg, error)
	SessionCounts(ctx context.Context, studentIDs []string, from, to time.Time) (map[string]models.SessionAgg, error)
	AssessmentSubmissionsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	CompletedSubmissionsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	AssignmentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	AttendedByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	CountSchoolWideAssessments(ctx context.Context, schoolID string) (int, error)
	AssessmentCountsByClass(ctx context.Context, schoolID string) ([]models.GroupCount, error)
	DailyAssessmentStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error)
	DailyActivityStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error)
	DailyWebinarStudents(ctx context.Context, schoolID string, from, to time.Time) ([]models.DailyDistinct, error)
	LeaderboardRows(ctx context.Context, schoolID string, metric models.LeaderboardMetric, from time.Time) ([]models.LeaderboardRow, error)
	DailyStreakHistory(ctx context.Context, studentID string, from, to time.Time) ([]models.DailyStreak, error)
}

// OverviewConfig tunes caching and the default session lookback window.
type OverviewConfig struct {
	CacheTTL   time.Duration
	WindowDays int
}

// OverviewService produces the school-wide engagement summary.
type OverviewService struct {
	cohorts    CohortRepository
	engagement EngagementRepository
	webinars   WebinarReportRepository
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        OverviewConfig
	now        func() time.Time
}

// NewOverviewService constructs an overview service.
func NewOverviewService(cohorts CohortRepository, engagement EngagementRepository, webinars WebinarReportRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg OverviewConfig) *OverviewService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &OverviewService{
		cohorts:    cohorts,
		engagement: engagement,
		webinars:   webinars,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Overview computes the school-wide summary. The boolean reports whether the
// response came from cache. An empty school yields a zero-filled summary.
func (s *OverviewService) Overview(ctx context.Context, schoolID string, windowDays int) (*dto.OverviewResponse, bool, error) {
	windowDays = normalizeWindow(windowDays, s.cfg.WindowDays)

	cacheKey := makeInsightsCacheKey("overview", schoolID, strconv.Itoa(windowDays))
	var cached dto.OverviewResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get overview cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	exists, err := s.cohorts.SchoolExists(ctx, schoolID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}

	start := time.Now()
	students, err := s.cohorts.Students(ctx, models.CohortFilter{SchoolID: schoolID})
	if err != nil {
		return nil, false, err
	}
	observeQuery(s.metrics, "overview_cohort", start)

	var (
		classes  []models.ClassGroup
		expected expectedCounts
		invites  webinarInvites
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classes, err = s.cohorts.ClassesBySchool(gctx, schoolID, "")
		return err
	})
	g.Go(func() error {
		var err error
		expected, err = loadExpectedCounts(gctx, s.engagement, schoolID)
		return err
	})
	g.Go(func() error {
		var err error
		invites, err = loadWebinarInvites(gctx, s.webinars, s.cohorts, schoolID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("load school context: %w", err)
	}

	to := s.now().UTC()
	agg, err := fetchCohortAggregates(ctx, s.engagement, s.metrics, studentIDsOf(students), to.AddDate(0, 0, -windowDays), to, "overview")
	if err != nil {
		return nil, false, err
	}

	summary := summarizeCohort(students, classNameIndex(classes), agg, expected, invites)
	resp := &dto.OverviewResponse{
		SchoolID:         schoolID,
		WindowDays:       windowDays,
		TotalStudents:    summary.TotalStudents,
		TotalClasses:     len(classes),
		AverageWellbeing: summary.AverageWellbeing,
		AverageStreak:    summary.AverageStreak,
		TotalSessions:    summary.TotalSessions,
		RiskDistribution: summary.Risk,
		Assessments:      summary.Assessments,
		Activities:       summary.Activities,
		Webinars:         summary.Webinars,
		TopPerformers:    summary.TopPerformers,
		AtRiskStudents:   summary.AtRisk,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache overview", zap.Error(err))
		}
	}
	return resp, false, nil
}

// fetchCohortAggregates issues the five per-family aggregate queries
// concurrently. Summaries need every family, so any failure fails the whole
// request; there are no partial responses.
func fetchCohortAggregates(ctx context.Context, engagement EngagementRepository, metrics *MetricsService, ids []string, from, to time.Time, scope string) (cohortAggregates, error) {
	var agg cohortAggregates
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		m, err := engagement.AssessmentCompletion(gctx, ids)
		if err != nil {
			return err
		}
		observeQuery(metrics, scope+"_assessments", start)
		agg.assessments = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		m, err := engagement.ActivityCompletion(gctx, ids)
		if err != nil {
			return err
		}
		observeQuery(metrics, scope+"_activities", start)
		agg.activities = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		m, err := engagement.WebinarAttendance(gctx, ids)
		if err != nil {
			return err
		}
		observeQuery(metrics, scope+"_webinars", start)
		agg.webinars = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		m, err := engagement.StreakStates(gctx, ids)
		if err != nil {
			return err
		}
		observeQuery(metrics, scope+"_streaks", start)
		agg.streaks = m
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		m, err := engagement.SessionCounts(gctx, ids, from, to)
		if err != nil {
			return err
		}
		observeQuery(metrics, scope+"_sessions", start)
		agg.sessions = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return cohortAggregates{}, fmt.Errorf("fetch %s families: %w", scope, err)
	}
	return agg, nil
}

// cohortAggregates bundles the per-family maps one summary consumes. A
// missing key always means zero activity for that student.
type cohortAggregates struct {
	assessments map[string]models.AssessmentAgg
	activities  map[string]models.ActivityAgg
	webinars    map[string]models.WebinarAgg
	streaks     map[string]models.StreakAgg
	sessions    map[string]models.SessionAgg
}

// scopeSummary is the granularity-independent summary shape shared by the
// school overview and the class detail view.
type scopeSummary struct {
	TotalStudents    int
	AverageWellbeing *float64
	AverageStreak    float64
	TotalSessions    int
	Risk             dto.RiskDistribution
	Assessments      dto.FamilyCompletion
	Activities       dto.FamilyCompletion
	Webinars         dto.FamilyCompletion
	TopPerformers    []dto.TopPerformer
	AtRisk           []dto.AtRiskStudent
}

// summarizeCohort folds the fetched family maps over a resolved cohort.
// Top performers keep the cohort's stable name order as the tiebreak; the
// at-risk list preserves cohort order outright.
func summarizeCohort(students []models.Student, classNames map[string]string, agg cohortAggregates, expected expectedCounts, invites webinarInvites) scopeSummary {
	summary := scopeSummary{
		TotalStudents: len(students),
		TopPerformers: []dto.TopPerformer{},
		AtRisk:        []dto.AtRiskStudent{},
	}

	wellbeing := make([]*float64, 0, len(students))
	var streakSum int
	var assessDone, assessTotal int
	var actDone, actTotal int
	var webDone, webTotal int

	for _, st := range students {
		wellbeing = append(wellbeing, st.WellbeingScore)
		switch foldRisk(st.RiskLevel) {
		case riskLabelLow:
			summary.Risk.Low++
		case riskLabelMedium:
			summary.Risk.Medium++
		default:
			summary.Risk.High++
		}

		assessDone += agg.assessments[st.ID].CompletedCount
		assessTotal += expected.assessmentsFor(st.ClassID)
		actDone += agg.activities[st.ID].CompletedCount
		actTotal += expected.activitiesFor(st.ClassID)
		webDone += agg.webinars[st.ID].AttendedCount
		webTotal += invites.perStudent[st.ID]

		summary.TotalSessions += agg.sessions[st.ID].SessionCount
		streakSum += agg.streaks[st.ID].CurrentStreak
	}

	summary.AverageWellbeing = meanFloat(wellbeing)
	if len(students) > 0 {
		summary.AverageStreak = roundRate(float64(streakSum) / float64(len(students)))
	}
	summary.Assessments = familyCompletion(assessDone, assessTotal)
	summary.Activities = familyCompletion(actDone, actTotal)
	summary.Webinars = familyCompletion(webDone, webTotal)

	ranked := make([]models.Student, len(students))
	copy(ranked, students)
	sort.SliceStable(ranked, func(i, j int) bool {
		return agg.streaks[ranked[i].ID].CurrentStreak > agg.streaks[ranked[j].ID].CurrentStreak
	})
	for _, st := range ranked {
		if len(summary.TopPerformers) == topPerformerLimit {
			break
		}
		summary.TopPerformers = append(summary.TopPerformers, dto.TopPerformer{
			StudentID:     st.ID,
			FullName:      st.FullName,
			ClassName:     classNameFor(classNames, st.ClassID),
			CurrentStreak: agg.streaks[st.ID].CurrentStreak,
		})
	}

	for _, st := range students {
		if len(summary.AtRisk) == atRiskLimit {
			break
		}
		if st.RiskLevel == nil || (*st.RiskLevel != models.RiskHigh && *st.RiskLevel != models.RiskCritical) {
			continue
		}
		summary.AtRisk = append(summary.AtRisk, dto.AtRiskStudent{
			StudentID:      st.ID,
			FullName:       st.FullName,
			ClassName:      classNameFor(classNames, st.ClassID),
			RiskLevel:      string(*st.RiskLevel),
			WellbeingScore: st.WellbeingScore,
			LastActive:     agg.streaks[st.ID].LastActiveDate,
		})
	}

	return summary
}

// loadExpectedCounts gathers the count-based assigned totals for a school in
// three grouped queries.
func loadExpectedCounts(ctx context.Context, engagement EngagementRepository, schoolID string) (expectedCounts, error) {
	var out expectedCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.schoolWideAssessments, err = engagement.CountSchoolWideAssessments(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		rows, err := engagement.AssessmentCountsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		out.assessmentsByClass = groupCountMap(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := engagement.AssignmentCountsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		out.assignmentsByClass = groupCountMap(rows)
		return nil
	})
	if err := g.Wait(); err != nil {
		return expectedCounts{}, fmt.Errorf("load expected counts: %w", err)
	}
	return out, nil
}

// loadWebinarInvites fetches registrations, roster pairs and attendance pairs
// and reconciles them into per-webinar invite sets.
func loadWebinarInvites(ctx context.Context, webinars WebinarReportRepository, cohorts CohortRepository, schoolID string) (webinarInvites, error) {
	var (
		regs       []models.RegistrationRow
		pairs      []models.StudentClassPair
		attendance []models.AttendancePair
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regs, err = webinars.RegistrationsBySchool(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		var err error
		pairs, err = cohorts.RosterPairs(gctx, schoolID)
		return err
	})
	g.Go(func() error {
		var err error
		attendance, err = webinars.AttendancePairs(gctx, schoolID)
		return err
	})
	if err := g.Wait(); err != nil {
		return webinarInvites{}, fmt.Errorf("load webinar invites: %w", err)
	}
	return buildWebinarInvites(regs, pairs, attendance), nil
}

func studentIDsOf(students []models.Student) []string {
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

func classNameIndex(classes []models.ClassGroup) map[string]string {
	names := make(map[string]string, len(classes))
	for _, class := range classes {
		names[class.ID] = class.Name
	}
	return names
}

func classNameFor(names map[string]string, classID *string) *string {
	if classID == nil {
		return nil
	}
	if name, ok := names[*classID]; ok {
		return &name
	}
	return nil
}

// normalizeWindow applies the default lookback and keeps the window inside a
// sane chart range.
func normalizeWindow(days, fallback int) int {
	if days <= 0 {
		days = fallback
	}
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	return days
}

func observeQuery(metrics *MetricsService, label string, start time.Time) {
	if metrics != nil {
		metrics.ObserveDBQuery(label, time.Since(start))
	}
}

func makeInsightsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("insights")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
