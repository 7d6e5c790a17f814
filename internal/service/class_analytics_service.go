package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

// ClassAnalyticsConfig tunes caching and the default session lookback window.
type ClassAnalyticsConfig struct {
	CacheTTL   time.Duration
	WindowDays int
}

// ClassAnalyticsService produces per-class engagement views. The class list
// runs entirely on grouped rollup queries; the detail view resolves the class
// cohort and reuses the per-family fetch path.
type ClassAnalyticsService struct {
	cohorts    CohortRepository
	engagement EngagementRepository
	webinars   WebinarReportRepository
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ClassAnalyticsConfig
	now        func() time.Time
}

// NewClassAnalyticsService constructs a class analytics service.
func NewClassAnalyticsService(cohorts CohortRepository, engagement EngagementRepository, webinars WebinarReportRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ClassAnalyticsConfig) *ClassAnalyticsService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &ClassAnalyticsService{
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

// ClassList returns every class of a school with its completion triples,
// optionally narrowed to one teacher's classes. The whole view is computed
// from grouped queries; no per-class statements are issued.
func (s *ClassAnalyticsService) ClassList(ctx context.Context, schoolID, teacherID string) (*dto.ClassListResponse, bool, error) {
	cacheKey := makeInsightsCacheKey("classes", schoolID, teacherID)
	var cached dto.ClassListResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get class list cache: %w", err)
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

	var (
		classes      []models.ClassGroup
		sizes        map[string]int
		assessDone   map[string]int
		activityDone map[string]int
		attendedDone map[string]int
		expected     expectedCounts
		invites      webinarInvites
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		classes, err = s.cohorts.ClassesBySchool(gctx, schoolID, teacherID)
		return err
	})
	g.Go(func() error {
		rows, err := s.cohorts.StudentCountsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		sizes = groupCountMap(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.engagement.AssessmentSubmissionsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		assessDone = groupCountMap(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.engagement.CompletedSubmissionsByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		activityDone = groupCountMap(rows)
		return nil
	})
	g.Go(func() error {
		rows, err := s.engagement.AttendedByClass(gctx, schoolID)
		if err != nil {
			return err
		}
		attendedDone = groupCountMap(rows)
		return nil
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
		return nil, false, fmt.Errorf("load class rollups: %w", err)
	}
	observeQuery(s.metrics, "class_list", start)

	resp := &dto.ClassListResponse{SchoolID: schoolID, Classes: make([]dto.ClassSummary, 0, len(classes))}
	for _, class := range classes {
		size := sizes[class.ID]
		classID := class.ID
		resp.Classes = append(resp.Classes, dto.ClassSummary{
			ClassID:      class.ID,
			Name:         class.Name,
			Grade:        class.Grade,
			TeacherID:    class.TeacherID,
			StudentCount: size,
			Assessments:  familyCompletion(assessDone[classID], expected.assessmentsFor(&classID)*size),
			Activities:   familyCompletion(activityDone[classID], expected.activitiesFor(&classID)*size),
			Webinars:     familyCompletion(attendedDone[classID], invites.perClass[classID]),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache class list", zap.Error(err))
		}
	}
	return resp, false, nil
}

// ClassDetail returns the full scope summary for one class cohort.
func (s *ClassAnalyticsService) ClassDetail(ctx context.Context, schoolID, classID string, windowDays int) (*dto.ClassDetailResponse, bool, error) {
	windowDays = normalizeWindow(windowDays, s.cfg.WindowDays)

	cacheKey := makeInsightsCacheKey("class", schoolID, classID, strconv.Itoa(windowDays))
	var cached dto.ClassDetailResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get class detail cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	class, err := s.cohorts.GetClass(ctx, schoolID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, fmt.Errorf("get class: %w", err)
	}

	start := time.Now()
	students, err := s.cohorts.Students(ctx, models.CohortFilter{SchoolID: schoolID, ClassID: classID})
	if err != nil {
		return nil, false, err
	}
	observeQuery(s.metrics, "class_cohort", start)

	var (
		expected expectedCounts
		invites  webinarInvites
	)
	g, gctx := errgroup.WithContext(ctx)
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
		return nil, false, fmt.Errorf("load class context: %w", err)
	}

	to := s.now().UTC()
	agg, err := fetchCohortAggregates(ctx, s.engagement, s.metrics, studentIDsOf(students), to.AddDate(0, 0, -windowDays), to, "class")
	if err != nil {
		return nil, false, err
	}

	summary := summarizeCohort(students, map[string]string{class.ID: class.Name}, agg, expected, invites)
	resp := &dto.ClassDetailResponse{
		ClassSummary: dto.ClassSummary{
			ClassID:      class.ID,
			Name:         class.Name,
			Grade:        class.Grade,
			TeacherID:    class.TeacherID,
			StudentCount: summary.TotalStudents,
			Assessments:  summary.Assessments,
			Activities:   summary.Activities,
			Webinars:     summary.Webinars,
		},
		AverageWellbeing: summary.AverageWellbeing,
		AverageStreak:    summary.AverageStreak,
		TotalSessions:    summary.TotalSessions,
		RiskDistribution: summary.Risk,
		TopPerformers:    summary.TopPerformers,
		AtRiskStudents:   summary.AtRisk,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache class detail", zap.Error(err))
		}
	}
	return resp, false, nil
}
