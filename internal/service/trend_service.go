package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

const trendDateLayout = "2006-01-02"

// maxTrendDays caps the chartable lookback.
const maxTrendDays = 90

// TrendConfig tunes caching and the default lookback window.
type TrendConfig struct {
	CacheTTL   time.Duration
	WindowDays int
}

// TrendService builds the gap-free daily engagement series.
type TrendService struct {
	cohorts    CohortRepository
	engagement EngagementRepository
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        TrendConfig
	now        func() time.Time
}

// NewTrendService constructs a trend service.
func NewTrendService(cohorts CohortRepository, engagement EngagementRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg TrendConfig) *TrendService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &TrendService{
		cohorts:    cohorts,
		engagement: engagement,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Trends returns one point per calendar day over the lookback window,
// inclusive of both endpoints, so a request spanning N days always yields
// N+1 entries. Days with no events stay at zero rather than being skipped.
func (s *TrendService) Trends(ctx context.Context, schoolID string, days int) (*dto.TrendResponse, bool, error) {
	days = normalizeWindow(days, s.cfg.WindowDays)
	if days > maxTrendDays {
		days = maxTrendDays
	}

	cacheKey := makeInsightsCacheKey("trends", schoolID, strconv.Itoa(days))
	var cached dto.TrendResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get trend cache: %w", err)
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
	ids, err := s.cohorts.StudentIDs(ctx, models.CohortFilter{SchoolID: schoolID})
	if err != nil {
		return nil, false, err
	}
	observeQuery(s.metrics, "trend_cohort", start)
	cohortSize := len(ids)

	nowUTC := s.now().UTC()
	endDate := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	startDate := endDate.AddDate(0, 0, -days)
	upperBound := endDate.AddDate(0, 0, 1)

	var assessDays, activityDays, webinarDays []models.DailyDistinct
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		begin := time.Now()
		rows, err := s.engagement.DailyAssessmentStudents(gctx, schoolID, startDate, upperBound)
		if err != nil {
			return err
		}
		observeQuery(s.metrics, "trend_assessments", begin)
		assessDays = rows
		return nil
	})
	g.Go(func() error {
		begin := time.Now()
		rows, err := s.engagement.DailyActivityStudents(gctx, schoolID, startDate, upperBound)
		if err != nil {
			return err
		}
		observeQuery(s.metrics, "trend_activities", begin)
		activityDays = rows
		return nil
	})
	g.Go(func() error {
		begin := time.Now()
		rows, err := s.engagement.DailyWebinarStudents(gctx, schoolID, startDate, upperBound)
		if err != nil {
			return err
		}
		observeQuery(s.metrics, "trend_webinars", begin)
		webinarDays = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("fetch trend families: %w", err)
	}

	points := make([]dto.TrendPoint, 0, days+1)
	index := make(map[string]int, days+1)
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		key := day.Format(trendDateLayout)
		index[key] = len(points)
		points = append(points, dto.TrendPoint{Date: key})
	}

	// Rows outside the initialized window are dropped rather than grown into
	// extra points; the series length is part of the contract.
	for _, row := range assessDays {
		if i, ok := index[row.Day.Format(trendDateLayout)]; ok {
			points[i].AssessmentsPct = completionRate(row.Count, cohortSize)
		}
	}
	for _, row := range activityDays {
		if i, ok := index[row.Day.Format(trendDateLayout)]; ok {
			points[i].ActivitiesPct = completionRate(row.Count, cohortSize)
		}
	}
	for _, row := range webinarDays {
		if i, ok := index[row.Day.Format(trendDateLayout)]; ok {
			points[i].WebinarsPct = completionRate(row.Count, cohortSize)
		}
	}

	resp := &dto.TrendResponse{
		SchoolID:  schoolID,
		Days:      days,
		StartDate: startDate.Format(trendDateLayout),
		EndDate:   endDate.Format(trendDateLayout),
		Points:    points,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache trends", zap.Error(err))
		}
	}
	return resp, false, nil
}
