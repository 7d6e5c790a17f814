package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardConfig tunes leaderboard caching and the default lookback.
type LeaderboardConfig struct {
	CacheTTL   time.Duration
	WindowDays int
}

// LeaderboardService ranks a school's students by one engagement metric
// inside a lookback window.
type LeaderboardService struct {
	cohorts    CohortRepository
	engagement EngagementRepository
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        LeaderboardConfig
	now        func() time.Time
}

// NewLeaderboardService constructs a leaderboard service.
func NewLeaderboardService(cohorts CohortRepository, engagement EngagementRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg LeaderboardConfig) *LeaderboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &LeaderboardService{
		cohorts:    cohorts,
		engagement: engagement,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Leaderboard returns one page of the ranked set, restricted to events inside
// the lookback window. Ranks are ordinal over the full ordering, and Total
// always reflects the unpaginated set size.
func (s *LeaderboardService) Leaderboard(ctx context.Context, schoolID, rawType string, days, page, limit int) (*dto.LeaderboardResponse, bool, error) {
	metric, ok := models.ParseLeaderboardMetric(rawType)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidFilter, fmt.Sprintf("unknown leaderboard type %q", rawType))
	}
	days = normalizeWindow(days, s.cfg.WindowDays)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	offset := (page - 1) * limit

	cacheKey := makeInsightsCacheKey("leaderboard", schoolID, string(metric), strconv.Itoa(days), strconv.Itoa(page), strconv.Itoa(limit))
	var cached dto.LeaderboardResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get leaderboard cache: %w", err)
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

	nowUTC := s.now().UTC()
	from := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	start := time.Now()
	rows, err := s.engagement.LeaderboardRows(ctx, schoolID, metric, from)
	if err != nil {
		return nil, false, err
	}
	observeQuery(s.metrics, "leaderboard_"+string(metric), start)

	resp := &dto.LeaderboardResponse{
		SchoolID: schoolID,
		Type:     string(metric),
		Days:     days,
		Total:    len(rows),
		Page:     page,
		Limit:    limit,
		Entries:  []dto.LeaderboardEntry{},
	}

	if offset < len(rows) {
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		for i, row := range rows[offset:end] {
			resp.Entries = append(resp.Entries, dto.LeaderboardEntry{
				Rank:      offset + i + 1,
				StudentID: row.StudentID,
				FullName:  row.FullName,
				ClassName: row.ClassName,
				Score:     roundRate(row.Score),
			})
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil && s.logger != nil {
			s.logger.Warn("cache leaderboard", zap.Error(err))
		}
	}
	return resp, false, nil
}
