package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/middleware"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
	"github.com/schoolpulse/insights-api/pkg/response"
)

type overviewService interface {
	Overview(ctx context.Context, schoolID string, windowDays int) (*dto.OverviewResponse, bool, error)
}

type classAnalyticsService interface {
	ClassList(ctx context.Context, schoolID, teacherID string) (*dto.ClassListResponse, bool, error)
	ClassDetail(ctx context.Context, schoolID, classID string, windowDays int) (*dto.ClassDetailResponse, bool, error)
}

type trendService interface {
	Trends(ctx context.Context, schoolID string, days int) (*dto.TrendResponse, bool, error)
}

type leaderboardService interface {
	Leaderboard(ctx context.Context, schoolID, rawType string, days, page, limit int) (*dto.LeaderboardResponse, bool, error)
}

// AnalyticsHandler exposes the school-level engagement endpoints.
type AnalyticsHandler struct {
	overview    overviewService
	classes     classAnalyticsService
	trends      trendService
	leaderboard leaderboardService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(overview overviewService, classes classAnalyticsService, trends trendService, leaderboard leaderboardService) *AnalyticsHandler {
	return &AnalyticsHandler{
		overview:    overview,
		classes:     classes,
		trends:      trends,
		leaderboard: leaderboard,
	}
}

// Overview godoc
// @Summary School engagement overview
// @Tags Analytics
// @Produce json
// @Param school_id query string true "School ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.overview == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.overview.Overview(c.Request.Context(), schoolID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// Classes godoc
// @Summary Per-class engagement summaries
// @Tags Analytics
// @Produce json
// @Param school_id query string true "School ID"
// @Param teacher_id query string false "Restrict to classes taught by this teacher"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *AnalyticsHandler) Classes(c *gin.Context) {
	if h.classes == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	teacherID, ok := optionalUUIDQuery(c, "teacher_id")
	if !ok {
		return
	}
	start := time.Now()
	list, cacheHit, err := h.classes.ClassList(c.Request.Context(), schoolID, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, list, nil, meta)
}

// ClassDetail godoc
// @Summary Single class engagement detail
// @Tags Analytics
// @Produce json
// @Param id path string true "Class ID"
// @Param school_id query string true "School ID"
// @Param days query int false "Window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *AnalyticsHandler) ClassDetail(c *gin.Context) {
	if h.classes == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	classID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	start := time.Now()
	detail, cacheHit, err := h.classes.ClassDetail(c.Request.Context(), schoolID, classID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, detail, nil, meta)
}

// Trends godoc
// @Summary Daily engagement trend series
// @Tags Analytics
// @Produce json
// @Param school_id query string true "School ID"
// @Param days query int false "Window in days (default 30, max 90)"
// @Success 200 {object} response.Envelope
// @Router /trends [get]
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	if h.trends == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	start := time.Now()
	series, cacheHit, err := h.trends.Trends(c.Request.Context(), schoolID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, series, nil, meta)
}

// Leaderboard godoc
// @Summary Ranked student leaderboard
// @Tags Analytics
// @Produce json
// @Param school_id query string true "School ID"
// @Param type query string true "Metric: assessments, activities or webinars"
// @Param days query int false "Lookback window in days (default 30)"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *AnalyticsHandler) Leaderboard(c *gin.Context) {
	if h.leaderboard == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	page, ok := intQuery(c, "page", 0)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	start := time.Now()
	board, cacheHit, err := h.leaderboard.Leaderboard(c.Request.Context(), schoolID, c.Query("type"), days, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, board, nil, meta)
}
