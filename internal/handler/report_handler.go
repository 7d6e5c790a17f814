package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/middleware"
	"github.com/schoolpulse/insights-api/internal/service"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
	"github.com/schoolpulse/insights-api/pkg/response"
)

type assessmentReportService interface {
	List(ctx context.Context, schoolID string) (*dto.AssessmentListResponse, bool, error)
	TemplateReport(ctx context.Context, schoolID, templateID string) (*dto.AssessmentDetailResponse, bool, error)
	StudentTemplateResponses(ctx context.Context, schoolID, templateID, studentID string) (*dto.StudentResponsesResponse, error)
}

type activityReportService interface {
	List(ctx context.Context, schoolID string) (*dto.ActivityListResponse, bool, error)
	AssignmentDetail(ctx context.Context, schoolID, assignmentID string) (*dto.ActivityDetailResponse, error)
}

type webinarReportService interface {
	List(ctx context.Context, schoolID string) (*dto.WebinarListResponse, bool, error)
	WebinarDetail(ctx context.Context, schoolID, webinarID string) (*dto.WebinarDetailResponse, error)
}

type exportService interface {
	Generate(ctx context.Context, schoolID, rawReport, rawFormat string) (*service.ExportResult, error)
}

// ReportHandler exposes the school-wide report endpoints.
type ReportHandler struct {
	assessments assessmentReportService
	activities  activityReportService
	webinars    webinarReportService
	exports     exportService
}

// NewReportHandler constructs the report handler.
func NewReportHandler(assessments assessmentReportService, activities activityReportService, webinars webinarReportService, exports exportService) *ReportHandler {
	return &ReportHandler{
		assessments: assessments,
		activities:  activities,
		webinars:    webinars,
		exports:     exports,
	}
}

// Assessments godoc
// @Summary Assessment list with completion stats
// @Tags Reports
// @Produce json
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *ReportHandler) Assessments(c *gin.Context) {
	if h.assessments == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	list, cacheHit, err := h.assessments.List(c.Request.Context(), schoolID)
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

// AssessmentDetail godoc
// @Summary Template report with score distribution
// @Tags Reports
// @Produce json
// @Param templateId path string true "Template ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{templateId} [get]
func (h *ReportHandler) AssessmentDetail(c *gin.Context) {
	if h.assessments == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	templateID, ok := uuidParam(c, "templateId")
	if !ok {
		return
	}
	start := time.Now()
	report, cacheHit, err := h.assessments.TemplateReport(c.Request.Context(), schoolID, templateID)
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
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// StudentResponses godoc
// @Summary Per-question responses of one student
// @Tags Reports
// @Produce json
// @Param templateId path string true "Template ID"
// @Param studentId path string true "Student ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{templateId}/students/{studentId}/responses [get]
func (h *ReportHandler) StudentResponses(c *gin.Context) {
	if h.assessments == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	templateID, ok := uuidParam(c, "templateId")
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "studentId")
	if !ok {
		return
	}
	report, err := h.assessments.StudentTemplateResponses(c.Request.Context(), schoolID, templateID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Activities godoc
// @Summary Activity assignment list with completion stats
// @Tags Reports
// @Produce json
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ReportHandler) Activities(c *gin.Context) {
	if h.activities == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	list, cacheHit, err := h.activities.List(c.Request.Context(), schoolID)
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

// ActivityDetail godoc
// @Summary Per-student completion breakdown of one assignment
// @Tags Reports
// @Produce json
// @Param id path string true "Assignment ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ReportHandler) ActivityDetail(c *gin.Context) {
	if h.activities == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	assignmentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.activities.AssignmentDetail(c.Request.Context(), schoolID, assignmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Webinars godoc
// @Summary Webinar list with attendance stats
// @Tags Reports
// @Produce json
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /webinars [get]
func (h *ReportHandler) Webinars(c *gin.Context) {
	if h.webinars == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	list, cacheHit, err := h.webinars.List(c.Request.Context(), schoolID)
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

// WebinarDetail godoc
// @Summary Per-student attendance breakdown of one webinar
// @Tags Reports
// @Produce json
// @Param id path string true "Webinar ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /webinars/{id} [get]
func (h *ReportHandler) WebinarDetail(c *gin.Context) {
	if h.webinars == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	webinarID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	report, err := h.webinars.WebinarDetail(c.Request.Context(), schoolID, webinarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export an analytics table as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param school_id query string true "School ID"
// @Param report query string true "Table: overview, classes or students"
// @Param format query string true "Format: csv or pdf"
// @Success 200 {file} binary
// @Router /export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), schoolID, c.Query("report"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
