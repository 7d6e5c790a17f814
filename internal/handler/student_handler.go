package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/middleware"
	"github.com/schoolpulse/insights-api/internal/service"
	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
	"github.com/schoolpulse/insights-api/pkg/response"
)

type studentInsightsService interface {
	ListStudents(ctx context.Context, params service.StudentListParams) (*dto.StudentListResponse, error)
	Assessments(ctx context.Context, schoolID, studentID string) (*dto.StudentAssessmentsResponse, error)
	Activities(ctx context.Context, schoolID, studentID, rawStatus string) (*dto.StudentActivitiesResponse, error)
	Webinars(ctx context.Context, schoolID, studentID string) (*dto.StudentWebinarsResponse, error)
	Streak(ctx context.Context, schoolID, studentID string, days int) (*dto.StudentStreakResponse, error)
}

type profileService interface {
	Profile(ctx context.Context, schoolID, studentID string) (*dto.StudentProfileResponse, error)
}

// StudentHandler exposes the per-student engagement endpoints.
type StudentHandler struct {
	insights studentInsightsService
	profiles profileService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(insights studentInsightsService, profiles profileService) *StudentHandler {
	return &StudentHandler{insights: insights, profiles: profiles}
}

// List godoc
// @Summary Paginated roster with engagement columns
// @Tags Students
// @Produce json
// @Param school_id query string true "School ID"
// @Param class_id query string false "Filter by class"
// @Param teacher_id query string false "Filter by assigned teacher"
// @Param search query string false "Case-insensitive name search"
// @Param grade query string false "Filter by grade label"
// @Param risk_level query string false "Filter: LOW, MEDIUM, HIGH or CRITICAL"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	if h.insights == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	classID, ok := optionalUUIDQuery(c, "class_id")
	if !ok {
		return
	}
	teacherID, ok := optionalUUIDQuery(c, "teacher_id")
	if !ok {
		return
	}
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 20)
	if !ok {
		return
	}
	params := service.StudentListParams{
		SchoolID:  schoolID,
		ClassID:   classID,
		TeacherID: teacherID,
		Search:    strings.TrimSpace(c.Query("search")),
		Grade:     strings.TrimSpace(c.Query("grade")),
		RiskLevel: c.Query("risk_level"),
		Page:      page,
		Limit:     limit,
	}
	list, err := h.insights.ListStudents(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Students, &list.Pagination)
}

// Assessments godoc
// @Summary Student assessment history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/assessments [get]
func (h *StudentHandler) Assessments(c *gin.Context) {
	if h.insights == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	history, err := h.insights.Assessments(c.Request.Context(), schoolID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Activities godoc
// @Summary Student activity submissions
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param school_id query string true "School ID"
// @Param status query string false "Filter: PENDING, SUBMITTED, VERIFIED or REJECTED"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/activities [get]
func (h *StudentHandler) Activities(c *gin.Context) {
	if h.insights == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	history, err := h.insights.Activities(c.Request.Context(), schoolID, studentID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Webinars godoc
// @Summary Student webinar attendance
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/webinars [get]
func (h *StudentHandler) Webinars(c *gin.Context) {
	if h.insights == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	history, err := h.insights.Webinars(c.Request.Context(), schoolID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Streak godoc
// @Summary Student daily streak history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param school_id query string true "School ID"
// @Param days query int false "Window in days (default 30, max 90)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/streak [get]
func (h *StudentHandler) Streak(c *gin.Context) {
	if h.insights == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}
	streak, err := h.insights.Streak(c.Request.Context(), schoolID, studentID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streak, nil)
}

// Profile godoc
// @Summary Merged student engagement profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/profile [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	if h.profiles == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	schoolID, ok := schoolIDFromQuery(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	start := time.Now()
	profile, err := h.profiles.Profile(c.Request.Context(), schoolID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, profile, nil, meta)
}
