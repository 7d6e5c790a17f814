package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appErrors "github.com/schoolpulse/insights-api/pkg/errors"
	"github.com/schoolpulse/insights-api/pkg/response"
)

// schoolIDFromQuery reads the mandatory school_id query parameter. On failure
// it writes the error response itself, so callers just return on false.
func schoolIDFromQuery(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.Query("school_id"))
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id is required"))
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "school_id must be a valid uuid"))
		return "", false
	}
	return id.String(), true
}

// optionalUUIDQuery reads an optional uuid query parameter. Absent is fine,
// a malformed value is a validation error.
func optionalUUIDQuery(c *gin.Context, name string) (string, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return "", true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a valid uuid"))
		return "", false
	}
	return id.String(), true
}

// uuidParam reads a uuid path parameter.
func uuidParam(c *gin.Context, name string) (string, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a valid uuid"))
		return "", false
	}
	return id.String(), true
}

// intQuery reads an optional integer query parameter with a fallback for the
// absent case. Range clamping is left to the services.
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer"))
		return 0, false
	}
	return value, true
}
