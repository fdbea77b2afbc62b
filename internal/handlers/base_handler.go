package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the helpers shared by every resource handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

// currentUserID returns the authenticated caller and writes a 401 when there is none
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid " + param,
		})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseStringIDParam(c *gin.Context, param string) (string, bool) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid " + param,
		})
		return "", false
	}
	return id, true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) parseUintQueryPtr(c *gin.Context, param string) *uint {
	value, err := strconv.ParseUint(c.Query(param), 10, 32)
	if err != nil || value == 0 {
		return nil
	}
	id := uint(value)
	return &id
}

func (h *BaseHandler) parseStringQueryPtr(c *gin.Context, param string) *string {
	value := strings.TrimSpace(c.Query(param))
	if value == "" {
		return nil
	}
	return &value
}

func (h *BaseHandler) parseBoolQueryPtr(c *gin.Context, param string) *bool {
	value, err := strconv.ParseBool(c.Query(param))
	if err != nil {
		return nil
	}
	return &value
}

// parsePagination reads page/size and returns limit/offset
func (h *BaseHandler) parsePagination(c *gin.Context) (int, int) {
	page := h.parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	size := h.parseIntQuery(c, "size", defaultPageSize)
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

func (h *BaseHandler) parseSort(c *gin.Context) (string, string) {
	order := strings.ToLower(c.Query("sort_order"))
	if order != "asc" && order != "desc" {
		order = ""
	}
	return c.Query("sort_by"), order
}

// errorStatus classifies a service error into an HTTP status and a short code
func errorStatus(err error) (int, string) {
	var validationErrors services.ValidationErrors
	var businessRuleError *services.BusinessRuleError
	var permissionError *services.PermissionError

	switch {
	case errors.As(err, &validationErrors), errors.Is(err, services.ErrValidationFailed), errors.Is(err, services.ErrBadRequest):
		return http.StatusBadRequest, "validation_failed"
	case errors.As(err, &businessRuleError):
		return http.StatusUnprocessableEntity, "business_rule_violation"
	case errors.As(err, &permissionError), errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrInsufficientPermissions):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrAnnouncementNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrEnrollmentExists),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrCourseNotApproved), errors.Is(err, services.ErrNotEnrolled):
		return http.StatusUnprocessableEntity, "business_rule_violation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	resp := ErrorResponse{Error: code, Message: err.Error()}

	var validationErrors services.ValidationErrors
	var businessRuleError *services.BusinessRuleError
	var permissionError *services.PermissionError
	switch {
	case errors.As(err, &validationErrors):
		resp.Message = "Validation failed"
		resp.Details = validationErrors
	case errors.As(err, &businessRuleError):
		resp.Message = businessRuleError.Message
		resp.Details = map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		}
	case errors.As(err, &permissionError):
		resp.Message = "Access denied"
		resp.Details = map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		}
	}

	if status == http.StatusInternalServerError {
		h.LogError(c, err, "Unexpected service error")
		resp.Message = "Internal server error"
	}
	c.JSON(status, resp)
}

func parseRoleQuery(c *gin.Context) *models.UserRole {
	raw := strings.ToLower(strings.TrimSpace(c.Query("role")))
	if raw == "" {
		return nil
	}
	role := models.UserRole(raw)
	return &role
}
