package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ===== DASHBOARD ENDPOINTS =====

// GetDashboard returns the counters for the caller's role
// @Summary Get my dashboard
// @Description Admins get system counters, lecturers their course counters, students their own progress
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting dashboard")

	resp, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetLecturerDashboard returns the counters of one lecturer
// @Summary Get lecturer counters (admin)
// @Tags dashboard
// @Produce json
// @Param id path string true "Lecturer ID"
// @Success 200 {object} repositories.LecturerStats
// @Router /dashboard/lecturers/{id} [get]
func (h *DashboardHandler) GetLecturerDashboard(c *gin.Context) {
	lecturerID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.service.GetLecturerStats(c.Request.Context(), lecturerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
