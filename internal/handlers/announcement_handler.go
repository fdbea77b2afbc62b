package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AnnouncementHandler struct {
	BaseHandler
	announcementService services.AnnouncementService
}

func NewAnnouncementHandler(announcementService services.AnnouncementService, logger utils.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{
		BaseHandler:         NewBaseHandler(logger),
		announcementService: announcementService,
	}
}

// CreateAnnouncement posts an announcement
// @Summary Create announcement
// @Description Global announcements from lecturers wait for admin approval
// @Tags announcements
// @Accept json
// @Produce json
// @Param announcement body services.CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} services.AnnouncementResponse
// @Router /announcements [post]
func (h *AnnouncementHandler) CreateAnnouncement(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAnnouncementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating announcement", "is_global", req.IsGlobal)

	announcement, err := h.announcementService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

// @Summary Get announcement
// @Tags announcements
// @Produce json
// @Param id path uint true "Announcement ID"
// @Success 200 {object} services.AnnouncementResponse
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) GetAnnouncement(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	announcement, err := h.announcementService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

// @Summary Update announcement
// @Tags announcements
// @Accept json
// @Produce json
// @Param id path uint true "Announcement ID"
// @Param announcement body services.UpdateAnnouncementRequest true "Fields to change"
// @Success 200 {object} services.AnnouncementResponse
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) UpdateAnnouncement(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAnnouncementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	announcement, err := h.announcementService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

// @Summary Approve or reject announcement (admin)
// @Tags announcements
// @Accept json
// @Produce json
// @Param id path uint true "Announcement ID"
// @Param status body services.UpdateAnnouncementStatusRequest true "New status"
// @Success 200 {object} services.AnnouncementResponse
// @Router /announcements/{id}/status [put]
func (h *AnnouncementHandler) UpdateAnnouncementStatus(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAnnouncementStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Changing announcement status", "announcement_id", id, "status", req.Status)

	announcement, err := h.announcementService.UpdateStatus(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, announcement)
}

// @Summary Delete announcement
// @Tags announcements
// @Param id path uint true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.announcementService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAnnouncements lists what the caller may read
// @Summary List announcements
// @Tags announcements
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param course_id query uint false "Course"
// @Param is_global query bool false "Only global or only course announcements"
// @Success 200 {object} services.AnnouncementListResponse
// @Router /announcements [get]
func (h *AnnouncementHandler) ListAnnouncements(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)
	filters := repositories.AnnouncementFilters{
		CourseID:  h.parseUintQueryPtr(c, "course_id"),
		IsGlobal:  h.parseBoolQueryPtr(c, "is_global"),
		CreatedBy: h.parseStringQueryPtr(c, "created_by"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	if status := c.Query("status"); status != "" {
		s := models.AnnouncementStatus(status)
		filters.Status = &s
	}

	result, err := h.announcementService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
