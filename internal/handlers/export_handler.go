package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ExportHandler streams course spreadsheets
type ExportHandler struct {
	BaseHandler
	service services.ImportExportService
}

func NewExportHandler(service services.ImportExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

type exportFunc func(ctx context.Context, courseID uint, userID string) (*services.ExportFile, error)

// ExportGradebook downloads the course gradebook
// @Summary Export gradebook
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/gradebook/export [get]
func (h *ExportHandler) ExportGradebook(c *gin.Context) {
	h.export(c, "gradebook", h.service.ExportGradebook)
}

// ExportRoster downloads the course enrollment roster
// @Summary Export roster
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /courses/{id}/roster/export [get]
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	h.export(c, "roster", h.service.ExportRoster)
}

func (h *ExportHandler) export(c *gin.Context, kind string, fn exportFunc) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting course", "kind", kind, "course_id", courseID)

	file, err := fn(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
