package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// Register files a self-registration for the calling student
// @Summary Register for a course
// @Tags enrollments
// @Produce json
// @Param id path uint true "Course ID"
// @Success 201 {object} models.Enrollment
// @Failure 409 {object} ErrorResponse "Already enrolled"
// @Failure 422 {object} ErrorResponse "Course not approved"
// @Router /courses/{id}/register [post]
func (h *EnrollmentHandler) Register(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Registering for course", "course_id", courseID)

	enrollment, err := h.enrollmentService.Register(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// Enroll is the admin manual enrollment
// @Summary Enroll a student (admin)
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body services.EnrollRequest true "Course and student"
// @Success 201 {object} models.Enrollment
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Enrolling student", "course_id", req.CourseID, "student_id", req.StudentID)

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// TransitionEnrollment applies a workflow action
// @Summary Apply an enrollment action
// @Description approve, reject, request_withdrawal, approve_withdrawal or reject_withdrawal
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Param action body services.EnrollmentActionRequest true "Action"
// @Success 200 {object} models.Enrollment
// @Success 204 "Enrollment removed"
// @Failure 400 {object} ErrorResponse "Transition not allowed"
// @Failure 409 {object} ErrorResponse "Enrollment changed concurrently"
// @Router /enrollments/{id}/actions [post]
func (h *EnrollmentHandler) TransitionEnrollment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.EnrollmentActionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Enrollment action", "enrollment_id", id, "action", req.Action)

	enrollment, err := h.enrollmentService.Transition(c.Request.Context(), id, req.Action, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if enrollment == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// UpdateProgress sets the completion percentage
// @Summary Update enrollment progress
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Param progress body services.UpdateProgressRequest true "Progress 0..100"
// @Success 200 {object} models.Enrollment
// @Router /enrollments/{id}/progress [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Progress == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Message: "progress is required"})
		return
	}

	enrollment, err := h.enrollmentService.UpdateProgress(c.Request.Context(), id, *req.Progress, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// Unenroll removes an enrollment directly
// @Summary Unenroll
// @Tags enrollments
// @Param id path uint true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Unenrolling", "enrollment_id", id)

	if err := h.enrollmentService.Unenroll(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetEnrollment retrieves one enrollment
// @Summary Get enrollment
// @Tags enrollments
// @Produce json
// @Param id path uint true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// ListEnrollments lists enrollments scoped to the caller's role
// @Summary List enrollments
// @Tags enrollments
// @Produce json
// @Param status query string false "Enrollment status"
// @Param course_id query uint false "Course"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parseEnrollmentFilters(c)
	filters.CourseID = h.parseUintQueryPtr(c, "course_id")

	result, err := h.enrollmentService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListCourseEnrollments lists the enrollments of one course
// @Summary List course enrollments
// @Tags enrollments
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /courses/{id}/enrollments [get]
func (h *EnrollmentHandler) ListCourseEnrollments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.enrollmentService.ListByCourse(c.Request.Context(), courseID, h.parseEnrollmentFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListStudentEnrollments lists the enrollments of one student
// @Summary List student enrollments
// @Tags enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} services.EnrollmentListResponse
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) ListStudentEnrollments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	studentID, ok := h.parseStringIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.enrollmentService.ListByStudent(c.Request.Context(), studentID, h.parseEnrollmentFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyEnrollments lists the caller's own enrollments
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {object} services.EnrollmentListResponse
// @Router /me/enrollments [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	result, err := h.enrollmentService.ListByStudent(c.Request.Context(), userID, h.parseEnrollmentFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EnrollmentHandler) parseEnrollmentFilters(c *gin.Context) repositories.EnrollmentFilters {
	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)

	filters := repositories.EnrollmentFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	if status := c.Query("status"); status != "" {
		s := models.EnrollmentStatus(status)
		filters.Status = &s
	}
	return filters
}
