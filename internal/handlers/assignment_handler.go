package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// AssignmentHandler serves assignments and their submissions
type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
	}
}

// CreateAssignment creates an assignment in a course
// @Summary Create assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param assignment body services.CreateAssignmentRequest true "Assignment data"
// @Success 201 {object} services.AssignmentResponse
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating assignment", "course_id", req.CourseID)

	assignment, err := h.assignmentService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// GetAssignment retrieves an assignment
// @Summary Get assignment
// @Tags assignments
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} services.AssignmentResponse
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	assignment, err := h.assignmentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// UpdateAssignment changes an assignment
// @Summary Update assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param assignment body services.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} services.AssignmentResponse
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assignment, err := h.assignmentService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment removes an assignment and its submissions
// @Summary Delete assignment
// @Tags assignments
// @Param id path uint true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting assignment", "assignment_id", id)

	if err := h.assignmentService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListCourseAssignments lists the assignments of a course
// @Summary List course assignments
// @Tags assignments
// @Produce json
// @Param id path uint true "Course ID"
// @Success 200 {object} services.AssignmentListResponse
// @Router /courses/{id}/assignments [get]
func (h *AssignmentHandler) ListCourseAssignments(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	courseID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.assignmentService.ListByCourse(c.Request.Context(), courseID, h.parseAssignmentFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStudentFeed lists assignments across the caller's approved courses
// @Summary My assignment feed
// @Tags assignments
// @Produce json
// @Param due_after query string false "RFC3339 lower bound for due_date"
// @Success 200 {object} services.AssignmentListResponse
// @Router /me/assignments [get]
func (h *AssignmentHandler) GetStudentFeed(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parseAssignmentFilters(c)
	if raw := c.Query("due_after"); raw != "" {
		dueAfter, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "due_after must be RFC3339"})
			return
		}
		filters.DueAfter = &dueAfter
	}

	result, err := h.assignmentService.StudentFeed(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Submit creates or replaces the caller's submission
// @Summary Submit work
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param submission body services.SubmitRequest true "Submission"
// @Success 200 {object} models.Submission
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting assignment", "assignment_id", assignmentID)

	submission, err := h.assignmentService.Submit(c.Request.Context(), assignmentID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListSubmissions lists the submissions of an assignment
// @Summary List submissions (staff)
// @Tags submissions
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param graded query bool false "Only graded or ungraded"
// @Success 200 {object} services.SubmissionListResponse
// @Router /assignments/{id}/submissions [get]
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.assignmentService.ListSubmissions(c.Request.Context(), assignmentID, h.parseSubmissionFilters(c), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMySubmissions lists the caller's own submissions
// @Summary List my submissions
// @Tags submissions
// @Produce json
// @Success 200 {object} services.SubmissionListResponse
// @Router /me/submissions [get]
func (h *AssignmentHandler) ListMySubmissions(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := h.parseSubmissionFilters(c)
	filters.CourseID = h.parseUintQueryPtr(c, "course_id")

	result, err := h.assignmentService.ListMySubmissions(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSubmission retrieves one submission
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param id path uint true "Submission ID"
// @Success 200 {object} models.Submission
// @Router /submissions/{id} [get]
func (h *AssignmentHandler) GetSubmission(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	submission, err := h.assignmentService.GetSubmission(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// GradeSubmission records a score and feedback
// @Summary Grade submission
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path uint true "Submission ID"
// @Param grade body services.GradeRequest true "Score and feedback"
// @Success 200 {object} models.Submission
// @Failure 400 {object} ErrorResponse "Score out of range"
// @Router /submissions/{id}/grade [put]
func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.GradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Grading submission", "submission_id", id)

	submission, err := h.assignmentService.Grade(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

func (h *AssignmentHandler) parseAssignmentFilters(c *gin.Context) repositories.AssignmentFilters {
	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)
	return repositories.AssignmentFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

func (h *AssignmentHandler) parseSubmissionFilters(c *gin.Context) repositories.SubmissionFilters {
	limit, offset := h.parsePagination(c)
	sortBy, sortOrder := h.parseSort(c)
	return repositories.SubmissionFilters{
		Graded:    h.parseBoolQueryPtr(c, "graded"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}
