package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnrollments struct {
	services.EnrollmentService
	registered  []uint
	registerErr error
	transitions []models.EnrollmentAction
}

func (s *stubEnrollments) Register(_ context.Context, courseID uint, studentID string) (*models.Enrollment, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.registered = append(s.registered, courseID)
	return &models.Enrollment{ID: 1, CourseID: courseID, StudentID: studentID, Status: models.EnrollmentPending}, nil
}

func (s *stubEnrollments) Transition(_ context.Context, id uint, action models.EnrollmentAction, _ string) (*models.Enrollment, error) {
	s.transitions = append(s.transitions, action)
	if action == models.ActionApproveWithdrawal {
		return nil, nil
	}
	return &models.Enrollment{ID: id, Status: models.EnrollmentApproved}, nil
}

func newEnrollmentRouter(svc services.EnrollmentService) *gin.Engine {
	h := NewEnrollmentHandler(svc, testLogger())
	r := gin.New()
	v1 := r.Group("/api/v1", headerAuth())
	v1.POST("/courses/:id/register", h.Register)
	v1.POST("/enrollments/:id/actions", h.TransitionEnrollment)
	return r
}

func TestEnrollmentHandler_Register(t *testing.T) {
	stub := &stubEnrollments{}
	router := newEnrollmentRouter(stub)

	w := doRequest(t, router, http.MethodPost, "/api/v1/courses/7/register", nil, asStudent)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending", decodeBody(t, w)["status"])
	assert.Equal(t, []uint{7}, stub.registered)

	w = doRequest(t, router, http.MethodPost, "/api/v1/courses/abc/register", nil, asStudent)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stub.registerErr = services.ErrEnrollmentExists
	w = doRequest(t, router, http.MethodPost, "/api/v1/courses/7/register", nil, asStudent)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeBody(t, w)["error"])
}

func TestEnrollmentHandler_Transition(t *testing.T) {
	stub := &stubEnrollments{}
	router := newEnrollmentRouter(stub)

	w := doRequest(t, router, http.MethodPost, "/api/v1/enrollments/3/actions", map[string]string{"action": "approve"}, asLecturer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", decodeBody(t, w)["status"])

	// an approved withdrawal deletes the row
	w = doRequest(t, router, http.MethodPost, "/api/v1/enrollments/3/actions", map[string]string{"action": "approve_withdrawal"}, asLecturer)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, []models.EnrollmentAction{models.ActionApprove, models.ActionApproveWithdrawal}, stub.transitions)
}
