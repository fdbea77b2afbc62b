package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseService_CreateByRole(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	svc := env.courses()
	ctx := context.Background()

	req := func() *CreateCourseRequest {
		return &CreateCourseRequest{
			Code:     "CS101",
			Name:     "Intro to Programming",
			Semester: "Fall",
			Schedule: []models.ScheduleSlot{{Day: models.Monday, Period: 1}},
		}
	}

	byLecturer, err := svc.Create(ctx, req(), "lect")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPending, byLecturer.Status)
	require.NotNil(t, byLecturer.LecturerID)
	assert.Equal(t, "lect", *byLecturer.LecturerID)
	assert.Equal(t, models.DefaultCourseColor, byLecturer.Color)

	adminReq := req()
	adminReq.LecturerID = ptr("lect")
	byAdmin, err := svc.Create(ctx, adminReq, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusApproved, byAdmin.Status)

	adminReq = req()
	adminReq.LecturerID = ptr("stud")
	_, err = svc.Create(ctx, adminReq, "admin")
	assert.True(t, IsValidationError(err), "got %v", err)

	_, err = svc.Create(ctx, req(), "stud")
	assert.True(t, IsPermissionError(err), "got %v", err)

	dup := req()
	dup.Schedule = append(dup.Schedule, models.ScheduleSlot{Day: models.Monday, Period: 1})
	_, err = svc.Create(ctx, dup, "lect")
	assert.True(t, IsValidationError(err), "got %v", err)

	assert.Len(t, env.publisher.EventsOfType(events.CourseCreated), 2)
}

func TestCourseService_ApprovalAndVisibility(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	pending := env.store.addCourse("lect", models.CourseStatusPending)
	svc := env.courses()
	ctx := context.Background()

	_, err := svc.GetByID(ctx, pending.ID, "stud")
	assert.True(t, IsPermissionError(err), "got %v", err)

	list, err := svc.List(ctx, repositories.CourseFilters{}, "stud")
	require.NoError(t, err)
	assert.Empty(t, list.Courses)

	_, err = svc.UpdateStatus(ctx, pending.ID, &UpdateCourseStatusRequest{Status: models.CourseStatusApproved}, "lect")
	assert.True(t, IsPermissionError(err), "got %v", err)

	approved, err := svc.UpdateStatus(ctx, pending.ID, &UpdateCourseStatusRequest{Status: models.CourseStatusApproved}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusApproved, approved.Status)

	got, err := svc.GetByID(ctx, pending.ID, "stud")
	require.NoError(t, err)
	assert.True(t, got.CanEnroll)
	assert.False(t, got.CanEdit)

	changed := env.publisher.EventsOfType(events.CourseStatusChanged)
	require.Len(t, changed, 1)
	var payload events.CourseEvent
	require.NoError(t, changed[0].DecodeData(&payload))
	assert.Equal(t, "pending", payload.OldStatus)
	assert.Equal(t, "approved", payload.Status)
}

func TestCourseService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("other", models.RoleLecturer)
	course := env.store.addCourse("lect", models.CourseStatusApproved)
	svc := env.courses()
	ctx := context.Background()

	updated, err := svc.Update(ctx, course.ID, &UpdateCourseRequest{Name: ptr("Renamed"), Color: ptr("#112233")}, "lect")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "#112233", updated.Color)

	_, err = svc.Update(ctx, course.ID, &UpdateCourseRequest{Name: ptr("Mine now")}, "other")
	assert.True(t, IsPermissionError(err), "got %v", err)

	assert.True(t, IsPermissionError(svc.Delete(ctx, course.ID, "other")))
	require.NoError(t, svc.Delete(ctx, course.ID, "lect"))
	_, err = svc.GetByID(ctx, course.ID, "admin")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseService_CanAccessCanManage(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("other", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	pending := env.store.addCourse("lect", models.CourseStatusPending)
	svc := env.courses()
	ctx := context.Background()

	tests := []struct {
		user       string
		wantAccess bool
		wantManage bool
	}{
		{user: "admin", wantAccess: true, wantManage: true},
		{user: "lect", wantAccess: true, wantManage: true},
		{user: "other", wantAccess: false, wantManage: false},
		{user: "stud", wantAccess: false, wantManage: false},
	}
	for _, tt := range tests {
		access, err := svc.CanAccess(ctx, pending.ID, tt.user)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAccess, access, "CanAccess(%s)", tt.user)

		manage, err := svc.CanManage(ctx, pending.ID, tt.user)
		require.NoError(t, err)
		assert.Equal(t, tt.wantManage, manage, "CanManage(%s)", tt.user)
	}

	access, err := svc.CanAccess(ctx, 9999, "admin")
	require.NoError(t, err)
	assert.False(t, access)

	_, err = svc.CanManage(ctx, pending.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
