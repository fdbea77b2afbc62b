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

func TestAnnouncementService_GlobalApprovalGate(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	svc := env.announcements()
	ctx := context.Background()

	fromLecturer, err := svc.Create(ctx, &CreateAnnouncementRequest{Title: "Exam week", Content: "...", IsGlobal: true}, "lect")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementPending, fromLecturer.Status)
	assert.Empty(t, env.publisher.EventsOfType(events.AnnouncementPublished))

	fromAdmin, err := svc.Create(ctx, &CreateAnnouncementRequest{Title: "Holiday", Content: "...", IsGlobal: true}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementApproved, fromAdmin.Status)
	assert.Len(t, env.publisher.EventsOfType(events.AnnouncementPublished), 1)

	// students only see approved items
	list, err := svc.List(ctx, repositories.AnnouncementFilters{}, "stud")
	require.NoError(t, err)
	require.Len(t, list.Announcements, 1)
	assert.Equal(t, fromAdmin.ID, list.Announcements[0].ID)

	_, err = svc.GetByID(ctx, fromLecturer.ID, "stud")
	assert.True(t, IsPermissionError(err), "got %v", err)

	_, err = svc.UpdateStatus(ctx, fromLecturer.ID, &UpdateAnnouncementStatusRequest{Status: models.AnnouncementApproved}, "lect")
	assert.True(t, IsPermissionError(err), "got %v", err)

	approved, err := svc.UpdateStatus(ctx, fromLecturer.ID, &UpdateAnnouncementStatusRequest{Status: models.AnnouncementApproved}, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementApproved, approved.Status)

	// approved is terminal
	_, err = svc.UpdateStatus(ctx, fromLecturer.ID, &UpdateAnnouncementStatusRequest{Status: models.AnnouncementRejected}, "admin")
	assert.True(t, IsValidationError(err), "got %v", err)

	list, err = svc.List(ctx, repositories.AnnouncementFilters{}, "stud")
	require.NoError(t, err)
	assert.Len(t, list.Announcements, 2)
}

func TestAnnouncementService_CourseTargets(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("other", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	env.store.addUser("stranger", models.RoleStudent)
	course := env.store.addCourse("lect", models.CourseStatusApproved)
	env.store.addEnrollment(course.ID, "stud", models.EnrollmentApproved)
	svc := env.announcements()
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateAnnouncementRequest{Title: "Room change", Content: "..."}, "lect")
	assert.True(t, IsValidationError(err), "course_id is required: got %v", err)

	_, err = svc.Create(ctx, &CreateAnnouncementRequest{Title: "Room change", Content: "...", CourseID: &course.ID}, "other")
	assert.True(t, IsPermissionError(err), "got %v", err)

	_, err = svc.Create(ctx, &CreateAnnouncementRequest{Title: "Hi", Content: "...", CourseID: &course.ID}, "stud")
	assert.True(t, IsPermissionError(err), "got %v", err)

	created, err := svc.Create(ctx, &CreateAnnouncementRequest{Title: "Room change", Content: "...", CourseID: &course.ID}, "lect")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementApproved, created.Status)

	_, err = svc.GetByID(ctx, created.ID, "stud")
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, created.ID, "stranger")
	assert.True(t, IsPermissionError(err), "got %v", err)

	// turning a course item global sends it back for approval
	updated, err := svc.Update(ctx, created.ID, &UpdateAnnouncementRequest{IsGlobal: ptr(true)}, "lect")
	require.NoError(t, err)
	assert.True(t, updated.IsGlobal)
	assert.Nil(t, updated.CourseID)
	assert.Equal(t, models.AnnouncementPending, updated.Status)

	assert.True(t, IsPermissionError(svc.Delete(ctx, created.ID, "other")))
	require.NoError(t, svc.Delete(ctx, created.ID, "lect"))
}

func TestAnnouncementService_GlobalDraftMovedToCourse(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	course := env.store.addCourse("lect", models.CourseStatusApproved)
	env.store.addEnrollment(course.ID, "stud", models.EnrollmentApproved)
	svc := env.announcements()
	ctx := context.Background()

	draft, err := svc.Create(ctx, &CreateAnnouncementRequest{Title: "Lab moved", Content: "...", IsGlobal: true}, "lect")
	require.NoError(t, err)
	require.Equal(t, models.AnnouncementPending, draft.Status)

	moved, err := svc.Update(ctx, draft.ID, &UpdateAnnouncementRequest{IsGlobal: ptr(false), CourseID: &course.ID}, "lect")
	require.NoError(t, err)
	assert.False(t, moved.IsGlobal)
	assert.Equal(t, models.AnnouncementApproved, moved.Status)
	assert.Len(t, env.publisher.EventsOfType(events.AnnouncementPublished), 1)

	got, err := svc.GetByID(ctx, draft.ID, "stud")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementApproved, got.Status)
}
