package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_GetByRole(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("admin", models.RoleAdmin)
	env.store.addUser("lect", models.RoleLecturer)
	env.store.addUser("stud", models.RoleStudent)
	course := env.store.addCourse("lect", models.CourseStatusPending)
	a := env.store.addAssignment(course.ID, 10)
	env.store.submissions[100] = &models.Submission{ID: 100, AssignmentID: a.ID, StudentID: "stud", Score: ptr(7.0)}
	env.store.submissions[101] = &models.Submission{ID: 101, AssignmentID: a.ID + 1, StudentID: "stud", Score: ptr(8.0)}
	env.store.submissions[102] = &models.Submission{ID: 102, AssignmentID: a.ID + 2, StudentID: "stud", Score: ptr(8.0)}
	svc := NewDashboardService(env.store, nil, env.logger)
	ctx := context.Background()

	tests := []struct {
		name  string
		user  string
		check func(t *testing.T, resp *DashboardResponse)
	}{
		{"admin", "admin", func(t *testing.T, resp *DashboardResponse) {
			require.NotNil(t, resp.Admin)
			assert.Nil(t, resp.Student)
			assert.EqualValues(t, 1, resp.Admin.PendingCourses)
		}},
		{"lecturer", "lect", func(t *testing.T, resp *DashboardResponse) {
			require.NotNil(t, resp.Lecturer)
			assert.EqualValues(t, 1, resp.Lecturer.TotalCourses)
		}},
		{"student", "stud", func(t *testing.T, resp *DashboardResponse) {
			require.NotNil(t, resp.Student)
			require.NotNil(t, resp.Student.AverageScore)
			assert.Equal(t, 7.7, *resp.Student.AverageScore)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Get(ctx, tt.user)
			require.NoError(t, err)
			assert.Equal(t, env.store.roles[tt.user], resp.Role)
			tt.check(t, resp)
		})
	}
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 7.7, roundFloat(7.6666, 1))
	assert.Equal(t, 3.0, roundFloat(3, 2))
}
