package validator

import (
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// CourseCreateRequest represents the request structure for creating courses
type CourseCreateRequest struct {
	Code        string                `json:"code" validate:"required,course_code"`
	Name        string                `json:"name" validate:"required,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	Semester    string                `json:"semester" validate:"omitempty,max=50"`
	Year        *int                  `json:"year" validate:"omitempty,min=2000,max=2100"`
	LecturerID  *string               `json:"lecturer_id" validate:"omitempty,max=255"`
	Color       *string               `json:"color" validate:"omitempty,hex_color"`
	Schedule    []models.ScheduleSlot `json:"schedule" validate:"omitempty,max=30,dive"`
}

// CourseUpdateRequest changes only the fields that are set. A non-nil Schedule replaces the whole list.
type CourseUpdateRequest struct {
	Code        *string               `json:"code" validate:"omitempty,course_code"`
	Name        *string               `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	Semester    *string               `json:"semester" validate:"omitempty,max=50"`
	Year        *int                  `json:"year" validate:"omitempty,min=2000,max=2100"`
	LecturerID  *string               `json:"lecturer_id" validate:"omitempty,max=255"`
	Color       *string               `json:"color" validate:"omitempty,hex_color"`
	Schedule    []models.ScheduleSlot `json:"schedule" validate:"omitempty,max=30,dive"`
}

type CourseStatusRequest struct {
	Status models.CourseStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// EnrollRequest is an admin manual enrollment
type EnrollRequest struct {
	CourseID  uint   `json:"course_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required,max=255"`
}

// RegisterRequest is a student self-registration
type RegisterRequest struct {
	CourseID uint `json:"course_id" validate:"required"`
}

type EnrollmentActionRequest struct {
	Action models.EnrollmentAction `json:"action" validate:"required,oneof=approve reject request_withdrawal approve_withdrawal reject_withdrawal"`
}

type ProgressRequest struct {
	Progress *int `json:"progress" validate:"required,min=0,max=100"`
}

type AssignmentCreateRequest struct {
	CourseID    uint       `json:"course_id" validate:"required"`
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date"`
	MaxScore    *int       `json:"max_score" validate:"omitempty,min=1,max=1000"`
	LinkURL     *string    `json:"link_url" validate:"omitempty,url,max=1000"`
}

type AssignmentUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	MaxScore    *int       `json:"max_score" validate:"omitempty,min=1,max=1000"`
	LinkURL     *string    `json:"link_url" validate:"omitempty,url,max=1000"`
}

type SubmitRequest struct {
	FileURL string  `json:"file_url" validate:"required,url,max=1000"`
	Content *string `json:"content" validate:"omitempty,max=10000"`
}

type GradeRequest struct {
	Score    *float64 `json:"score" validate:"required"`
	Feedback *string  `json:"feedback" validate:"omitempty,max=2000"`
}

type AnnouncementCreateRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Content  string `json:"content" validate:"required,max=10000"`
	CourseID *uint  `json:"course_id"`
	IsGlobal bool   `json:"is_global"`
}

type AnnouncementUpdateRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string `json:"content" validate:"omitempty,min=1,max=10000"`
	CourseID *uint   `json:"course_id"`
	IsGlobal *bool   `json:"is_global"`
}

type AnnouncementStatusRequest struct {
	Status models.AnnouncementStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// CreateAccountRequest is the admin create-user body
type CreateAccountRequest struct {
	Email    string          `json:"email" validate:"required,email,max=255"`
	Password string          `json:"password" validate:"required,password,max=128"`
	FullName string          `json:"full_name" validate:"required,min=2,max=100"`
	Role     models.UserRole `json:"role" validate:"required,user_role"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,password,max=128"`
}

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=2,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=1000"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password,max=128,nefield=CurrentPassword"`
}

type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}
