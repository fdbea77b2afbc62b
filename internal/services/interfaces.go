package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type UpdateCourseStatusRequest = validator.CourseStatusRequest

type CourseResponse struct {
	*models.Course
	Lecturer  *models.User `json:"lecturer,omitempty"`
	CanEdit   bool         `json:"can_edit"`
	CanDelete bool         `json:"can_delete"`
	CanEnroll bool         `json:"can_enroll"`
	// MyEnrollment is the caller's own enrollment when the caller is a student
	MyEnrollment *models.Enrollment `json:"my_enrollment,omitempty"`
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

// ===== ENROLLMENT RELATED DTOs =====

type EnrollRequest = validator.EnrollRequest
type RegisterRequest = validator.RegisterRequest
type EnrollmentActionRequest = validator.EnrollmentActionRequest
type UpdateProgressRequest = validator.ProgressRequest

type EnrollmentListResponse struct {
	Enrollments []*models.Enrollment `json:"enrollments"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	Size        int                  `json:"size"`
}

// ===== COURSEWORK RELATED DTOs =====

type CreateAssignmentRequest = validator.AssignmentCreateRequest
type UpdateAssignmentRequest = validator.AssignmentUpdateRequest
type SubmitRequest = validator.SubmitRequest
type GradeRequest = validator.GradeRequest

type AssignmentResponse struct {
	*models.Assignment
	CanEdit      bool               `json:"can_edit"`
	IsOverdue    bool               `json:"is_overdue"`
	MySubmission *models.Submission `json:"my_submission,omitempty"`
}

type AssignmentListResponse struct {
	Assignments []*AssignmentResponse `json:"assignments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

type SubmissionListResponse struct {
	Submissions []*models.Submission `json:"submissions"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	Size        int                  `json:"size"`
}

// ===== ANNOUNCEMENT RELATED DTOs =====

type CreateAnnouncementRequest = validator.AnnouncementCreateRequest
type UpdateAnnouncementRequest = validator.AnnouncementUpdateRequest
type UpdateAnnouncementStatusRequest = validator.AnnouncementStatusRequest

type AnnouncementResponse struct {
	*models.Announcement
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type AnnouncementListResponse struct {
	Announcements []*AnnouncementResponse `json:"announcements"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	Size          int                     `json:"size"`
}

// ===== ACCOUNT / USER RELATED DTOs =====

type CreateAccountRequest = validator.CreateAccountRequest
type ResetPasswordRequest = validator.ResetPasswordRequest
type UpdateProfileRequest = validator.UpdateProfileRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type UpdateRoleRequest = validator.UpdateRoleRequest

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// ===== DASHBOARD / EXPORT DTOs =====

type DashboardResponse struct {
	Role     models.UserRole             `json:"role"`
	Admin    *repositories.AdminStats    `json:"admin,omitempty"`
	Lecturer *repositories.LecturerStats `json:"lecturer,omitempty"`
	Student  *repositories.StudentStats  `json:"student,omitempty"`
}

// ExportFile is a generated spreadsheet ready to be streamed
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, userID string) (*CourseResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*CourseResponse, error)
	Update(ctx context.Context, id uint, req *UpdateCourseRequest, userID string) (*CourseResponse, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateCourseStatusRequest, userID string) (*CourseResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	// List is role scoped. A lecturer gets their own courses in any status plus the approved
	// catalog; the lecturer_id filter narrows it to their own.
	List(ctx context.Context, filters repositories.CourseFilters, userID string) (*CourseListResponse, error)

	// Permission checks
	CanAccess(ctx context.Context, id uint, userID string) (bool, error)
	CanManage(ctx context.Context, id uint, userID string) (bool, error)
}

type EnrollmentService interface {
	// Register is a student self-registration, created pending
	Register(ctx context.Context, courseID uint, studentID string) (*models.Enrollment, error)
	// Enroll is an admin manual enrollment, created approved
	Enroll(ctx context.Context, req *EnrollRequest, userID string) (*models.Enrollment, error)

	Transition(ctx context.Context, id uint, action models.EnrollmentAction, userID string) (*models.Enrollment, error)
	Approve(ctx context.Context, id uint, userID string) (*models.Enrollment, error)
	Reject(ctx context.Context, id uint, userID string) (*models.Enrollment, error)
	RequestWithdrawal(ctx context.Context, id uint, userID string) (*models.Enrollment, error)
	ApproveWithdrawal(ctx context.Context, id uint, userID string) error
	RejectWithdrawal(ctx context.Context, id uint, userID string) (*models.Enrollment, error)

	Unenroll(ctx context.Context, id uint, userID string) error
	UpdateProgress(ctx context.Context, id uint, progress int, userID string) (*models.Enrollment, error)

	GetByID(ctx context.Context, id uint, userID string) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error)
	List(ctx context.Context, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error)
}

type AssignmentService interface {
	Create(ctx context.Context, req *CreateAssignmentRequest, userID string) (*AssignmentResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*AssignmentResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAssignmentRequest, userID string) (*AssignmentResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	ListByCourse(ctx context.Context, courseID uint, filters repositories.AssignmentFilters, userID string) (*AssignmentListResponse, error)
	// StudentFeed lists assignments across the student's approved courses with their own submission attached
	StudentFeed(ctx context.Context, filters repositories.AssignmentFilters, studentID string) (*AssignmentListResponse, error)

	Submit(ctx context.Context, assignmentID uint, req *SubmitRequest, studentID string) (*models.Submission, error)
	Grade(ctx context.Context, submissionID uint, req *GradeRequest, userID string) (*models.Submission, error)
	GetSubmission(ctx context.Context, id uint, userID string) (*models.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters, userID string) (*SubmissionListResponse, error)
	ListMySubmissions(ctx context.Context, filters repositories.SubmissionFilters, studentID string) (*SubmissionListResponse, error)
}

type AnnouncementService interface {
	Create(ctx context.Context, req *CreateAnnouncementRequest, userID string) (*AnnouncementResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*AnnouncementResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAnnouncementRequest, userID string) (*AnnouncementResponse, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateAnnouncementStatusRequest, userID string) (*AnnouncementResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.AnnouncementFilters, userID string) (*AnnouncementListResponse, error)
}

// AccountService holds the privileged account operations. Every method requires an admin caller.
type AccountService interface {
	CreateUser(ctx context.Context, req *CreateAccountRequest, actorID string) (*models.User, error)
	DeleteUser(ctx context.Context, userID, actorID string) error
	ResetPassword(ctx context.Context, userID string, req *ResetPasswordRequest, actorID string) (*models.User, error)
}

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error

	GetByID(ctx context.Context, id, actorID string) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters, actorID string) (*UserListResponse, error)
	Search(ctx context.Context, query string, filters repositories.UserFilters, actorID string) (*UserListResponse, error)
	UpdateRole(ctx context.Context, id string, req *UpdateRoleRequest, actorID string) (*models.User, error)
}

type DashboardService interface {
	Get(ctx context.Context, userID string) (*DashboardResponse, error)
	GetAdminStats(ctx context.Context) (*repositories.AdminStats, error)
	GetLecturerStats(ctx context.Context, lecturerID string) (*repositories.LecturerStats, error)
	GetStudentStats(ctx context.Context, studentID string, now time.Time) (*repositories.StudentStats, error)
}

type ImportExportService interface {
	ExportGradebook(ctx context.Context, courseID uint, userID string) (*ExportFile, error)
	ExportRoster(ctx context.Context, courseID uint, userID string) (*ExportFile, error)
}

type ServiceManager interface {
	// Core service getters
	Course() CourseService
	Enrollment() EnrollmentService
	Assignment() AssignmentService
	Announcement() AnnouncementService
	Account() AccountService
	User() UserService
	Dashboard() DashboardService

	// Additional service getters
	ImportExport() ImportExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
