package repositories

import (
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Status     *models.CourseStatus `json:"status"`
	LecturerID *string              `json:"lecturer_id"`
	// StudentID restricts to courses the student has an enrollment in
	StudentID          *string                   `json:"student_id"`
	EnrollmentStatuses []models.EnrollmentStatus `json:"enrollment_statuses"`
	Visibility         *CourseVisibility         `json:"-"`
	Semester           *string                   `json:"semester"`
	Year               *int                      `json:"year"`
	Query              string                    `json:"query"`
	Limit              int                       `json:"limit"`
	Offset             int                       `json:"offset"`
	SortBy             string                    `json:"sort_by"`    // "created_at", "code", "name", "year"
	SortOrder          string                    `json:"sort_order"` // "asc", "desc"
}

// CourseVisibility scopes course queries to what a user may read
type CourseVisibility struct {
	Role   models.UserRole
	UserID string
}

type EnrollmentFilters struct {
	CourseID   *uint                    `json:"course_id"`
	StudentID  *string                  `json:"student_id"`
	LecturerID *string                  `json:"lecturer_id"`
	Status     *models.EnrollmentStatus `json:"status"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	SortBy     string                   `json:"sort_by"`
	SortOrder  string                   `json:"sort_order"`
}

type AssignmentFilters struct {
	CourseID   *uint      `json:"course_id"`
	CourseIDs  []uint     `json:"course_ids"`
	LecturerID *string    `json:"lecturer_id"`
	DueAfter   *time.Time `json:"due_after"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
	SortBy     string     `json:"sort_by"` // "due_date", "created_at", "title"
	SortOrder  string     `json:"sort_order"`
}

type SubmissionFilters struct {
	AssignmentID *uint   `json:"assignment_id"`
	CourseID     *uint   `json:"course_id"`
	StudentID    *string `json:"student_id"`
	Graded       *bool   `json:"graded"`
	Limit        int     `json:"limit"`
	Offset       int     `json:"offset"`
	SortBy       string  `json:"sort_by"`
	SortOrder    string  `json:"sort_order"`
}

type AnnouncementFilters struct {
	Status     *models.AnnouncementStatus `json:"status"`
	CourseID   *uint                      `json:"course_id"`
	IsGlobal   *bool                      `json:"is_global"`
	CreatedBy  *string                    `json:"created_by"`
	Visibility *AnnouncementVisibility    `json:"-"`
	Limit      int                        `json:"limit"`
	Offset     int                        `json:"offset"`
	SortBy     string                     `json:"sort_by"`
	SortOrder  string                     `json:"sort_order"`
}

// AnnouncementVisibility scopes announcement queries to what a user may read.
// CourseIDs holds the approved enrollments of a student or the owned courses of a lecturer.
type AnnouncementVisibility struct {
	Role      models.UserRole
	UserID    string
	CourseIDs []uint
}

// ===== SHARED STATISTICS STRUCTS =====

type AdminStats struct {
	TotalStudents        int64 `json:"total_students"`
	TotalLecturers       int64 `json:"total_lecturers"`
	TotalCourses         int64 `json:"total_courses"`
	PendingCourses       int64 `json:"pending_courses"`
	PendingAnnouncements int64 `json:"pending_announcements"`
	PendingEnrollments   int64 `json:"pending_enrollments"`
	WithdrawalRequests   int64 `json:"withdrawal_requests"`
	TotalAssignments     int64 `json:"total_assignments"`
	UngradedSubmissions  int64 `json:"ungraded_submissions"`
}

type LecturerStats struct {
	TotalCourses        int64 `json:"total_courses"`
	ApprovedCourses     int64 `json:"approved_courses"`
	PendingEnrollments  int64 `json:"pending_enrollments"`
	WithdrawalRequests  int64 `json:"withdrawal_requests"`
	TotalStudents       int64 `json:"total_students"`
	TotalAssignments    int64 `json:"total_assignments"`
	UngradedSubmissions int64 `json:"ungraded_submissions"`
}

type StudentStats struct {
	ApprovedCourses    int64    `json:"approved_courses"`
	PendingEnrollments int64    `json:"pending_enrollments"`
	OpenAssignments    int64    `json:"open_assignments"`
	SubmittedCount     int64    `json:"submitted_count"`
	GradedSubmissions  int64    `json:"graded_submissions"`
	AverageScore       *float64 `json:"average_score"`
}

// GradebookEntry is one (student, assignment) cell of a course gradebook
type GradebookEntry struct {
	StudentID    string   `json:"student_id"`
	AssignmentID uint     `json:"assignment_id"`
	Score        *float64 `json:"score"`
}
