package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	// UpdateStatus moves a course from one status to another, failing with ErrStaleState when it is no longer in from
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.CourseStatus) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	GetIDsByLecturer(ctx context.Context, tx *gorm.DB, lecturerID string) ([]uint, error)
	ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (*models.Enrollment, error)
	Exists(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error)

	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.EnrollmentStatus) error
	UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, progress int) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	// DeleteWithStatus removes the row only while it still has status
	DeleteWithStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EnrollmentStatus) error

	List(ctx context.Context, tx *gorm.DB, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)
	GetApprovedCourseIDs(ctx context.Context, tx *gorm.DB, studentID string) ([]uint, error)
	IsApproved(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error)
}
