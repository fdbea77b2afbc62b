package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters AssignmentFilters) ([]*models.Assignment, int64, error)
}

type SubmissionRepository interface {
	// Upsert inserts the submission or replaces file_url, content and submitted_at of the existing one
	Upsert(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.Submission, error)
	Grade(ctx context.Context, tx *gorm.DB, id uint, score float64, feedback *string, graderID string, gradedAt time.Time) error
	List(ctx context.Context, tx *gorm.DB, filters SubmissionFilters) ([]*models.Submission, int64, error)
	// GetByStudentForAssignments returns the student's submissions keyed by assignment ID
	GetByStudentForAssignments(ctx context.Context, tx *gorm.DB, studentID string, assignmentIDs []uint) (map[uint]*models.Submission, error)
	GetGradebook(ctx context.Context, tx *gorm.DB, courseID uint) ([]GradebookEntry, error)
}
