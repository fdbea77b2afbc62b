package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var submissionSortColumns = sortColumns{
	"submitted_at": "submissions.submitted_at",
	"graded_at":    "submissions.graded_at",
	"score":        "submissions.score",
	"id":           "submissions.id",
}

// Upsert writes the submission in one statement on the (assignment_id, student_id) unique index.
// Grading columns are left untouched on conflict. The stored row is loaded back into submission.
func (s *SubmissionPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := pickDB(s.db, tx)
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_url", "content", "submitted_at", "updated_at"}),
		}).
		Create(submission).Error
	if err != nil {
		return handleDBError(err, "upsert submission")
	}

	if err := db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", submission.AssignmentID, submission.StudentID).
		First(submission).Error; err != nil {
		return handleDBError(err, "reload submission")
	}

	cache.InvalidateStats(ctx, s.cacheManager)
	return nil
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	db := pickDB(s.db, tx)
	var submission models.Submission
	if err := db.WithContext(ctx).
		Preload("Assignment").
		Preload("Assignment.Course").
		First(&submission, id).Error; err != nil {
		return nil, handleDBError(err, "get submission by id")
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID uint, studentID string) (*models.Submission, error) {
	db := pickDB(s.db, tx)
	var submission models.Submission
	if err := db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error; err != nil {
		return nil, handleDBError(err, "get submission by assignment and student")
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Grade(ctx context.Context, tx *gorm.DB, id uint, score float64, feedback *string, graderID string, gradedAt time.Time) error {
	db := pickDB(s.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":      score,
			"feedback":   feedback,
			"graded_at":  gradedAt,
			"graded_by":  graderID,
			"updated_at": gradedAt,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "grade submission")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "grade submission")
	}

	cache.InvalidateStats(ctx, s.cacheManager)
	return nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	db := pickDB(s.db, tx)
	var submissions []*models.Submission
	var total int64

	query := db.WithContext(ctx).Model(&models.Submission{})

	if filters.AssignmentID != nil {
		query = query.Where("submissions.assignment_id = ?", *filters.AssignmentID)
	}
	if filters.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filters.StudentID)
	}
	if filters.CourseID != nil {
		query = query.
			Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
			Where("assignments.course_id = ?", *filters.CourseID)
	}
	if filters.Graded != nil {
		if *filters.Graded {
			query = query.Where("submissions.score IS NOT NULL")
		} else {
			query = query.Where("submissions.score IS NULL")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count submissions")
	}

	query = applyPaginationAndSort(query, submissionSortColumns, "submissions.submitted_at", "DESC",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Assignment").Find(&submissions).Error; err != nil {
		return nil, 0, handleDBError(err, "list submissions")
	}
	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) GetByStudentForAssignments(ctx context.Context, tx *gorm.DB, studentID string, assignmentIDs []uint) (map[uint]*models.Submission, error) {
	result := make(map[uint]*models.Submission, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return result, nil
	}

	db := pickDB(s.db, tx)
	var submissions []*models.Submission
	if err := db.WithContext(ctx).
		Where("student_id = ? AND assignment_id IN ?", studentID, assignmentIDs).
		Find(&submissions).Error; err != nil {
		return nil, handleDBError(err, "get student submissions")
	}

	for _, sub := range submissions {
		result[sub.AssignmentID] = sub
	}
	return result, nil
}

// GetGradebook returns every submission score of the course; missing cells are ungraded or unsubmitted
func (s *SubmissionPostgreSQL) GetGradebook(ctx context.Context, tx *gorm.DB, courseID uint) ([]repositories.GradebookEntry, error) {
	db := pickDB(s.db, tx)
	var entries []repositories.GradebookEntry
	if err := db.WithContext(ctx).
		Table("submissions").
		Select("submissions.student_id, submissions.assignment_id, submissions.score").
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("assignments.course_id = ?", courseID).
		Scan(&entries).Error; err != nil {
		return nil, handleDBError(err, "get gradebook")
	}
	return entries, nil
}
