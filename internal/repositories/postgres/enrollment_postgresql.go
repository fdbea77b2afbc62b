package postgres

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var enrollmentSortColumns = sortColumns{
	"enrolled_at": "enrollments.enrolled_at",
	"updated_at":  "enrollments.updated_at",
	"status":      "enrollments.status",
	"progress":    "enrollments.progress",
	"id":          "enrollments.id",
}

func (e *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := pickDB(e.db, tx)
	if err := db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return handleDBError(err, "create enrollment")
	}

	e.invalidate(ctx)
	return nil
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	db := pickDB(e.db, tx)
	var enrollment models.Enrollment
	if err := db.WithContext(ctx).Preload("Course").First(&enrollment, id).Error; err != nil {
		return nil, handleDBError(err, "get enrollment by id")
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (*models.Enrollment, error) {
	db := pickDB(e.db, tx)
	var enrollment models.Enrollment
	if err := db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&enrollment).Error; err != nil {
		return nil, handleDBError(err, "get enrollment by course and student")
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	db := pickDB(e.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check enrollment exists")
	}
	return count > 0, nil
}

func (e *EnrollmentPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.EnrollmentStatus) error {
	db := pickDB(e.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if err := checkRowsAffected(result, "update enrollment status"); err != nil {
		return err
	}

	e.invalidate(ctx)
	return nil
}

func (e *EnrollmentPostgreSQL) UpdateProgress(ctx context.Context, tx *gorm.DB, id uint, progress int) error {
	db := pickDB(e.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		Update("progress", progress)
	if result.Error != nil {
		return handleDBError(result.Error, "update enrollment progress")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update enrollment progress")
	}
	return nil
}

func (e *EnrollmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := pickDB(e.db, tx)
	result := db.WithContext(ctx).Delete(&models.Enrollment{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete enrollment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete enrollment")
	}

	e.invalidate(ctx)
	return nil
}

func (e *EnrollmentPostgreSQL) DeleteWithStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EnrollmentStatus) error {
	db := pickDB(e.db, tx)
	result := db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.Enrollment{})
	if err := checkRowsAffected(result, "delete enrollment"); err != nil {
		return err
	}

	e.invalidate(ctx)
	return nil
}

func (e *EnrollmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	db := pickDB(e.db, tx)
	var enrollments []*models.Enrollment
	var total int64

	query := db.WithContext(ctx).Model(&models.Enrollment{})

	if filters.CourseID != nil {
		query = query.Where("enrollments.course_id = ?", *filters.CourseID)
	}
	if filters.StudentID != nil {
		query = query.Where("enrollments.student_id = ?", *filters.StudentID)
	}
	if filters.Status != nil {
		query = query.Where("enrollments.status = ?", *filters.Status)
	}
	if filters.LecturerID != nil {
		query = query.
			Joins("JOIN courses ON courses.id = enrollments.course_id").
			Where("courses.lecturer_id = ?", *filters.LecturerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count enrollments")
	}

	query = applyPaginationAndSort(query, enrollmentSortColumns, "enrollments.enrolled_at", "DESC",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Course").Find(&enrollments).Error; err != nil {
		return nil, 0, handleDBError(err, "list enrollments")
	}
	return enrollments, total, nil
}

func (e *EnrollmentPostgreSQL) GetApprovedCourseIDs(ctx context.Context, tx *gorm.DB, studentID string) ([]uint, error) {
	db := pickDB(e.db, tx)
	var ids []uint
	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND status = ?", studentID, models.EnrollmentApproved).
		Pluck("course_id", &ids).Error; err != nil {
		return nil, handleDBError(err, "get approved course ids")
	}
	return ids, nil
}

func (e *EnrollmentPostgreSQL) IsApproved(ctx context.Context, tx *gorm.DB, courseID uint, studentID string) (bool, error) {
	db := pickDB(e.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, models.EnrollmentApproved).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check approved enrollment")
	}
	return count > 0, nil
}

// invalidate drops counters and announcement feeds that depend on enrollment state
func (e *EnrollmentPostgreSQL) invalidate(ctx context.Context) {
	cache.InvalidateStats(ctx, e.cacheManager)
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Announcement, "feed:student:*")
}
