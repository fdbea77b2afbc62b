package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var courseSortColumns = sortColumns{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"code":       "code",
	"name":       "name",
	"year":       "year",
	"status":     "status",
	"id":         "id",
}

// ===== BASIC CRUD OPERATIONS =====

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := pickDB(c.db, tx)
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return handleDBError(err, "create course")
	}

	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "list:*")
	cache.InvalidateStats(ctx, c.cacheManager)
	return nil
}

// GetByID is served from cache outside transactions
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	if tx != nil {
		return c.getByIDFromDB(ctx, tx, id)
	}

	var course models.Course
	cacheKey := fmt.Sprintf("id:%d", id)
	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		return c.getByIDFromDB(ctx, nil, id)
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *CoursePostgreSQL) getByIDFromDB(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	db := pickDB(c.db, tx)
	var course models.Course
	if err := db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, handleDBError(err, "get course by id")
	}
	return &course, nil
}

// Update writes the editable columns; status changes go through UpdateStatus
func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	db := pickDB(c.db, tx)
	result := db.WithContext(ctx).
		Model(course).
		Select("code", "name", "description", "semester", "year", "lecturer_id", "color", "schedule", "updated_at").
		Updates(course)
	if result.Error != nil {
		return handleDBError(result.Error, "update course")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update course")
	}

	cache.InvalidateCourse(ctx, c.cacheManager, course.ID)
	return nil
}

func (c *CoursePostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.CourseStatus) error {
	db := pickDB(c.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if err := checkRowsAffected(result, "update course status"); err != nil {
		return err
	}

	cache.InvalidateCourse(ctx, c.cacheManager, id)
	return nil
}

// Delete removes the course; enrollments, assignments and course announcements go with it
func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := pickDB(c.db, tx)
	result := db.WithContext(ctx).Delete(&models.Course{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete course")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete course")
	}

	cache.InvalidateCourse(ctx, c.cacheManager, id)
	cache.InvalidateAnnouncements(ctx, c.cacheManager)
	return nil
}

// ===== QUERY OPERATIONS =====

// List pages through courses. Visibility scopes the rows: admins see every course,
// students see approved ones, and lecturers see their own courses in any status plus the
// approved catalog rather than their own courses only. Lecturers pass LecturerID to get just theirs.
func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	db := pickDB(c.db, tx)
	var courses []*models.Course
	var total int64

	query := c.applyFilters(db.WithContext(ctx).Model(&models.Course{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count courses")
	}

	query = applyPaginationAndSort(query, courseSortColumns, "created_at", "DESC",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, handleDBError(err, "list courses")
	}
	return courses, total, nil
}

func (c *CoursePostgreSQL) GetIDsByLecturer(ctx context.Context, tx *gorm.DB, lecturerID string) ([]uint, error) {
	db := pickDB(c.db, tx)
	var ids []uint
	if err := db.WithContext(ctx).
		Model(&models.Course{}).
		Where("lecturer_id = ?", lecturerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, handleDBError(err, "get course ids by lecturer")
	}
	return ids, nil
}

func (c *CoursePostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	cacheKey := fmt.Sprintf("course:%d", id)
	var (
		gen    int64
		genErr = cache.ErrCacheNotAvailable
	)
	if tx == nil {
		var exists bool
		if err := c.cacheManager.Exists.Get(ctx, cacheKey, &exists); err == nil {
			return exists, nil
		}
		gen, genErr = c.cacheManager.Exists.Generation(ctx)
	}

	db := pickDB(c.db, tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, handleDBError(err, "check course exists")
	}

	exists := count > 0
	if exists && genErr == nil {
		_ = c.cacheManager.Exists.SetAt(ctx, cacheKey, exists, cache.ExistsCacheConfig.TTL, gen)
	}
	return exists, nil
}

// ===== HELPER METHODS =====

func (c *CoursePostgreSQL) applyFilters(query *gorm.DB, filters repositories.CourseFilters) *gorm.DB {
	if filters.Visibility != nil {
		switch filters.Visibility.Role {
		case models.RoleAdmin:
		case models.RoleLecturer:
			query = query.Where("(lecturer_id = ? OR status = ?)", filters.Visibility.UserID, models.CourseStatusApproved)
		default:
			query = query.Where("status = ?", models.CourseStatusApproved)
		}
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.LecturerID != nil {
		query = query.Where("lecturer_id = ?", *filters.LecturerID)
	}
	if filters.StudentID != nil {
		sub := c.db.Model(&models.Enrollment{}).Select("course_id").Where("student_id = ?", *filters.StudentID)
		if len(filters.EnrollmentStatuses) > 0 {
			sub = sub.Where("status IN ?", filters.EnrollmentStatuses)
		}
		query = query.Where("id IN (?)", sub)
	}
	if filters.Semester != nil {
		query = query.Where("semester = ?", *filters.Semester)
	}
	if filters.Year != nil {
		query = query.Where("year = ?", *filters.Year)
	}
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("(code ILIKE ? OR name ILIKE ?)", like, like)
	}
	return query
}
