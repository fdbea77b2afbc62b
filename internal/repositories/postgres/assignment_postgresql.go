package postgres

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var assignmentSortColumns = sortColumns{
	"due_date":   "assignments.due_date",
	"created_at": "assignments.created_at",
	"title":      "assignments.title",
	"max_score":  "assignments.max_score",
	"id":         "assignments.id",
}

func (a *AssignmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := pickDB(a.db, tx)
	if err := db.WithContext(ctx).Create(assignment).Error; err != nil {
		return handleDBError(err, "create assignment")
	}

	cache.InvalidateStats(ctx, a.cacheManager)
	return nil
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := pickDB(a.db, tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).Preload("Course").First(&assignment, id).Error; err != nil {
		return nil, handleDBError(err, "get assignment by id")
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := pickDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(assignment).
		Select("title", "description", "due_date", "max_score", "link_url", "updated_at").
		Updates(assignment)
	if result.Error != nil {
		return handleDBError(result.Error, "update assignment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update assignment")
	}

	cache.InvalidateStats(ctx, a.cacheManager)
	return nil
}

// Delete removes the assignment and its submissions
func (a *AssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := pickDB(a.db, tx)
	result := db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete assignment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete assignment")
	}

	cache.InvalidateStats(ctx, a.cacheManager)
	return nil
}

func (a *AssignmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	// an explicit empty course set matches nothing
	if filters.CourseIDs != nil && len(filters.CourseIDs) == 0 {
		return []*models.Assignment{}, 0, nil
	}

	db := pickDB(a.db, tx)
	var assignments []*models.Assignment
	var total int64

	query := db.WithContext(ctx).Model(&models.Assignment{})

	if filters.CourseID != nil {
		query = query.Where("assignments.course_id = ?", *filters.CourseID)
	}
	if len(filters.CourseIDs) > 0 {
		query = query.Where("assignments.course_id IN ?", filters.CourseIDs)
	}
	if filters.LecturerID != nil {
		query = query.
			Joins("JOIN courses ON courses.id = assignments.course_id").
			Where("courses.lecturer_id = ?", *filters.LecturerID)
	}
	if filters.DueAfter != nil {
		query = query.Where("(assignments.due_date IS NULL OR assignments.due_date > ?)", *filters.DueAfter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count assignments")
	}

	query = applyPaginationAndSort(query, assignmentSortColumns, "assignments.due_date", "ASC",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Course").Find(&assignments).Error; err != nil {
		return nil, 0, handleDBError(err, "list assignments")
	}
	return assignments, total, nil
}
