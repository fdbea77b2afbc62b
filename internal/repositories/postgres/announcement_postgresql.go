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

type AnnouncementPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAnnouncementPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AnnouncementRepository {
	return &AnnouncementPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var announcementSortColumns = sortColumns{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
	"status":     "status",
	"id":         "id",
}

type announcementPage struct {
	Items []*models.Announcement `json:"items"`
	Total int64                  `json:"total"`
}

func (a *AnnouncementPostgreSQL) Create(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error {
	db := pickDB(a.db, tx)
	if err := db.WithContext(ctx).Create(announcement).Error; err != nil {
		return handleDBError(err, "create announcement")
	}

	cache.InvalidateAnnouncements(ctx, a.cacheManager)
	return nil
}

func (a *AnnouncementPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Announcement, error) {
	db := pickDB(a.db, tx)
	var announcement models.Announcement
	if err := db.WithContext(ctx).Preload("Course").First(&announcement, id).Error; err != nil {
		return nil, handleDBError(err, "get announcement by id")
	}
	return &announcement, nil
}

// Update writes content, scope and status together since a scope change may reset the status
func (a *AnnouncementPostgreSQL) Update(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error {
	db := pickDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(announcement).
		Select("title", "content", "course_id", "is_global", "status", "updated_at").
		Updates(announcement)
	if result.Error != nil {
		return handleDBError(result.Error, "update announcement")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update announcement")
	}

	cache.InvalidateAnnouncements(ctx, a.cacheManager)
	return nil
}

func (a *AnnouncementPostgreSQL) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.AnnouncementStatus) error {
	db := pickDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Announcement{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if err := checkRowsAffected(result, "update announcement status"); err != nil {
		return err
	}

	cache.InvalidateAnnouncements(ctx, a.cacheManager)
	return nil
}

func (a *AnnouncementPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := pickDB(a.db, tx)
	result := db.WithContext(ctx).Delete(&models.Announcement{}, id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete announcement")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete announcement")
	}

	cache.InvalidateAnnouncements(ctx, a.cacheManager)
	return nil
}

// List returns announcements newest first. The unfiltered student feed is cached per student.
func (a *AnnouncementPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AnnouncementFilters) ([]*models.Announcement, int64, error) {
	if tx == nil && isPlainStudentFeed(filters) {
		var page announcementPage
		cacheKey := fmt.Sprintf("feed:student:%s:%d:%d", filters.Visibility.UserID, filters.Limit, filters.Offset)
		err := a.cacheManager.Announcement.CacheOrExecute(ctx, cacheKey, &page, cache.AnnouncementCacheConfig.TTL, func() (interface{}, error) {
			items, total, err := a.list(ctx, nil, filters)
			if err != nil {
				return nil, err
			}
			return announcementPage{Items: items, Total: total}, nil
		})
		if err != nil {
			return nil, 0, err
		}
		return page.Items, page.Total, nil
	}

	return a.list(ctx, tx, filters)
}

func (a *AnnouncementPostgreSQL) list(ctx context.Context, tx *gorm.DB, filters repositories.AnnouncementFilters) ([]*models.Announcement, int64, error) {
	db := pickDB(a.db, tx)
	var announcements []*models.Announcement
	var total int64

	query := applyAnnouncementVisibility(db.WithContext(ctx).Model(&models.Announcement{}), filters.Visibility)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.IsGlobal != nil {
		query = query.Where("is_global = ?", *filters.IsGlobal)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count announcements")
	}

	query = applyPaginationAndSort(query, announcementSortColumns, "created_at", "DESC",
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Course").Find(&announcements).Error; err != nil {
		return nil, 0, handleDBError(err, "list announcements")
	}
	return announcements, total, nil
}

// applyAnnouncementVisibility restricts the query to rows the user may read.
// Students see approved rows that are global or belong to a course they are approved in.
// Lecturers see approved global rows, rows in their own courses and anything they wrote.
func applyAnnouncementVisibility(query *gorm.DB, v *repositories.AnnouncementVisibility) *gorm.DB {
	if v == nil || v.Role == models.RoleAdmin {
		return query
	}

	if v.Role == models.RoleLecturer {
		if len(v.CourseIDs) == 0 {
			return query.Where("((is_global = ? AND status = ?) OR created_by = ?)",
				true, models.AnnouncementApproved, v.UserID)
		}
		return query.Where("((is_global = ? AND (status = ? OR created_by = ?)) OR (is_global = ? AND (course_id IN ? OR created_by = ?)))",
			true, models.AnnouncementApproved, v.UserID, false, v.CourseIDs, v.UserID)
	}

	query = query.Where("status = ?", models.AnnouncementApproved)
	if len(v.CourseIDs) == 0 {
		return query.Where("is_global = ?", true)
	}
	return query.Where("(is_global = ? OR course_id IN ?)", true, v.CourseIDs)
}

func isPlainStudentFeed(filters repositories.AnnouncementFilters) bool {
	return filters.Visibility != nil &&
		filters.Visibility.Role == models.RoleStudent &&
		filters.Status == nil &&
		filters.CourseID == nil &&
		filters.IsGlobal == nil &&
		filters.CreatedBy == nil &&
		filters.SortBy == "" &&
		filters.SortOrder == ""
}
