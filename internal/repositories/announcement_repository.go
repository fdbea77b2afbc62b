package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

type AnnouncementRepository interface {
	Create(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Announcement, error)
	Update(ctx context.Context, tx *gorm.DB, announcement *models.Announcement) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, from, to models.AnnouncementStatus) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters AnnouncementFilters) ([]*models.Announcement, int64, error)
}
