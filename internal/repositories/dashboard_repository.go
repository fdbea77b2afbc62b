package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardRepository interface for dashboard counters
type DashboardRepository interface {
	GetAdminStats(ctx context.Context, tx *gorm.DB) (*AdminStats, error)
	GetLecturerStats(ctx context.Context, tx *gorm.DB, lecturerID string) (*LecturerStats, error)
	GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string, now time.Time) (*StudentStats, error)
}
