package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the counters relevant to the caller's role
func (s *dashboardService) Get(ctx context.Context, userID string) (*DashboardResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Getting dashboard", "user_id", userID, "role", role)

	response := &DashboardResponse{Role: role}
	switch role {
	case models.RoleAdmin:
		response.Admin, err = s.GetAdminStats(ctx)
	case models.RoleLecturer:
		response.Lecturer, err = s.GetLecturerStats(ctx, userID)
	default:
		response.Student, err = s.GetStudentStats(ctx, userID, s.now())
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (s *dashboardService) GetAdminStats(ctx context.Context) (*repositories.AdminStats, error) {
	stats, err := s.repo.Dashboard().GetAdminStats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) GetLecturerStats(ctx context.Context, lecturerID string) (*repositories.LecturerStats, error) {
	stats, err := s.repo.Dashboard().GetLecturerStats(ctx, nil, lecturerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lecturer stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) GetStudentStats(ctx context.Context, studentID string, now time.Time) (*repositories.StudentStats, error) {
	stats, err := s.repo.Dashboard().GetStudentStats(ctx, nil, studentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get student stats: %w", err)
	}
	if stats.AverageScore != nil {
		rounded := roundFloat(*stats.AverageScore, 1)
		stats.AverageScore = &rounded
	}
	return stats, nil
}

// ===== HELPER FUNCTIONS =====

func roundFloat(val float64, precision int) float64 {
	ratio := 1.0
	for i := 0; i < precision; i++ {
		ratio *= 10
	}
	return float64(int(val*ratio+0.5)) / ratio
}
