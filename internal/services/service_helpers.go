package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// withTx runs fn in a database transaction. Without a database fn gets a nil tx,
// which makes every repository call use its own connection.
func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// getUserRole returns the stored role, falling back to the default role
func getUserRole(ctx context.Context, repo repositories.Repository, userID string) (models.UserRole, error) {
	if userID == "" {
		return "", ErrUnauthorized
	}
	role, err := repo.Role().GetRole(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return models.DefaultRole, nil
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}
	return role, nil
}

// publishEvent is fire-and-forget: failures are logged and never returned
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, data interface{}) {
	if publisher == nil {
		return
	}
	event, err := events.NewEvent(eventType, data)
	if err != nil {
		logger.Error("Failed to build event", "type", eventType, "error", err)
		return
	}
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Warn("Failed to publish event", "type", eventType, "event_id", event.ID, "error", err)
	}
}

// normalizePage clamps limit/offset and returns the 1-based page number
func normalizePage(limit, offset *int) int {
	if *limit <= 0 {
		*limit = defaultPageSize
	}
	if *limit > maxPageSize {
		*limit = maxPageSize
	}
	if *offset < 0 {
		*offset = 0
	}
	page := (*offset)/(*limit) + 1
	return page
}

func mapNotFound(err error, sentinel error, op string) error {
	if repositories.IsNotFoundError(err) {
		return sentinel
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// mapStale turns a lost compare-and-set into ErrStateChanged
func mapStale(err error, notFound error, op string) error {
	if repositories.IsStaleStateError(err) {
		return ErrStateChanged
	}
	return mapNotFound(err, notFound, op)
}

func isStaff(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleLecturer
}

// canManageCourse reports whether the user administers the course: admin or its lecturer
func canManageCourse(role models.UserRole, userID string, course *models.Course) bool {
	if role == models.RoleAdmin {
		return true
	}
	return role == models.RoleLecturer && course.IsOwnedBy(userID)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
