package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"gorm.io/gorm"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string           // Search query for name or email
	Role   *models.UserRole // Restrict to one role
	Limit  int              // Page size
	Offset int              // Offset for pagination
}

// NewIdentity carries the data needed to create an account in the identity provider.
// The password is forwarded once and never persisted by this service.
type NewIdentity struct {
	Email    string
	Password string
	FullName string
}

// ProfileUpdate holds the mutable profile fields
type ProfileUpdate struct {
	FullName  *string
	AvatarURL *string
}

// UserRepository reads and mutates user profiles held by the identity provider
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	Search(ctx context.Context, query string, filters UserFilters) ([]*models.User, int64, error)

	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)

	// Privileged mutations
	Create(ctx context.Context, identity NewIdentity) (*models.User, error)
	Delete(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, newPassword string) error
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error)

	// InvalidateCache drops cached copies of a user after a role or profile change
	InvalidateCache(ctx context.Context, id string)
}

// RoleRepository stores the one-role-per-user mapping
type RoleRepository interface {
	GetRole(ctx context.Context, tx *gorm.DB, userID string) (models.UserRole, error)
	GetRoles(ctx context.Context, tx *gorm.DB, userIDs []string) (map[string]models.UserRole, error)
	SetRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) error
	// EnsureRole inserts role when the user has none and returns the stored role
	EnsureRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (models.UserRole, error)
	Delete(ctx context.Context, tx *gorm.DB, userID string) error
	ListUserIDs(ctx context.Context, tx *gorm.DB, role models.UserRole, limit, offset int) ([]string, int64, error)
	CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error)
}
