package postgres

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RolePostgreSQL struct {
	db *gorm.DB
}

func NewRolePostgreSQL(db *gorm.DB) repositories.RoleRepository {
	return &RolePostgreSQL{db: db}
}

func (r *RolePostgreSQL) GetRole(ctx context.Context, tx *gorm.DB, userID string) (models.UserRole, error) {
	db := pickDB(r.db, tx)
	var assignment models.UserRoleAssignment
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&assignment).Error; err != nil {
		return "", handleDBError(err, "get user role")
	}
	return assignment.Role, nil
}

func (r *RolePostgreSQL) GetRoles(ctx context.Context, tx *gorm.DB, userIDs []string) (map[string]models.UserRole, error) {
	roles := make(map[string]models.UserRole, len(userIDs))
	if len(userIDs) == 0 {
		return roles, nil
	}

	db := pickDB(r.db, tx)
	var rows []models.UserRoleAssignment
	if err := db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, handleDBError(err, "get user roles")
	}
	for _, row := range rows {
		roles[row.UserID] = row.Role
	}
	return roles, nil
}

// SetRole creates or replaces the user's role
func (r *RolePostgreSQL) SetRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) error {
	db := pickDB(r.db, tx)
	row := models.UserRoleAssignment{UserID: userID, Role: role}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(&row).Error
	return handleDBError(err, "set user role")
}

func (r *RolePostgreSQL) EnsureRole(ctx context.Context, tx *gorm.DB, userID string, role models.UserRole) (models.UserRole, error) {
	db := pickDB(r.db, tx)
	row := models.UserRoleAssignment{UserID: userID, Role: role}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return "", handleDBError(err, "ensure user role")
	}
	return r.GetRole(ctx, tx, userID)
}

func (r *RolePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, userID string) error {
	db := pickDB(r.db, tx)
	err := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserRoleAssignment{}).Error
	return handleDBError(err, "delete user role")
}

func (r *RolePostgreSQL) ListUserIDs(ctx context.Context, tx *gorm.DB, role models.UserRole, limit, offset int) ([]string, int64, error) {
	db := pickDB(r.db, tx)
	var ids []string
	var total int64

	query := db.WithContext(ctx).Model(&models.UserRoleAssignment{}).Where("role = ?", role)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count users by role")
	}

	query = query.Order("user_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Pluck("user_id", &ids).Error; err != nil {
		return nil, 0, handleDBError(err, "list users by role")
	}
	return ids, total, nil
}

func (r *RolePostgreSQL) CountByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) (int64, error) {
	db := pickDB(r.db, tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.UserRoleAssignment{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count users by role")
	}
	return count, nil
}
