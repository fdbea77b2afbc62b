package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== OWN PROFILE =====

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "get profile")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		req.FullName = &trimmed
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().UpdateProfile(ctx, userID, repositories.ProfileUpdate{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "update profile")
	}

	s.logger.Info("Profile updated", "user_id", userID)
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := s.repo.User().ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return mapNotFound(err, ErrUserNotFound, "change password")
	}
	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

// ===== DIRECTORY =====

func (s *userService) GetByID(ctx context.Context, id, actorID string) (*models.User, error) {
	if id == actorID {
		return s.GetProfile(ctx, id)
	}

	role, err := getUserRole(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if !isStaff(role) {
		return nil, NewPermissionError(actorID, id, "user", "read", "students can only read their own profile")
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "get user")
	}
	if role == models.RoleLecturer && user.Role != models.RoleStudent {
		return nil, NewPermissionError(actorID, id, "user", "read", "lecturers can only read student profiles")
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters, actorID string) (*UserListResponse, error) {
	if err := s.scopeDirectory(ctx, &filters, actorID); err != nil {
		return nil, err
	}
	page := normalizePage(&filters.Limit, &filters.Offset)

	users, total, err := s.repo.User().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &UserListResponse{Users: users, Total: total, Page: page, Size: filters.Limit}, nil
}

func (s *userService) Search(ctx context.Context, query string, filters repositories.UserFilters, actorID string) (*UserListResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, filters, actorID)
	}
	if err := s.scopeDirectory(ctx, &filters, actorID); err != nil {
		return nil, err
	}
	page := normalizePage(&filters.Limit, &filters.Offset)

	users, total, err := s.repo.User().Search(ctx, query, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return &UserListResponse{Users: users, Total: total, Page: page, Size: filters.Limit}, nil
}

func (s *userService) UpdateRole(ctx context.Context, id string, req *UpdateRoleRequest, actorID string) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, NewPermissionError(actorID, id, "user", "update_role", "admin role required")
	}
	if id == actorID {
		return nil, NewBusinessRuleError("self_role_change", "admins cannot change their own role", map[string]interface{}{
			"user_id": id,
		})
	}

	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "get user")
	}

	if err := s.repo.Role().SetRole(ctx, nil, id, req.Role); err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	s.repo.User().InvalidateCache(ctx, id)

	s.logger.Info("User role changed", "user_id", id, "from", user.Role, "to", req.Role, "admin_id", actorID)
	user.Role = req.Role
	return user, nil
}

// scopeDirectory: admins see everyone, lecturers only students, students nobody
func (s *userService) scopeDirectory(ctx context.Context, filters *repositories.UserFilters, actorID string) error {
	role, err := getUserRole(ctx, s.repo, actorID)
	if err != nil {
		return err
	}
	switch role {
	case models.RoleAdmin:
		if filters.Role != nil && !filters.Role.IsValid() {
			return ValidationErrors{*NewValidationError("role", "must be one of: admin, lecturer, student", *filters.Role)}
		}
	case models.RoleLecturer:
		student := models.RoleStudent
		filters.Role = &student
	default:
		return NewPermissionError(actorID, "", "user", "list", "students cannot browse the user directory")
	}
	return nil
}
