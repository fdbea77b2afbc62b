package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// accountService performs the admin-only identity mutations. Credentials are forwarded
// to the identity provider and never stored or returned.
type accountService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAccountService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AccountService {
	return &accountService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *accountService) CreateUser(ctx context.Context, req *CreateAccountRequest, actorID string) (*models.User, error) {
	if err := s.requireAdmin(ctx, actorID, "", "create"); err != nil {
		return nil, err
	}

	if errors := s.validator.GetBusinessValidator().ValidateAccountCreate(req); len(errors) > 0 {
		return nil, errors
	}

	s.logger.Info("Creating account", "admin_id", actorID, "email", req.Email, "role", req.Role)

	user, err := s.repo.User().Create(ctx, repositories.NewIdentity{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	if err := s.repo.Role().SetRole(ctx, nil, user.ID, req.Role); err != nil {
		// Without a role row the account would silently become a student, so undo it
		if delErr := s.repo.User().Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("Failed to roll back identity after role write failure",
				"user_id", user.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}
	s.repo.User().InvalidateCache(ctx, user.ID)
	user.Role = req.Role

	s.logger.Info("Account created successfully", "user_id", user.ID, "role", user.Role)
	publishEvent(ctx, s.publisher, s.logger, events.AccountCreated, events.AccountEvent{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		ActorID:  actorID,
	})
	return user, nil
}

func (s *accountService) DeleteUser(ctx context.Context, userID, actorID string) error {
	if err := s.requireAdmin(ctx, actorID, userID, "delete"); err != nil {
		return err
	}
	if userID == "" {
		return ValidationErrors{*NewValidationError("user_id", "is required", userID)}
	}
	if userID == actorID {
		return NewBusinessRuleError("self_delete", "admins cannot delete their own account", map[string]interface{}{
			"user_id": userID,
		})
	}

	target, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return mapNotFound(err, ErrUserNotFound, "get user")
	}
	if target.Role == models.RoleAdmin {
		return NewBusinessRuleError("admin_delete", "admin accounts cannot be deleted", map[string]interface{}{
			"user_id": userID,
		})
	}

	s.logger.Info("Deleting account", "admin_id", actorID, "user_id", userID)

	if err := s.repo.User().Delete(ctx, userID); err != nil {
		return mapNotFound(err, ErrUserNotFound, "delete identity")
	}
	if err := s.repo.Role().Delete(ctx, nil, userID); err != nil && !repositories.IsNotFoundError(err) {
		s.logger.Warn("Identity deleted but role row remains", "user_id", userID, "error", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.AccountDeleted, events.AccountEvent{
		UserID:  userID,
		Email:   target.Email,
		Role:    string(target.Role),
		ActorID: actorID,
	})
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, userID string, req *ResetPasswordRequest, actorID string) (*models.User, error) {
	if err := s.requireAdmin(ctx, actorID, userID, "reset_password"); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	target, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "get user")
	}

	s.logger.Info("Resetting password", "admin_id", actorID, "user_id", userID)

	if err := s.repo.User().SetPassword(ctx, userID, req.NewPassword); err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "set password")
	}

	publishEvent(ctx, s.publisher, s.logger, events.AccountPasswordReset, events.AccountEvent{
		UserID:   target.ID,
		Email:    target.Email,
		FullName: target.FullName,
		ActorID:  actorID,
	})
	return target, nil
}

// requireAdmin checks the caller before any identity call is made
func (s *accountService) requireAdmin(ctx context.Context, actorID, targetID, action string) error {
	role, err := getUserRole(ctx, s.repo, actorID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return NewPermissionError(actorID, targetID, "account", action, "admin role required")
	}
	return nil
}
