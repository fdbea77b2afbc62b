package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

type announcementService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewAnnouncementService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AnnouncementService {
	return &announcementService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *announcementService) Create(ctx context.Context, req *CreateAnnouncementRequest, userID string) (*AnnouncementResponse, error) {
	s.logger.Info("Creating announcement", "user_id", userID, "is_global", req.IsGlobal)

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if !isStaff(role) {
		return nil, NewPermissionError(userID, 0, "announcement", "create", "only admins and lecturers can post announcements")
	}

	if errors := s.validator.GetBusinessValidator().ValidateAnnouncementCreate(req); len(errors) > 0 {
		return nil, errors
	}

	now := time.Now()
	announcement := &models.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		IsGlobal:  req.IsGlobal,
		CreatedBy: userID,
		Status:    models.AnnouncementApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.IsGlobal {
		// Global announcements from lecturers wait for an admin
		if role != models.RoleAdmin {
			announcement.Status = models.AnnouncementPending
		}
	} else {
		if err := s.checkCourseTarget(ctx, *req.CourseID, userID, role); err != nil {
			return nil, err
		}
		announcement.CourseID = req.CourseID
	}

	if err := s.repo.Announcement().Create(ctx, nil, announcement); err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	s.logger.Info("Announcement created successfully", "announcement_id", announcement.ID, "status", announcement.Status)
	if announcement.Status == models.AnnouncementApproved {
		publishEvent(ctx, s.publisher, s.logger, events.AnnouncementPublished, announcementEvent(announcement, "", userID))
	}

	return newAnnouncementResponse(announcement, userID, role), nil
}

func (s *announcementService) GetByID(ctx context.Context, id uint, userID string) (*AnnouncementResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	announcement, err := s.repo.Announcement().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrAnnouncementNotFound, "get announcement")
	}

	visibility, err := s.visibility(ctx, role, userID)
	if err != nil {
		return nil, err
	}
	if !isAnnouncementVisible(announcement, visibility) {
		return nil, NewPermissionError(userID, id, "announcement", "read", "announcement is not visible to user")
	}

	return newAnnouncementResponse(announcement, userID, role), nil
}

func (s *announcementService) Update(ctx context.Context, id uint, req *UpdateAnnouncementRequest, userID string) (*AnnouncementResponse, error) {
	s.logger.Info("Updating announcement", "announcement_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	announcement, err := s.repo.Announcement().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrAnnouncementNotFound, "get announcement")
	}
	if role != models.RoleAdmin && announcement.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "announcement", "update", "not the author")
	}
	if role != models.RoleAdmin && announcement.Status == models.AnnouncementRejected {
		return nil, NewBusinessRuleError("announcement_rejected", "rejected announcements cannot be edited", map[string]interface{}{
			"announcement_id": id,
		})
	}

	oldStatus := announcement.Status
	if req.Title != nil {
		announcement.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		announcement.Content = *req.Content
	}

	switch {
	case req.IsGlobal != nil && *req.IsGlobal:
		if !announcement.IsGlobal && role != models.RoleAdmin {
			announcement.Status = models.AnnouncementPending
		}
		announcement.IsGlobal = true
		announcement.CourseID = nil
	case req.IsGlobal != nil || req.CourseID != nil:
		courseID := req.CourseID
		if courseID == nil {
			courseID = announcement.CourseID
		}
		if courseID == nil {
			return nil, ValidationErrors{*NewValidationError("course_id", "is required for course announcements", nil)}
		}
		if err := s.checkCourseTarget(ctx, *courseID, userID, role); err != nil {
			return nil, err
		}
		// course announcements need no approval
		if announcement.IsGlobal && announcement.Status == models.AnnouncementPending {
			announcement.Status = models.AnnouncementApproved
		}
		announcement.IsGlobal = false
		announcement.CourseID = courseID
	}
	announcement.UpdatedAt = time.Now()

	if err := s.repo.Announcement().Update(ctx, nil, announcement); err != nil {
		return nil, mapNotFound(err, ErrAnnouncementNotFound, "update announcement")
	}

	if oldStatus != models.AnnouncementApproved && announcement.Status == models.AnnouncementApproved {
		publishEvent(ctx, s.publisher, s.logger, events.AnnouncementPublished, announcementEvent(announcement, oldStatus, userID))
	}
	return newAnnouncementResponse(announcement, userID, role), nil
}

func (s *announcementService) UpdateStatus(ctx context.Context, id uint, req *UpdateAnnouncementStatusRequest, userID string) (*AnnouncementResponse, error) {
	s.logger.Info("Updating announcement status", "announcement_id", id, "status", req.Status, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, NewPermissionError(userID, id, "announcement", "update_status", "only admins can approve or reject announcements")
	}

	announcement, err := s.repo.Announcement().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrAnnouncementNotFound, "get announcement")
	}

	if errors := s.validator.GetBusinessValidator().ValidateAnnouncementStatusTransition(announcement.Status, req.Status); len(errors) > 0 {
		return nil, errors
	}

	if err := s.repo.Announcement().UpdateStatus(ctx, nil, id, announcement.Status, req.Status); err != nil {
		return nil, mapStale(err, ErrAnnouncementNotFound, "update announcement status")
	}

	oldStatus := announcement.Status
	announcement.Status = req.Status
	announcement.UpdatedAt = time.Now()

	publishEvent(ctx, s.publisher, s.logger, events.AnnouncementStatusChanged, announcementEvent(announcement, oldStatus, userID))
	return newAnnouncementResponse(announcement, userID, role), nil
}

func (s *announcementService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting announcement", "announcement_id", id, "user_id", userID)

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return err
	}

	announcement, err := s.repo.Announcement().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrAnnouncementNotFound, "get announcement")
	}
	if role != models.RoleAdmin && announcement.CreatedBy != userID {
		return NewPermissionError(userID, id, "announcement", "delete", "not the author")
	}

	if err := s.repo.Announcement().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrAnnouncementNotFound, "delete announcement")
	}
	return nil
}

func (s *announcementService) List(ctx context.Context, filters repositories.AnnouncementFilters, userID string) (*AnnouncementListResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	visibility, err := s.visibility(ctx, role, userID)
	if err != nil {
		return nil, err
	}
	filters.Visibility = visibility
	page := normalizePage(&filters.Limit, &filters.Offset)

	announcements, total, err := s.repo.Announcement().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}

	responses := make([]*AnnouncementResponse, 0, len(announcements))
	for _, a := range announcements {
		responses = append(responses, newAnnouncementResponse(a, userID, role))
	}

	return &AnnouncementListResponse{
		Announcements: responses,
		Total:         total,
		Page:          page,
		Size:          filters.Limit,
	}, nil
}

// ===== HELPERS =====

// visibility collects the course ids that scope what the user may read
func (s *announcementService) visibility(ctx context.Context, role models.UserRole, userID string) (*repositories.AnnouncementVisibility, error) {
	v := &repositories.AnnouncementVisibility{Role: role, UserID: userID}

	var err error
	switch role {
	case models.RoleLecturer:
		v.CourseIDs, err = s.repo.Course().GetIDsByLecturer(ctx, nil, userID)
	case models.RoleStudent:
		v.CourseIDs, err = s.repo.Enrollment().GetApprovedCourseIDs(ctx, nil, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve announcement visibility: %w", err)
	}
	return v, nil
}

// isAnnouncementVisible mirrors the visibility filter applied by the repository
func isAnnouncementVisible(a *models.Announcement, v *repositories.AnnouncementVisibility) bool {
	inCourses := a.CourseID != nil && slices.Contains(v.CourseIDs, *a.CourseID)

	switch v.Role {
	case models.RoleAdmin:
		return true
	case models.RoleLecturer:
		if a.CreatedBy == v.UserID {
			return true
		}
		if a.IsGlobal {
			return a.Status == models.AnnouncementApproved
		}
		return inCourses
	default:
		return a.Status == models.AnnouncementApproved && (a.IsGlobal || inCourses)
	}
}

func (s *announcementService) checkCourseTarget(ctx context.Context, courseID uint, userID string, role models.UserRole) error {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return NewPermissionError(userID, courseID, "course", "announce", "not the course lecturer")
	}
	return nil
}

func newAnnouncementResponse(a *models.Announcement, userID string, role models.UserRole) *AnnouncementResponse {
	isAdmin := role == models.RoleAdmin
	isAuthor := a.CreatedBy == userID
	return &AnnouncementResponse{
		Announcement: a,
		CanEdit:      isAdmin || (isAuthor && a.Status != models.AnnouncementRejected),
		CanDelete:    isAdmin || isAuthor,
	}
}

func announcementEvent(a *models.Announcement, oldStatus models.AnnouncementStatus, actorID string) events.AnnouncementEvent {
	return events.AnnouncementEvent{
		AnnouncementID: a.ID,
		Title:          a.Title,
		CourseID:       a.CourseID,
		IsGlobal:       a.IsGlobal,
		Status:         string(a.Status),
		OldStatus:      string(oldStatus),
		ActorID:        actorID,
	}
}
