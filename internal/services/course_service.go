package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, userID string) (*CourseResponse, error) {
	s.logger.Info("Creating course", "creator_id", userID, "code", req.Code)

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if !isStaff(role) {
		return nil, NewPermissionError(userID, 0, "course", "create", "only admins and lecturers can create courses")
	}

	if errors := s.validator.GetBusinessValidator().ValidateCourseCreate(req); len(errors) > 0 {
		return nil, errors
	}

	now := time.Now()
	course := &models.Course{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Semester:    req.Semester,
		Year:        now.Year(),
		Color:       models.DefaultCourseColor,
		Schedule:    req.Schedule,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Year != nil {
		course.Year = *req.Year
	}
	if req.Color != nil {
		course.Color = *req.Color
	}

	// Lecturer-created courses wait for approval and always belong to their creator
	if role == models.RoleLecturer {
		course.Status = models.CourseStatusPending
		course.LecturerID = &userID
	} else {
		course.Status = models.CourseStatusApproved
		if req.LecturerID != nil && *req.LecturerID != "" {
			if err := s.requireLecturer(ctx, *req.LecturerID); err != nil {
				return nil, err
			}
			course.LecturerID = req.LecturerID
		}
	}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created successfully", "course_id", course.ID, "status", course.Status)
	publishEvent(ctx, s.publisher, s.logger, events.CourseCreated, events.CourseEvent{
		CourseID:   course.ID,
		Code:       course.Code,
		Name:       course.Name,
		Status:     string(course.Status),
		LecturerID: course.LecturerID,
		ActorID:    userID,
	})

	return s.buildCourseResponse(ctx, course, userID, role, nil), nil
}

func (s *courseService) GetByID(ctx context.Context, id uint, userID string) (*CourseResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canReadCourse(role, userID, course) {
		return nil, NewPermissionError(userID, id, "course", "read", "course is not approved")
	}

	var mine *models.Enrollment
	if role == models.RoleStudent {
		mine, err = s.repo.Enrollment().GetByCourseAndStudent(ctx, nil, id, userID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get enrollment: %w", err)
		}
	}

	return s.buildCourseResponse(ctx, course, userID, role, mine), nil
}

func (s *courseService) Update(ctx context.Context, id uint, req *UpdateCourseRequest, userID string) (*CourseResponse, error) {
	s.logger.Info("Updating course", "course_id", id, "user_id", userID)

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, NewPermissionError(userID, id, "course", "update", "not the course lecturer")
	}

	if errors := s.validator.GetBusinessValidator().ValidateCourseUpdate(req, course, role); len(errors) > 0 {
		return nil, errors
	}

	if req.LecturerID != nil && !course.IsOwnedBy(*req.LecturerID) {
		if role != models.RoleAdmin {
			return nil, NewPermissionError(userID, id, "course", "reassign", "only admins can change the lecturer")
		}
		if *req.LecturerID == "" {
			course.LecturerID = nil
		} else {
			if err := s.requireLecturer(ctx, *req.LecturerID); err != nil {
				return nil, err
			}
			course.LecturerID = req.LecturerID
		}
	}

	applyCourseUpdates(course, req)
	course.UpdatedAt = time.Now()

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "update course")
	}

	s.logger.Info("Course updated successfully", "course_id", id)
	return s.buildCourseResponse(ctx, course, userID, role, nil), nil
}

func (s *courseService) UpdateStatus(ctx context.Context, id uint, req *UpdateCourseStatusRequest, userID string) (*CourseResponse, error) {
	s.logger.Info("Updating course status", "course_id", id, "status", req.Status, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, NewPermissionError(userID, id, "course", "update_status", "only admins can approve or reject courses")
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}

	if errors := s.validator.GetBusinessValidator().ValidateCourseStatusTransition(course.Status, req.Status); len(errors) > 0 {
		return nil, errors
	}

	if err := s.repo.Course().UpdateStatus(ctx, nil, id, course.Status, req.Status); err != nil {
		return nil, mapStale(err, ErrCourseNotFound, "update course status")
	}

	oldStatus := course.Status
	course.Status = req.Status
	course.UpdatedAt = time.Now()

	publishEvent(ctx, s.publisher, s.logger, events.CourseStatusChanged, events.CourseEvent{
		CourseID:   course.ID,
		Code:       course.Code,
		Name:       course.Name,
		Status:     string(course.Status),
		OldStatus:  string(oldStatus),
		LecturerID: course.LecturerID,
		ActorID:    userID,
	})

	return s.buildCourseResponse(ctx, course, userID, role, nil), nil
}

func (s *courseService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting course", "course_id", id, "user_id", userID)

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return NewPermissionError(userID, id, "course", "delete", "not the course lecturer")
	}

	// Enrollments, assignments, submissions and course announcements go with the course
	if err := s.repo.Course().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrCourseNotFound, "delete course")
	}

	s.logger.Info("Course deleted successfully", "course_id", id)
	return nil
}

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters, userID string) (*CourseListResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	filters.Visibility = &repositories.CourseVisibility{Role: role, UserID: userID}
	page := normalizePage(&filters.Limit, &filters.Offset)

	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	lecturers := s.lookupLecturers(ctx, courses)
	responses := make([]*CourseResponse, 0, len(courses))
	for _, course := range courses {
		resp := newCourseResponse(course, userID, role, nil)
		if course.LecturerID != nil {
			resp.Lecturer = lecturers[*course.LecturerID]
		}
		responses = append(responses, resp)
	}

	return &CourseListResponse{
		Courses: responses,
		Total:   total,
		Page:    page,
		Size:    filters.Limit,
	}, nil
}

// ===== PERMISSION CHECKS =====

func (s *courseService) CanAccess(ctx context.Context, id uint, userID string) (bool, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return false, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return canReadCourse(role, userID, course), nil
}

func (s *courseService) CanManage(ctx context.Context, id uint, userID string) (bool, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return false, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return canManageCourse(role, userID, course), nil
}

// ===== HELPERS =====

// canReadCourse: admin sees everything, a lecturer also sees own courses, everyone sees approved ones
func canReadCourse(role models.UserRole, userID string, course *models.Course) bool {
	if course.Status == models.CourseStatusApproved || role == models.RoleAdmin {
		return true
	}
	return role == models.RoleLecturer && course.IsOwnedBy(userID)
}

func (s *courseService) requireLecturer(ctx context.Context, lecturerID string) error {
	role, err := s.repo.Role().GetRole(ctx, nil, lecturerID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to get lecturer role: %w", err)
	}
	if role != models.RoleLecturer {
		return ValidationErrors{*NewValidationError("lecturer_id", "must reference a lecturer", lecturerID)}
	}
	return nil
}

func applyCourseUpdates(course *models.Course, req *UpdateCourseRequest) {
	if req.Code != nil {
		course.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Semester != nil {
		course.Semester = *req.Semester
	}
	if req.Year != nil {
		course.Year = *req.Year
	}
	if req.Color != nil {
		course.Color = *req.Color
	}
	if req.Schedule != nil {
		course.Schedule = req.Schedule
	}
}

func newCourseResponse(course *models.Course, userID string, role models.UserRole, mine *models.Enrollment) *CourseResponse {
	manage := canManageCourse(role, userID, course)
	return &CourseResponse{
		Course:       course,
		CanEdit:      manage && (role == models.RoleAdmin || course.Status != models.CourseStatusRejected),
		CanDelete:    manage,
		CanEnroll:    role == models.RoleStudent && course.Status == models.CourseStatusApproved && mine == nil,
		MyEnrollment: mine,
	}
}

func (s *courseService) buildCourseResponse(ctx context.Context, course *models.Course, userID string, role models.UserRole, mine *models.Enrollment) *CourseResponse {
	resp := newCourseResponse(course, userID, role, mine)
	if course.LecturerID != nil {
		lecturer, err := s.repo.User().GetByID(ctx, *course.LecturerID)
		if err != nil {
			s.logger.Warn("Failed to load course lecturer", "course_id", course.ID, "lecturer_id", *course.LecturerID, "error", err)
		} else {
			resp.Lecturer = lecturer
		}
	}
	return resp
}

func (s *courseService) lookupLecturers(ctx context.Context, courses []*models.Course) map[string]*models.User {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range courses {
		if c.LecturerID == nil {
			continue
		}
		if _, ok := seen[*c.LecturerID]; !ok {
			seen[*c.LecturerID] = struct{}{}
			ids = append(ids, *c.LecturerID)
		}
	}

	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load lecturers", "count", len(ids), "error", err)
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
