package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
	"gorm.io/gorm"
)

type enrollmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) EnrollmentService {
	return &enrollmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CREATION =====

func (s *enrollmentService) Register(ctx context.Context, courseID uint, studentID string) (*models.Enrollment, error) {
	s.logger.Info("Registering for course", "course_id", courseID, "student_id", studentID)

	if err := s.validator.Validate(&RegisterRequest{CourseID: courseID}); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, studentID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleStudent {
		return nil, NewPermissionError(studentID, courseID, "enrollment", "register", "only students can register for courses")
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if course.Status != models.CourseStatusApproved {
		return nil, NewBusinessRuleError("course_not_approved", "registration is only open for approved courses", map[string]interface{}{
			"course_id": courseID,
			"status":    course.Status,
		})
	}

	enrollment, err := s.create(ctx, course, studentID, models.EnrollmentPending)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.EnrollmentRequested, enrollmentEvent(enrollment, course, "", studentID))
	return enrollment, nil
}

func (s *enrollmentService) Enroll(ctx context.Context, req *EnrollRequest, userID string) (*models.Enrollment, error) {
	s.logger.Info("Enrolling student", "course_id", req.CourseID, "student_id", req.StudentID, "admin_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, NewPermissionError(userID, req.CourseID, "enrollment", "enroll", "only admins can enroll students directly")
	}

	exists, err := s.repo.User().ExistsByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	studentRole, err := getUserRole(ctx, s.repo, req.StudentID)
	if err != nil {
		return nil, err
	}
	if studentRole != models.RoleStudent {
		return nil, ValidationErrors{*NewValidationError("student_id", "must reference a student", req.StudentID)}
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if course.Status != models.CourseStatusApproved {
		return nil, NewBusinessRuleError("course_not_approved", "students can only be enrolled in approved courses", map[string]interface{}{
			"course_id": course.ID,
			"status":    course.Status,
		})
	}

	enrollment, err := s.create(ctx, course, req.StudentID, models.EnrollmentApproved)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.EnrollmentStatusChanged, enrollmentEvent(enrollment, course, "", userID))
	return enrollment, nil
}

// create checks and inserts in one transaction; the unique (course, student) index catches concurrent duplicates
func (s *enrollmentService) create(ctx context.Context, course *models.Course, studentID string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	now := time.Now()
	enrollment := &models.Enrollment{
		CourseID:   course.ID,
		StudentID:  studentID,
		Status:     status,
		EnrolledAt: now,
		UpdatedAt:  now,
	}

	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		exists, err := s.repo.Enrollment().Exists(ctx, tx, course.ID, studentID)
		if err != nil {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}
		if exists {
			return ErrEnrollmentExists
		}
		if err := s.repo.Enrollment().Create(ctx, tx, enrollment); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrEnrollmentExists
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Enrollment created", "enrollment_id", enrollment.ID, "status", status)
	return enrollment, nil
}

// ===== STATE MACHINE =====

// Transition applies action with a compare-and-set on the current status.
// It returns a nil enrollment when the action removed the row.
func (s *enrollmentService) Transition(ctx context.Context, id uint, action models.EnrollmentAction, userID string) (*models.Enrollment, error) {
	s.logger.Info("Transitioning enrollment", "enrollment_id", id, "action", action, "user_id", userID)

	if err := s.validator.Validate(&EnrollmentActionRequest{Action: action}); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.repo.Enrollment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrEnrollmentNotFound, "get enrollment")
	}
	course, err := s.repo.Course().GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}

	allowed := canManageCourse(role, userID, course)
	if action == models.ActionRequestWithdrawal && role == models.RoleStudent {
		allowed = enrollment.StudentID == userID
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "enrollment", string(action), "not the course lecturer or enrollment owner")
	}

	next, remove, errs := s.validator.GetBusinessValidator().NextEnrollmentStatus(enrollment.Status, action)
	if len(errs) > 0 {
		return nil, errs
	}

	oldStatus := enrollment.Status
	if remove {
		if err := s.repo.Enrollment().DeleteWithStatus(ctx, nil, id, oldStatus); err != nil {
			return nil, mapStale(err, ErrEnrollmentNotFound, "delete enrollment")
		}
		s.logger.Info("Enrollment removed", "enrollment_id", id, "action", action)
		publishEvent(ctx, s.publisher, s.logger, events.EnrollmentDeleted, enrollmentEvent(enrollment, course, oldStatus, userID))
		return nil, nil
	}

	if err := s.repo.Enrollment().UpdateStatus(ctx, nil, id, oldStatus, next); err != nil {
		return nil, mapStale(err, ErrEnrollmentNotFound, "update enrollment status")
	}
	enrollment.Status = next
	enrollment.UpdatedAt = time.Now()

	s.logger.Info("Enrollment status changed", "enrollment_id", id, "from", oldStatus, "to", next)
	publishEvent(ctx, s.publisher, s.logger, events.EnrollmentStatusChanged, enrollmentEvent(enrollment, course, oldStatus, userID))
	return enrollment, nil
}

func (s *enrollmentService) Approve(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	return s.Transition(ctx, id, models.ActionApprove, userID)
}

func (s *enrollmentService) Reject(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	return s.Transition(ctx, id, models.ActionReject, userID)
}

func (s *enrollmentService) RequestWithdrawal(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	return s.Transition(ctx, id, models.ActionRequestWithdrawal, userID)
}

func (s *enrollmentService) ApproveWithdrawal(ctx context.Context, id uint, userID string) error {
	_, err := s.Transition(ctx, id, models.ActionApproveWithdrawal, userID)
	return err
}

func (s *enrollmentService) RejectWithdrawal(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	return s.Transition(ctx, id, models.ActionRejectWithdrawal, userID)
}

// ===== STAFF OPERATIONS =====

func (s *enrollmentService) Unenroll(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Unenrolling", "enrollment_id", id, "user_id", userID)

	enrollment, course, err := s.loadManaged(ctx, id, userID, "unenroll")
	if err != nil {
		return err
	}

	if err := s.repo.Enrollment().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrEnrollmentNotFound, "delete enrollment")
	}

	publishEvent(ctx, s.publisher, s.logger, events.EnrollmentDeleted, enrollmentEvent(enrollment, course, enrollment.Status, userID))
	return nil
}

func (s *enrollmentService) UpdateProgress(ctx context.Context, id uint, progress int, userID string) (*models.Enrollment, error) {
	if err := s.validator.Var("progress", progress, "min=0,max=100"); err != nil {
		return nil, err
	}

	enrollment, _, err := s.loadManaged(ctx, id, userID, "update_progress")
	if err != nil {
		return nil, err
	}

	if err := s.repo.Enrollment().UpdateProgress(ctx, nil, id, progress); err != nil {
		return nil, mapNotFound(err, ErrEnrollmentNotFound, "update enrollment progress")
	}
	enrollment.Progress = progress
	enrollment.UpdatedAt = time.Now()
	return enrollment, nil
}

func (s *enrollmentService) loadManaged(ctx context.Context, id uint, userID, action string) (*models.Enrollment, *models.Course, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, nil, err
	}
	enrollment, err := s.repo.Enrollment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrEnrollmentNotFound, "get enrollment")
	}
	course, err := s.repo.Course().GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, nil, NewPermissionError(userID, id, "enrollment", action, "not the course lecturer")
	}
	return enrollment, course, nil
}

// ===== QUERIES =====

func (s *enrollmentService) GetByID(ctx context.Context, id uint, userID string) (*models.Enrollment, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.repo.Enrollment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrEnrollmentNotFound, "get enrollment")
	}
	if enrollment.StudentID == userID {
		return enrollment, nil
	}

	course, err := s.repo.Course().GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, NewPermissionError(userID, id, "enrollment", "read", "not the enrollment owner or course lecturer")
	}
	s.attachStudents(ctx, []*models.Enrollment{enrollment})
	return enrollment, nil
}

func (s *enrollmentService) ListByCourse(ctx context.Context, courseID uint, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, NewPermissionError(userID, courseID, "course", "list_enrollments", "not the course lecturer")
	}

	filters.CourseID = &courseID
	filters.StudentID = nil
	filters.LecturerID = nil
	return s.list(ctx, filters, true)
}

func (s *enrollmentService) ListByStudent(ctx context.Context, studentID string, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	filters.StudentID = &studentID
	switch {
	case studentID == userID, role == models.RoleAdmin:
		filters.LecturerID = nil
	case role == models.RoleLecturer:
		// a lecturer only sees the student's rows in their own courses
		filters.LecturerID = &userID
	default:
		return nil, NewPermissionError(userID, studentID, "enrollment", "list", "cannot list another student's enrollments")
	}
	return s.list(ctx, filters, false)
}

func (s *enrollmentService) List(ctx context.Context, filters repositories.EnrollmentFilters, userID string) (*EnrollmentListResponse, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleAdmin:
	case models.RoleLecturer:
		filters.LecturerID = &userID
	default:
		filters.StudentID = &userID
		filters.LecturerID = nil
	}
	return s.list(ctx, filters, isStaff(role))
}

func (s *enrollmentService) list(ctx context.Context, filters repositories.EnrollmentFilters, withStudents bool) (*EnrollmentListResponse, error) {
	page := normalizePage(&filters.Limit, &filters.Offset)

	enrollments, total, err := s.repo.Enrollment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if withStudents {
		s.attachStudents(ctx, enrollments)
	}

	return &EnrollmentListResponse{
		Enrollments: enrollments,
		Total:       total,
		Page:        page,
		Size:        filters.Limit,
	}, nil
}

// attachStudents fills Student from the identity store; lookup failures leave it empty
func (s *enrollmentService) attachStudents(ctx context.Context, enrollments []*models.Enrollment) {
	if len(enrollments) == 0 {
		return
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load students for enrollments", "count", len(ids), "error", err)
		return
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, e := range enrollments {
		e.Student = byID[e.StudentID]
	}
}

func enrollmentEvent(e *models.Enrollment, course *models.Course, oldStatus models.EnrollmentStatus, actorID string) events.EnrollmentEvent {
	return events.EnrollmentEvent{
		EnrollmentID: e.ID,
		CourseID:     e.CourseID,
		CourseName:   course.Name,
		StudentID:    e.StudentID,
		Status:       string(e.Status),
		OldStatus:    string(oldStatus),
		ActorID:      actorID,
	}
}
