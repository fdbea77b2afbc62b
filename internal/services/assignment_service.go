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

type assignmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewAssignmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AssignmentService {
	return &assignmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== ASSIGNMENTS =====

func (s *assignmentService) Create(ctx context.Context, req *CreateAssignmentRequest, userID string) (*AssignmentResponse, error) {
	s.logger.Info("Creating assignment", "course_id", req.CourseID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.manageableCourse(ctx, req.CourseID, userID, "create_assignment")
	if err != nil {
		return nil, err
	}

	now := s.now()
	assignment := &models.Assignment{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxScore:    models.DefaultMaxScore,
		LinkURL:     req.LinkURL,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.MaxScore != nil {
		assignment.MaxScore = *req.MaxScore
	}

	if err := s.repo.Assignment().Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("Assignment created successfully", "assignment_id", assignment.ID)
	return &AssignmentResponse{Assignment: assignment, CanEdit: true, IsOverdue: assignment.IsOverdue(now)}, nil
}

func (s *assignmentService) GetByID(ctx context.Context, id uint, userID string) (*AssignmentResponse, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}

	canEdit, err := s.canReadCourseWork(ctx, assignment.CourseID, userID)
	if err != nil {
		return nil, err
	}

	resp := &AssignmentResponse{Assignment: assignment, CanEdit: canEdit, IsOverdue: assignment.IsOverdue(s.now())}
	if !canEdit {
		mine, err := s.repo.Submission().GetByAssignmentAndStudent(ctx, nil, id, userID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get submission: %w", err)
		}
		resp.MySubmission = mine
	}
	return resp, nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, req *UpdateAssignmentRequest, userID string) (*AssignmentResponse, error) {
	s.logger.Info("Updating assignment", "assignment_id", id, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}
	if _, err := s.manageableCourse(ctx, assignment.CourseID, userID, "update_assignment"); err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.ClearDue {
		assignment.DueDate = nil
	} else if req.DueDate != nil {
		assignment.DueDate = req.DueDate
	}
	if req.MaxScore != nil {
		assignment.MaxScore = *req.MaxScore
	}
	if req.LinkURL != nil {
		assignment.LinkURL = req.LinkURL
	}
	assignment.UpdatedAt = s.now()

	if err := s.repo.Assignment().Update(ctx, nil, assignment); err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "update assignment")
	}

	return &AssignmentResponse{Assignment: assignment, CanEdit: true, IsOverdue: assignment.IsOverdue(s.now())}, nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting assignment", "assignment_id", id, "user_id", userID)

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}
	if _, err := s.manageableCourse(ctx, assignment.CourseID, userID, "delete_assignment"); err != nil {
		return err
	}

	if err := s.repo.Assignment().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrAssignmentNotFound, "delete assignment")
	}
	return nil
}

func (s *assignmentService) ListByCourse(ctx context.Context, courseID uint, filters repositories.AssignmentFilters, userID string) (*AssignmentListResponse, error) {
	canEdit, err := s.canReadCourseWork(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	filters.CourseID = &courseID
	filters.CourseIDs = nil
	filters.LecturerID = nil
	return s.list(ctx, filters, canEdit, userID)
}

func (s *assignmentService) StudentFeed(ctx context.Context, filters repositories.AssignmentFilters, studentID string) (*AssignmentListResponse, error) {
	role, err := getUserRole(ctx, s.repo, studentID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleStudent {
		return nil, NewPermissionError(studentID, 0, "assignment", "feed", "only students have an assignment feed")
	}

	courseIDs, err := s.repo.Enrollment().GetApprovedCourseIDs(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved courses: %w", err)
	}
	if courseIDs == nil {
		courseIDs = []uint{}
	}

	filters.CourseID = nil
	filters.LecturerID = nil
	filters.CourseIDs = courseIDs
	if filters.SortBy == "" {
		filters.SortBy = "due_date"
		filters.SortOrder = "asc"
	}
	return s.list(ctx, filters, false, studentID)
}

func (s *assignmentService) list(ctx context.Context, filters repositories.AssignmentFilters, canEdit bool, userID string) (*AssignmentListResponse, error) {
	page := normalizePage(&filters.Limit, &filters.Offset)

	assignments, total, err := s.repo.Assignment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	var mine map[uint]*models.Submission
	if !canEdit && len(assignments) > 0 {
		ids := make([]uint, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.ID)
		}
		mine, err = s.repo.Submission().GetByStudentForAssignments(ctx, nil, userID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to get submissions: %w", err)
		}
	}

	now := s.now()
	responses := make([]*AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		responses = append(responses, &AssignmentResponse{
			Assignment:   a,
			CanEdit:      canEdit,
			IsOverdue:    a.IsOverdue(now),
			MySubmission: mine[a.ID],
		})
	}

	return &AssignmentListResponse{
		Assignments: responses,
		Total:       total,
		Page:        page,
		Size:        filters.Limit,
	}, nil
}

// ===== SUBMISSIONS & GRADING =====

func (s *assignmentService) Submit(ctx context.Context, assignmentID uint, req *SubmitRequest, studentID string) (*models.Submission, error) {
	s.logger.Info("Submitting assignment", "assignment_id", assignmentID, "student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	role, err := getUserRole(ctx, s.repo, studentID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleStudent {
		return nil, NewPermissionError(studentID, assignmentID, "assignment", "submit", "only students can submit")
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}

	approved, err := s.repo.Enrollment().IsApproved(ctx, nil, assignment.CourseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !approved {
		return nil, ErrNotEnrolled
	}

	submission := &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      strings.TrimSpace(req.FileURL),
		Content:      req.Content,
		SubmittedAt:  s.now(),
	}
	if err := s.repo.Submission().Upsert(ctx, nil, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Info("Submission saved", "submission_id", submission.ID, "assignment_id", assignmentID)
	publishEvent(ctx, s.publisher, s.logger, events.SubmissionSubmitted, events.SubmissionEvent{
		SubmissionID:    submission.ID,
		AssignmentID:    assignmentID,
		AssignmentTitle: assignment.Title,
		CourseID:        assignment.CourseID,
		StudentID:       studentID,
		MaxScore:        assignment.MaxScore,
		ActorID:         studentID,
	})
	return submission, nil
}

func (s *assignmentService) Grade(ctx context.Context, submissionID uint, req *GradeRequest, userID string) (*models.Submission, error) {
	s.logger.Info("Grading submission", "submission_id", submissionID, "grader_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	submission, err := s.repo.Submission().GetByID(ctx, nil, submissionID)
	if err != nil {
		return nil, mapNotFound(err, ErrSubmissionNotFound, "get submission")
	}
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, submission.AssignmentID)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}
	if _, err := s.manageableCourse(ctx, assignment.CourseID, userID, "grade"); err != nil {
		return nil, err
	}

	// Range check happens before anything is written
	if errors := s.validator.GetBusinessValidator().ValidateScore(*req.Score, assignment.MaxScore); len(errors) > 0 {
		return nil, errors
	}

	gradedAt := s.now()
	if err := s.repo.Submission().Grade(ctx, nil, submissionID, *req.Score, req.Feedback, userID, gradedAt); err != nil {
		return nil, mapNotFound(err, ErrSubmissionNotFound, "grade submission")
	}

	score := *req.Score
	submission.Score = &score
	submission.Feedback = req.Feedback
	submission.GradedAt = &gradedAt
	submission.GradedBy = &userID

	publishEvent(ctx, s.publisher, s.logger, events.SubmissionGraded, events.SubmissionEvent{
		SubmissionID:    submission.ID,
		AssignmentID:    assignment.ID,
		AssignmentTitle: assignment.Title,
		CourseID:        assignment.CourseID,
		StudentID:       submission.StudentID,
		Score:           &score,
		MaxScore:        assignment.MaxScore,
		ActorID:         userID,
	})
	return submission, nil
}

func (s *assignmentService) GetSubmission(ctx context.Context, id uint, userID string) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrSubmissionNotFound, "get submission")
	}
	if submission.StudentID == userID {
		return submission, nil
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, nil, submission.AssignmentID)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}
	if _, err := s.manageableCourse(ctx, assignment.CourseID, userID, "read_submission"); err != nil {
		return nil, err
	}
	s.attachStudents(ctx, []*models.Submission{submission})
	return submission, nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters, userID string) (*SubmissionListResponse, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, mapNotFound(err, ErrAssignmentNotFound, "get assignment")
	}
	if _, err := s.manageableCourse(ctx, assignment.CourseID, userID, "list_submissions"); err != nil {
		return nil, err
	}

	filters.AssignmentID = &assignmentID
	filters.StudentID = nil
	resp, err := s.listSubmissions(ctx, filters)
	if err != nil {
		return nil, err
	}
	s.attachStudents(ctx, resp.Submissions)
	return resp, nil
}

func (s *assignmentService) ListMySubmissions(ctx context.Context, filters repositories.SubmissionFilters, studentID string) (*SubmissionListResponse, error) {
	filters.StudentID = &studentID
	return s.listSubmissions(ctx, filters)
}

func (s *assignmentService) listSubmissions(ctx context.Context, filters repositories.SubmissionFilters) (*SubmissionListResponse, error) {
	page := normalizePage(&filters.Limit, &filters.Offset)

	submissions, total, err := s.repo.Submission().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return &SubmissionListResponse{
		Submissions: submissions,
		Total:       total,
		Page:        page,
		Size:        filters.Limit,
	}, nil
}

// ===== HELPERS =====

func (s *assignmentService) manageableCourse(ctx context.Context, courseID uint, userID, action string) (*models.Course, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if !canManageCourse(role, userID, course) {
		return nil, NewPermissionError(userID, courseID, "course", action, "not the course lecturer")
	}
	return course, nil
}

// canReadCourseWork returns true for staff managing the course, false for an approved student,
// and a permission error for anybody else
func (s *assignmentService) canReadCourseWork(ctx context.Context, courseID uint, userID string) (bool, error) {
	role, err := getUserRole(ctx, s.repo, userID)
	if err != nil {
		return false, err
	}
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return false, mapNotFound(err, ErrCourseNotFound, "get course")
	}
	if canManageCourse(role, userID, course) {
		return true, nil
	}

	if role == models.RoleStudent {
		approved, err := s.repo.Enrollment().IsApproved(ctx, nil, courseID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if approved {
			return false, nil
		}
	}
	return false, NewPermissionError(userID, courseID, "course", "read_assignments", "no approved enrollment in course")
}

func (s *assignmentService) attachStudents(ctx context.Context, submissions []*models.Submission) {
	if len(submissions) == 0 {
		return
	}
	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		ids = append(ids, sub.StudentID)
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load students for submissions", "count", len(ids), "error", err)
		return
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, sub := range submissions {
		sub.Student = byID[sub.StudentID]
	}
}
