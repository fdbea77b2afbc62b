package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Generic
	ErrValidationFailed        = errors.New("validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrBadRequest              = errors.New("bad request")
	ErrConflict                = errors.New("resource conflict")

	// Course
	ErrCourseNotFound    = errors.New("course not found")
	ErrCourseNotApproved = errors.New("course is not approved")

	// Enrollment
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentExists   = errors.New("already enrolled")
	ErrNotEnrolled        = errors.New("no approved enrollment in course")

	// Coursework
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// Announcement
	ErrAnnouncementNotFound = errors.New("announcement not found")

	// Users
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")

	// ErrStateChanged means another request moved the record first
	ErrStateChanged = fmt.Errorf("%w: record was modified concurrently", ErrConflict)
)

// ===== TYPED ERRORS =====

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

// PermissionError is returned when a user may not perform an action on a resource
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// BusinessRuleError is a well-formed request that the current state does not allow
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func IsValidationError(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs) || errors.Is(err, ErrValidationFailed)
}

func IsPermissionError(err error) bool {
	var perr *PermissionError
	return errors.As(err, &perr)
}

func IsBusinessRuleError(err error) bool {
	var berr *BusinessRuleError
	return errors.As(err, &berr)
}
