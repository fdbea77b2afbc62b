package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a business validator with its own tag registry
func NewBusinessValidator() *BusinessValidator {
	return New().business
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// moderationTransitions is shared by courses and announcements
var moderationTransitions = map[string][]string{
	"pending":  {"approved", "rejected"},
	"rejected": {"approved"},
	"approved": {},
}

// enrollmentTransitions maps (status, action) to the next status. An empty target deletes the row.
var enrollmentTransitions = map[models.EnrollmentStatus]map[models.EnrollmentAction]models.EnrollmentStatus{
	models.EnrollmentPending: {
		models.ActionApprove: models.EnrollmentApproved,
		models.ActionReject:  models.EnrollmentRejected,
	},
	models.EnrollmentRejected: {
		models.ActionApprove: models.EnrollmentApproved,
	},
	models.EnrollmentApproved: {
		models.ActionRequestWithdrawal: models.EnrollmentWithdrawalPending,
	},
	models.EnrollmentWithdrawalPending: {
		models.ActionApproveWithdrawal: "",
		models.ActionRejectWithdrawal:  models.EnrollmentApproved,
	},
}

// ValidateCourseCreate validates course creation business rules
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.ValidateSchedule(req.Schedule)...)

	return errors
}

// ValidateCourseUpdate validates course update business rules. Only admins may edit a rejected course.
func (bv *BusinessValidator) ValidateCourseUpdate(req *CourseUpdateRequest, existing *models.Course, role models.UserRole) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.ValidateSchedule(req.Schedule)...)

	if existing.Status == models.CourseStatusRejected && role != models.RoleAdmin {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "rejected courses cannot be edited",
			Value:   existing.Status,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateSchedule rejects a slot that appears twice
func (bv *BusinessValidator) ValidateSchedule(slots []models.ScheduleSlot) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[string]int, len(slots))
	for i, slot := range slots {
		key := fmt.Sprintf("%s/%d", strings.ToLower(string(slot.Day)), slot.Period)
		if first, dup := seen[key]; dup {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("schedule[%d]", i),
				Message: fmt.Sprintf("duplicates schedule[%d]", first),
				Value:   slot,
				Rule:    "unique_slot",
			})
			continue
		}
		seen[key] = i
	}

	return errors
}

// ValidateCourseStatusTransition validates course moderation transitions
func (bv *BusinessValidator) ValidateCourseStatusTransition(current, next models.CourseStatus) ValidationErrors {
	return validateModeration(string(current), string(next))
}

// ValidateAnnouncementStatusTransition validates announcement moderation transitions
func (bv *BusinessValidator) ValidateAnnouncementStatusTransition(current, next models.AnnouncementStatus) ValidationErrors {
	return validateModeration(string(current), string(next))
}

func validateModeration(current, next string) ValidationErrors {
	for _, allowed := range moderationTransitions[current] {
		if next == allowed {
			return nil
		}
	}
	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}

// NextEnrollmentStatus resolves an action against the enrollment state machine.
// remove is true when the action deletes the enrollment.
func (bv *BusinessValidator) NextEnrollmentStatus(current models.EnrollmentStatus, action models.EnrollmentAction) (next models.EnrollmentStatus, remove bool, errs ValidationErrors) {
	target, ok := enrollmentTransitions[current][action]
	if !ok {
		return "", false, ValidationErrors{{
			Field:   "action",
			Message: fmt.Sprintf("cannot %s an enrollment in status %s", action, current),
			Value:   action,
			Rule:    "status_transition",
		}}
	}
	return target, target == "", nil
}

// ValidateScore checks 0 <= score <= maxScore
func (bv *BusinessValidator) ValidateScore(score float64, maxScore int) ValidationErrors {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > float64(maxScore) {
		return ValidationErrors{{
			Field:   "score",
			Message: fmt.Sprintf("must be between 0 and %d", maxScore),
			Value:   score,
			Rule:    "score_range",
		}}
	}
	return nil
}

// ValidateAnnouncementCreate validates announcement creation business rules
func (bv *BusinessValidator) ValidateAnnouncementCreate(req *AnnouncementCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if !req.IsGlobal && req.CourseID == nil {
		errors = append(errors, ValidationError{
			Field:   "course_id",
			Message: "is required for course announcements",
			Rule:    "required_unless_global",
		})
	}

	return errors
}

// ValidateAccountCreate validates the admin create-user body
func (bv *BusinessValidator) ValidateAccountCreate(req *CreateAccountRequest) ValidationErrors {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	return bv.Validate(req)
}
