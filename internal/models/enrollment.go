package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending           EnrollmentStatus = "pending"
	EnrollmentApproved          EnrollmentStatus = "approved"
	EnrollmentRejected          EnrollmentStatus = "rejected"
	EnrollmentWithdrawalPending EnrollmentStatus = "withdrawal_pending"
)

// EnrollmentAction names a staff or student action on an enrollment
type EnrollmentAction string

const (
	ActionApprove           EnrollmentAction = "approve"
	ActionReject            EnrollmentAction = "reject"
	ActionRequestWithdrawal EnrollmentAction = "request_withdrawal"
	ActionApproveWithdrawal EnrollmentAction = "approve_withdrawal"
	ActionRejectWithdrawal  EnrollmentAction = "reject_withdrawal"
)

type Enrollment struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	CourseID   uint             `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_course_student"`
	StudentID  string           `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_course_student;index"`
	Status     EnrollmentStatus `json:"status" gorm:"type:varchar(30);not null;default:'pending';index"`
	Progress   int              `json:"progress" gorm:"not null;default:0"`
	EnrolledAt time.Time        `json:"enrolled_at" gorm:"not null;index"`
	UpdatedAt  time.Time        `json:"updated_at"`

	Course  *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Student *User   `json:"student,omitempty" gorm:"-"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
