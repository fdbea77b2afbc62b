package models

import (
	"time"

	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseStatusPending  CourseStatus = "pending"
	CourseStatusApproved CourseStatus = "approved"
	CourseStatusRejected CourseStatus = "rejected"
)

const DefaultCourseColor = "#4CAF50"

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// ScheduleSlot is one weekly teaching slot of a course
type ScheduleSlot struct {
	Day    Weekday `json:"day" validate:"required,schedule_day"`
	Period int     `json:"period" validate:"required,min=1,max=15"`
}

type Course struct {
	ID          uint                              `json:"id" gorm:"primaryKey"`
	Code        string                            `json:"code" gorm:"not null;size:20;index"`
	Name        string                            `json:"name" gorm:"not null;size:200"`
	Description *string                           `json:"description" gorm:"type:text"`
	Semester    string                            `json:"semester" gorm:"size:50"`
	Year        int                               `json:"year" gorm:"not null"`
	LecturerID  *string                           `json:"lecturer_id" gorm:"size:255;index"`
	Color       string                            `json:"color" gorm:"size:7;default:'#4CAF50'"`
	Status      CourseStatus                      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Schedule    datatypes.JSONSlice[ScheduleSlot] `json:"schedule" gorm:"type:jsonb"`
	CreatedBy   string                            `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt   time.Time                         `json:"created_at"`
	UpdatedAt   time.Time                         `json:"updated_at"`

	Enrollments   []Enrollment   `json:"-" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Assignments   []Assignment   `json:"-" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Announcements []Announcement `json:"-" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Course) TableName() string {
	return "courses"
}

// IsOwnedBy reports whether userID is the course lecturer
func (c *Course) IsOwnedBy(userID string) bool {
	return c.LecturerID != nil && *c.LecturerID == userID
}
