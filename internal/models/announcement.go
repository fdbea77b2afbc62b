package models

import "time"

type AnnouncementStatus string

const (
	AnnouncementPending  AnnouncementStatus = "pending"
	AnnouncementApproved AnnouncementStatus = "approved"
	AnnouncementRejected AnnouncementStatus = "rejected"
)

type Announcement struct {
	ID        uint               `json:"id" gorm:"primaryKey"`
	Title     string             `json:"title" gorm:"not null;size:200"`
	Content   string             `json:"content" gorm:"type:text;not null"`
	CourseID  *uint              `json:"course_id" gorm:"index"`
	IsGlobal  bool               `json:"is_global" gorm:"not null;default:false;index"`
	CreatedBy string             `json:"created_by" gorm:"not null;size:255;index"`
	Status    AnnouncementStatus `json:"status" gorm:"type:varchar(20);not null;default:'approved';index"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Author *User   `json:"author,omitempty" gorm:"-"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// AllModels returns every table managed by AutoMigrate, parents first
func AllModels() []interface{} {
	return []interface{}{
		&UserRoleAssignment{},
		&Course{},
		&Enrollment{},
		&Assignment{},
		&Submission{},
		&Announcement{},
	}
}
