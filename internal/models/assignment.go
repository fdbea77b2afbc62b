package models

import "time"

const DefaultMaxScore = 100

type Assignment struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	CourseID    uint       `json:"course_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"not null;size:200"`
	Description *string    `json:"description" gorm:"type:text"`
	DueDate     *time.Time `json:"due_date" gorm:"index"`
	MaxScore    int        `json:"max_score" gorm:"not null;default:100"`
	LinkURL     *string    `json:"link_url" gorm:"size:1000"`
	CreatedBy   string     `json:"created_by" gorm:"not null;size:255"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Course      *Course      `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Submissions []Submission `json:"-" gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsOverdue reports whether the due date has passed at now
func (a *Assignment) IsOverdue(now time.Time) bool {
	return a.DueDate != nil && now.After(*a.DueDate)
}

type Submission struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	AssignmentID uint       `json:"assignment_id" gorm:"not null;uniqueIndex:idx_submission_assignment_student"`
	StudentID    string     `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_submission_assignment_student;index"`
	FileURL      string     `json:"file_url" gorm:"not null;size:1000"`
	Content      *string    `json:"content" gorm:"type:text"`
	SubmittedAt  time.Time  `json:"submitted_at" gorm:"not null"`
	Score        *float64   `json:"score"`
	Feedback     *string    `json:"feedback" gorm:"type:text"`
	GradedAt     *time.Time `json:"graded_at"`
	GradedBy     *string    `json:"graded_by" gorm:"size:255"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Assignment *Assignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Student    *User       `json:"student,omitempty" gorm:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) IsGraded() bool {
	return s.Score != nil
}
