package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "lms-service"
	EventVersion = "1.0"
)

type EventType string

const (
	CourseCreated             EventType = "course.created"
	CourseStatusChanged       EventType = "course.status_changed"
	EnrollmentRequested       EventType = "enrollment.requested"
	EnrollmentStatusChanged   EventType = "enrollment.status_changed"
	EnrollmentDeleted         EventType = "enrollment.deleted"
	SubmissionSubmitted       EventType = "submission.submitted"
	SubmissionGraded          EventType = "submission.graded"
	AnnouncementPublished     EventType = "announcement.published"
	AnnouncementStatusChanged EventType = "announcement.status_changed"
	AccountCreated            EventType = "account.created"
	AccountDeleted            EventType = "account.deleted"
	AccountPasswordReset      EventType = "account.password_reset"
)

// Topic returns the broker topic an event type is published on
func (t EventType) Topic() string {
	return string(t)
}

// Event is the envelope of every domain event
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope stamped with a fresh id and the current time
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// DecodeData unmarshals the payload into dest
func (e *Event) DecodeData(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ===== PAYLOADS =====

type CourseEvent struct {
	CourseID   uint    `json:"course_id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	OldStatus  string  `json:"old_status,omitempty"`
	LecturerID *string `json:"lecturer_id,omitempty"`
	ActorID    string  `json:"actor_id"`
}

type EnrollmentEvent struct {
	EnrollmentID uint   `json:"enrollment_id"`
	CourseID     uint   `json:"course_id"`
	CourseName   string `json:"course_name,omitempty"`
	StudentID    string `json:"student_id"`
	Status       string `json:"status"`
	OldStatus    string `json:"old_status,omitempty"`
	ActorID      string `json:"actor_id"`
}

type SubmissionEvent struct {
	SubmissionID    uint     `json:"submission_id"`
	AssignmentID    uint     `json:"assignment_id"`
	AssignmentTitle string   `json:"assignment_title,omitempty"`
	CourseID        uint     `json:"course_id"`
	StudentID       string   `json:"student_id"`
	Score           *float64 `json:"score,omitempty"`
	MaxScore        int      `json:"max_score,omitempty"`
	ActorID         string   `json:"actor_id"`
}

type AnnouncementEvent struct {
	AnnouncementID uint   `json:"announcement_id"`
	Title          string `json:"title"`
	CourseID       *uint  `json:"course_id,omitempty"`
	IsGlobal       bool   `json:"is_global"`
	Status         string `json:"status"`
	OldStatus      string `json:"old_status,omitempty"`
	ActorID        string `json:"actor_id"`
}

type AccountEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	ActorID  string `json:"actor_id"`
}
