package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent_Envelope(t *testing.T) {
	event, err := NewEvent(EnrollmentStatusChanged, EnrollmentEvent{EnrollmentID: 4, CourseID: 2, StudentID: "s1", Status: "approved"})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Source != "lms-service" {
		t.Errorf("Source = %q, want lms-service", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if event.Type.Topic() != "enrollment.status_changed" {
		t.Errorf("Topic = %q", event.Type.Topic())
	}

	var payload EnrollmentEvent
	if err := event.DecodeData(&payload); err != nil {
		t.Fatalf("DecodeData() error = %v", err)
	}
	if payload.StudentID != "s1" || payload.Status != "approved" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestWatermillEventPublisher_InMemoryBus(t *testing.T) {
	logger := discardLogger()
	bus := NewInMemoryBus(logger)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscribe(ctx, AccountCreated.Topic())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publisher := NewWatermillEventPublisher(bus, logger)
	sent, _ := NewEvent(AccountCreated, AccountEvent{UserID: "u1", Email: "u1@example.com", Role: "student"})
	if err := publisher.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		got, err := DecodeMessage(msg)
		if err != nil {
			t.Fatalf("DecodeMessage() error = %v", err)
		}
		if got.ID != sent.ID || got.Type != AccountCreated {
			t.Errorf("got = %+v, want id %s", got, sent.ID)
		}
		if msg.Metadata.Get("event_type") != "account.created" {
			t.Errorf("metadata event_type = %q", msg.Metadata.Get("event_type"))
		}
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(discardLogger())
	ctx := context.Background()

	e1, _ := NewEvent(CourseCreated, CourseEvent{CourseID: 1})
	e2, _ := NewEvent(SubmissionGraded, SubmissionEvent{SubmissionID: 2})
	_ = mock.Publish(ctx, e1)
	_ = mock.Publish(ctx, e2)

	if got := len(mock.GetPublishedEvents()); got != 2 {
		t.Fatalf("events = %d, want 2", got)
	}
	if got := len(mock.EventsOfType(SubmissionGraded)); got != 1 {
		t.Errorf("graded events = %d, want 1", got)
	}

	mock.ClearEvents()
	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("events after clear = %d", got)
	}

	boom := errors.New("broker down")
	mock.FailWith(boom)
	if err := mock.Publish(ctx, e1); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want %v", err, boom)
	}
}
