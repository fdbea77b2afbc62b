package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

// UserLookup resolves mail recipients
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier mails users about events that concern them
type Notifier struct {
	users   UserLookup
	mailer  Mailer
	logger  *slog.Logger
	appName string
}

func New(users UserLookup, mailer Mailer, logger *slog.Logger, appName string) *Notifier {
	return &Notifier{
		users:   users,
		mailer:  mailer,
		logger:  logger,
		appName: appName,
	}
}

// NewRouter builds a watermill router with panic recovery and bounded retries
func NewRouter(logger *slog.Logger) (*message.Router, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)
	return router, nil
}

// Register subscribes the notifier handlers on router
func (n *Notifier) Register(router *message.Router, subscriber message.Subscriber) {
	router.AddConsumerHandler("notify_account_created", events.AccountCreated.Topic(), subscriber, n.HandleMessage)
	router.AddConsumerHandler("notify_enrollment_status", events.EnrollmentStatusChanged.Topic(), subscriber, n.HandleMessage)
	router.AddConsumerHandler("notify_submission_graded", events.SubmissionGraded.Topic(), subscriber, n.HandleMessage)
}

// HandleMessage decodes an event and mails the affected user.
// Undecodable events and unknown recipients are dropped so they are not redelivered forever.
func (n *Notifier) HandleMessage(msg *message.Message) error {
	event, err := events.DecodeMessage(msg)
	if err != nil {
		n.logger.Error("Dropping undecodable event", "message_id", msg.UUID, "error", err)
		return nil
	}
	return n.Handle(msg.Context(), event)
}

func (n *Notifier) Handle(ctx context.Context, event *events.Event) error {
	recipientID, subject, text, err := n.compose(event)
	if err != nil {
		n.logger.Error("Dropping event with invalid payload", "event_id", event.ID, "event_type", event.Type, "error", err)
		return nil
	}
	if recipientID == "" {
		return nil
	}

	user, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			n.logger.Warn("Recipient no longer exists", "user_id", recipientID, "event_type", event.Type)
			return nil
		}
		return fmt.Errorf("failed to load recipient %s: %w", recipientID, err)
	}
	if user.Email == "" {
		return nil
	}

	mail := Message{
		ToName:    user.FullName,
		ToAddress: user.Email,
		Subject:   subject,
		Text:      fmt.Sprintf("Hello %s,\n\n%s\n\n%s", user.FullName, text, n.appName),
	}
	if err := n.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("failed to send %s mail: %w", event.Type, err)
	}

	n.logger.Info("Notification sent", "event_type", event.Type, "user_id", user.ID)
	return nil
}

// compose returns the recipient and mail content for an event
func (n *Notifier) compose(event *events.Event) (recipientID, subject, text string, err error) {
	switch event.Type {
	case events.AccountCreated:
		var p events.AccountEvent
		if err = event.DecodeData(&p); err != nil {
			return
		}
		return p.UserID, "Your account is ready",
			fmt.Sprintf("An account has been created for you with the role %s. Sign in with %s.", p.Role, p.Email), nil

	case events.EnrollmentStatusChanged:
		var p events.EnrollmentEvent
		if err = event.DecodeData(&p); err != nil {
			return
		}
		course := p.CourseName
		if course == "" {
			course = fmt.Sprintf("course #%d", p.CourseID)
		}
		return p.StudentID, "Enrollment update",
			fmt.Sprintf("Your enrollment in %s is now %s.", course, p.Status), nil

	case events.SubmissionGraded:
		var p events.SubmissionEvent
		if err = event.DecodeData(&p); err != nil {
			return
		}
		score := "-"
		if p.Score != nil {
			score = fmt.Sprintf("%g/%d", *p.Score, p.MaxScore)
		}
		title := p.AssignmentTitle
		if title == "" {
			title = fmt.Sprintf("assignment #%d", p.AssignmentID)
		}
		return p.StudentID, "Submission graded",
			fmt.Sprintf("Your submission for %s was graded: %s.", title, score), nil
	}
	return "", "", "", nil
}
