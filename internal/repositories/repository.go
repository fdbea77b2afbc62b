package repositories

import "context"

// Repository aggregates all repositories of the service
type Repository interface {
	// Course domain
	Course() CourseRepository
	Enrollment() EnrollmentRepository

	// Coursework domain
	Assignment() AssignmentRepository
	Submission() SubmissionRepository

	// Announcement domain
	Announcement() AnnouncementRepository

	// Identity domain (profiles in Casdoor, roles in postgres)
	User() UserRepository
	Role() RoleRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
