package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type dashboardRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, redisClient *redis.Client) repositories.DashboardRepository {
	return &dashboardRepository{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// countQuery is one named counter of a dashboard
type countQuery struct {
	dest  *int64
	query *gorm.DB
	op    string
}

func runCounts(queries []countQuery) error {
	for _, q := range queries {
		if err := q.query.Count(q.dest).Error; err != nil {
			return handleDBError(err, q.op)
		}
	}
	return nil
}

// ===== ADMIN =====

func (r *dashboardRepository) GetAdminStats(ctx context.Context, tx *gorm.DB) (*repositories.AdminStats, error) {
	var stats repositories.AdminStats
	err := r.cacheManager.Stats.CacheOrExecute(ctx, "admin", &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.adminStats(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) adminStats(ctx context.Context, tx *gorm.DB) (*repositories.AdminStats, error) {
	db := pickDB(r.db, tx).WithContext(ctx)
	stats := &repositories.AdminStats{}

	err := runCounts([]countQuery{
		{&stats.TotalStudents, db.Model(&models.UserRoleAssignment{}).Where("role = ?", models.RoleStudent), "count students"},
		{&stats.TotalLecturers, db.Model(&models.UserRoleAssignment{}).Where("role = ?", models.RoleLecturer), "count lecturers"},
		{&stats.TotalCourses, db.Model(&models.Course{}), "count courses"},
		{&stats.PendingCourses, db.Model(&models.Course{}).Where("status = ?", models.CourseStatusPending), "count pending courses"},
		{&stats.PendingAnnouncements, db.Model(&models.Announcement{}).Where("status = ?", models.AnnouncementPending), "count pending announcements"},
		{&stats.PendingEnrollments, db.Model(&models.Enrollment{}).Where("status = ?", models.EnrollmentPending), "count pending enrollments"},
		{&stats.WithdrawalRequests, db.Model(&models.Enrollment{}).Where("status = ?", models.EnrollmentWithdrawalPending), "count withdrawal requests"},
		{&stats.TotalAssignments, db.Model(&models.Assignment{}), "count assignments"},
		{&stats.UngradedSubmissions, db.Model(&models.Submission{}).Where("score IS NULL"), "count ungraded submissions"},
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ===== LECTURER =====

func (r *dashboardRepository) GetLecturerStats(ctx context.Context, tx *gorm.DB, lecturerID string) (*repositories.LecturerStats, error) {
	var stats repositories.LecturerStats
	err := r.cacheManager.Stats.CacheOrExecute(ctx, "lecturer:"+lecturerID, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.lecturerStats(ctx, tx, lecturerID)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) lecturerStats(ctx context.Context, tx *gorm.DB, lecturerID string) (*repositories.LecturerStats, error) {
	db := pickDB(r.db, tx).WithContext(ctx)
	stats := &repositories.LecturerStats{}

	ownCourses := db.Model(&models.Course{}).Select("id").Where("lecturer_id = ?", lecturerID)
	ownEnrollments := func() *gorm.DB {
		return db.Model(&models.Enrollment{}).Where("course_id IN (?)", ownCourses)
	}

	err := runCounts([]countQuery{
		{&stats.TotalCourses, db.Model(&models.Course{}).Where("lecturer_id = ?", lecturerID), "count lecturer courses"},
		{&stats.ApprovedCourses, db.Model(&models.Course{}).Where("lecturer_id = ? AND status = ?", lecturerID, models.CourseStatusApproved), "count approved lecturer courses"},
		{&stats.PendingEnrollments, ownEnrollments().Where("status = ?", models.EnrollmentPending), "count pending enrollments"},
		{&stats.WithdrawalRequests, ownEnrollments().Where("status = ?", models.EnrollmentWithdrawalPending), "count withdrawal requests"},
		{&stats.TotalStudents, ownEnrollments().Where("status = ?", models.EnrollmentApproved).Distinct("student_id"), "count lecturer students"},
		{&stats.TotalAssignments, db.Model(&models.Assignment{}).Where("course_id IN (?)", ownCourses), "count lecturer assignments"},
		{&stats.UngradedSubmissions, db.Model(&models.Submission{}).
			Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
			Where("assignments.course_id IN (?) AND submissions.score IS NULL", ownCourses), "count ungraded submissions"},
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ===== STUDENT =====

func (r *dashboardRepository) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string, now time.Time) (*repositories.StudentStats, error) {
	var stats repositories.StudentStats
	err := r.cacheManager.Stats.CacheOrExecute(ctx, "student:"+studentID, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return r.studentStats(ctx, tx, studentID, now)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) studentStats(ctx context.Context, tx *gorm.DB, studentID string, now time.Time) (*repositories.StudentStats, error) {
	db := pickDB(r.db, tx).WithContext(ctx)
	stats := &repositories.StudentStats{}

	approvedCourses := db.Model(&models.Enrollment{}).Select("course_id").
		Where("student_id = ? AND status = ?", studentID, models.EnrollmentApproved)
	submitted := db.Model(&models.Submission{}).Select("assignment_id").Where("student_id = ?", studentID)

	err := runCounts([]countQuery{
		{&stats.ApprovedCourses, db.Model(&models.Enrollment{}).Where("student_id = ? AND status = ?", studentID, models.EnrollmentApproved), "count approved enrollments"},
		{&stats.PendingEnrollments, db.Model(&models.Enrollment{}).Where("student_id = ? AND status = ?", studentID, models.EnrollmentPending), "count pending enrollments"},
		{&stats.OpenAssignments, db.Model(&models.Assignment{}).
			Where("course_id IN (?)", approvedCourses).
			Where("id NOT IN (?)", submitted).
			Where("(due_date IS NULL OR due_date > ?)", now), "count open assignments"},
		{&stats.SubmittedCount, db.Model(&models.Submission{}).Where("student_id = ?", studentID), "count submissions"},
		{&stats.GradedSubmissions, db.Model(&models.Submission{}).Where("student_id = ? AND score IS NOT NULL", studentID), "count graded submissions"},
	})
	if err != nil {
		return nil, err
	}

	var avg struct {
		Avg *float64
	}
	if err := db.Model(&models.Submission{}).
		Select("AVG(score) AS avg").
		Where("student_id = ? AND score IS NOT NULL", studentID).
		Scan(&avg).Error; err != nil {
		return nil, handleDBError(err, "average student score")
	}
	stats.AverageScore = avg.Avg
	return stats, nil
}
