package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

type HandlerManager struct {
	courseHandler       *CourseHandler
	enrollmentHandler   *EnrollmentHandler
	assignmentHandler   *AssignmentHandler
	announcementHandler *AnnouncementHandler
	accountHandler      *AccountHandler
	userHandler         *UserHandler
	dashboardHandler    *DashboardHandler
	exportHandler       *ExportHandler
	authMiddleware      gin.HandlerFunc
	healthChecker       HealthChecker
}

// NewHandlerManager builds every handler from an initialized service manager.
// auth must set user_id and user_role on the gin context.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	auth gin.HandlerFunc,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		courseHandler:       NewCourseHandler(serviceManager.Course(), logger),
		enrollmentHandler:   NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		assignmentHandler:   NewAssignmentHandler(serviceManager.Assignment(), logger),
		announcementHandler: NewAnnouncementHandler(serviceManager.Announcement(), logger),
		accountHandler:      NewAccountHandler(serviceManager.Account(), logger),
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		dashboardHandler:    NewDashboardHandler(serviceManager.Dashboard(), logger),
		exportHandler:       NewExportHandler(serviceManager.ImportExport(), logger),
		authMiddleware:      auth,
		healthChecker:       serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck(hm.healthChecker))

	staff := RequireRole(models.RoleLecturer, models.RoleAdmin)
	adminOnly := RequireRole(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware)
	{
		// Own profile and per-user views
		me := v1.Group("/me")
		{
			me.GET("", hm.userHandler.GetProfile)
			me.PUT("", hm.userHandler.UpdateProfile)
			me.PUT("/password", hm.userHandler.ChangePassword)
			me.GET("/courses", hm.courseHandler.ListMyCourses)
			me.GET("/enrollments", hm.enrollmentHandler.ListMyEnrollments)
			me.GET("/assignments", hm.assignmentHandler.GetStudentFeed)
			me.GET("/submissions", hm.assignmentHandler.ListMySubmissions)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.POST("", staff, hm.courseHandler.CreateCourse)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.PUT("/:id", staff, hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", staff, hm.courseHandler.DeleteCourse)
			courses.PUT("/:id/status", adminOnly, hm.courseHandler.UpdateCourseStatus)

			courses.POST("/:id/register", hm.enrollmentHandler.Register)
			courses.GET("/:id/enrollments", staff, hm.enrollmentHandler.ListCourseEnrollments)
			courses.GET("/:id/assignments", hm.assignmentHandler.ListCourseAssignments)

			courses.GET("/:id/gradebook/export", staff, hm.exportHandler.ExportGradebook)
			courses.GET("/:id/roster/export", staff, hm.exportHandler.ExportRoster)
		}

		enrollments := v1.Group("/enrollments")
		{
			enrollments.GET("", hm.enrollmentHandler.ListEnrollments)
			enrollments.POST("", adminOnly, hm.enrollmentHandler.Enroll)
			enrollments.GET("/:id", hm.enrollmentHandler.GetEnrollment)
			enrollments.POST("/:id/actions", hm.enrollmentHandler.TransitionEnrollment)
			enrollments.PUT("/:id/progress", staff, hm.enrollmentHandler.UpdateProgress)
			enrollments.DELETE("/:id", staff, hm.enrollmentHandler.Unenroll)
		}

		students := v1.Group("/students")
		students.Use(staff)
		{
			students.GET("/:id/enrollments", hm.enrollmentHandler.ListStudentEnrollments)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.POST("", staff, hm.assignmentHandler.CreateAssignment)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.PUT("/:id", staff, hm.assignmentHandler.UpdateAssignment)
			assignments.DELETE("/:id", staff, hm.assignmentHandler.DeleteAssignment)
			assignments.POST("/:id/submissions", hm.assignmentHandler.Submit)
			assignments.GET("/:id/submissions", staff, hm.assignmentHandler.ListSubmissions)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.GET("/:id", hm.assignmentHandler.GetSubmission)
			submissions.PUT("/:id/grade", staff, hm.assignmentHandler.GradeSubmission)
		}

		announcements := v1.Group("/announcements")
		{
			announcements.GET("", hm.announcementHandler.ListAnnouncements)
			announcements.POST("", staff, hm.announcementHandler.CreateAnnouncement)
			announcements.GET("/:id", hm.announcementHandler.GetAnnouncement)
			announcements.PUT("/:id", staff, hm.announcementHandler.UpdateAnnouncement)
			announcements.DELETE("/:id", staff, hm.announcementHandler.DeleteAnnouncement)
			announcements.PUT("/:id/status", adminOnly, hm.announcementHandler.UpdateAnnouncementStatus)
		}

		// User directory. Lecturers are scoped to students by the service.
		users := v1.Group("/users")
		users.Use(staff)
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/search", hm.userHandler.SearchUsers)
			users.GET("/:id", hm.userHandler.GetUser)
			users.PUT("/:id/role", adminOnly, hm.userHandler.UpdateUserRole)
		}

		admin := v1.Group("/admin")
		admin.Use(adminOnly)
		{
			admin.POST("/users", hm.accountHandler.CreateUser)
			admin.DELETE("/users/:id", hm.accountHandler.DeleteUser)
			admin.POST("/users/:id/reset-password", hm.accountHandler.ResetPassword)
		}

		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("", hm.dashboardHandler.GetDashboard)
			dashboard.GET("/lecturers/:id", adminOnly, hm.dashboardHandler.GetLecturerDashboard)
		}
	}
}
