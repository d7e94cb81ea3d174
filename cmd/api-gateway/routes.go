package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sgac-unsa/sgac-api/internal/handler"
	"github.com/sgac-unsa/sgac-api/internal/middleware"
	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/service"
	"github.com/sgac-unsa/sgac-api/pkg/config"
	"github.com/sgac-unsa/sgac-api/pkg/logger"
	corsmiddleware "github.com/sgac-unsa/sgac-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sgac-unsa/sgac-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth         *handler.AuthHandler
	users        *handler.UserHandler
	semesters    *handler.SemesterHandler
	courses      *handler.CourseHandler
	classrooms   *handler.ClassroomHandler
	groups       *handler.GroupHandler
	sessions     *handler.SessionHandler
	enrollments  *handler.EnrollmentHandler
	attendance   *handler.AttendanceHandler
	grades       *handler.GradeHandler
	campaigns    *handler.CampaignHandler
	reservations *handler.ReservationHandler
	stats        *handler.StatsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(authSvc)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSecretary)
	professors := middleware.RequireRoles(models.RoleAdmin, models.RoleSecretary, models.RoleProfessor)
	students := middleware.RequireRoles(models.RoleStudent)

	api := r.Group(cfg.APIPrefix)

	pub := api.Group("/auth")
	{
		pub.POST("/login", h.auth.Login)
		pub.POST("/refresh", h.auth.Refresh)
	}

	priv := api.Group("")
	priv.Use(auth)
	{
		priv.POST("/auth/logout", h.auth.Logout)
		priv.POST("/auth/change-password", h.auth.ChangePassword)
		priv.GET("/auth/me", h.auth.Me)

		admins := middleware.RequireRoles(models.RoleAdmin)
		users := priv.Group("/users")
		{
			users.GET("", admins, h.users.List)
			users.POST("", admins, h.users.Create)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.users.Get)
			users.PUT("/:id", admins, h.users.Update)
			users.DELETE("/:id", admins, h.users.Delete)
		}

		semesters := priv.Group("/semesters")
		{
			semesters.GET("", h.semesters.List)
			semesters.GET("/active", h.semesters.Active)
			semesters.GET("/:id", h.semesters.Get)
			semesters.POST("", staff, h.semesters.Create)
			semesters.PUT("/:id", staff, h.semesters.Update)
			semesters.POST("/:id/activate", staff, h.semesters.Activate)
		}

		courses := priv.Group("/courses")
		{
			courses.GET("", h.courses.List)
			courses.GET("/:id", h.courses.Get)
			courses.POST("", staff, h.courses.Create)
			courses.PUT("/:id", staff, h.courses.Update)
		}

		classrooms := priv.Group("/classrooms")
		{
			classrooms.GET("", h.classrooms.List)
			classrooms.GET("/available", h.classrooms.Available)
			classrooms.GET("/:id", h.classrooms.Get)
			classrooms.POST("", staff, h.classrooms.Create)
			classrooms.PUT("/:id", staff, h.classrooms.Update)
		}

		groups := priv.Group("/groups")
		{
			groups.GET("", h.groups.ListCourseGroups)
			groups.GET("/:id", h.groups.GetCourseGroup)
			groups.POST("", staff, h.groups.CreateCourseGroup)
			groups.GET("/:id/labs", h.groups.ListLabGroups)
			groups.GET("/:id/sessions", h.sessions.TheorySessions)
			groups.GET("/:id/enrollments", professors, h.enrollments.Roster)
			groups.POST("/:id/attendance", professors, h.attendance.Save)
			groups.GET("/:id/attendance/:session", professors, h.attendance.SessionSheet)
			groups.GET("/:id/evaluations", professors, h.grades.ListEvaluations)
			groups.POST("/:id/evaluations", professors, h.grades.CreateEvaluation)
			groups.GET("/:id/campaigns", h.campaigns.ListByCourseGroup)
			groups.GET("/:id/campaigns/can-enable", staff, h.campaigns.CanEnable)
		}

		labGroups := priv.Group("/lab-groups")
		{
			labGroups.POST("", staff, h.groups.CreateLabGroup)
			labGroups.DELETE("/:id", staff, h.groups.DeleteLabGroup)
			labGroups.GET("/:id/sessions", h.sessions.LabSessions)
		}

		schedules := priv.Group("/schedules")
		{
			schedules.GET("", h.groups.ListSchedules)
			schedules.POST("", staff, h.groups.CreateSchedule)
			schedules.PUT("/day", staff, h.groups.ReplaceDaySchedules)
			schedules.POST("/check", staff, h.groups.CheckSlot)
			schedules.DELETE("/:id", staff, h.groups.DeleteSchedule)
		}

		enrollments := priv.Group("/enrollments")
		{
			enrollments.POST("", staff, h.enrollments.Enroll)
			enrollments.DELETE("/:id", staff, h.enrollments.Withdraw)
			enrollments.GET("/:id/attendance", h.attendance.StudentHistory)
			enrollments.POST("/:id/attendance/recalculate", professors, h.attendance.Recalculate)
			enrollments.GET("/:id/grades", h.grades.StudentGrades)
			enrollments.GET("/:id/grades/summary", h.grades.Summary)
			enrollments.POST("/:id/grades/recalculate", professors, h.grades.Recalculate)
		}

		priv.GET("/students/me/dashboard", students, h.enrollments.Dashboard)
		priv.GET("/students/:id/dashboard", staff, h.enrollments.StudentDashboard)

		priv.POST("/grades", professors, h.grades.SaveBatch)
		priv.GET("/evaluations/:id/grades", professors, h.grades.EvaluationSheet)

		campaigns := priv.Group("/campaigns")
		{
			campaigns.POST("", staff, h.campaigns.Enable)
			campaigns.GET("/:id/status", h.campaigns.Status)
			campaigns.POST("/:id/close", staff, h.campaigns.Close)
			campaigns.POST("/:id/assign", staff, h.campaigns.AssignDirect)
			campaigns.POST("/:id/postulations", students, h.campaigns.Postulate)
			campaigns.GET("/:id/postulations", staff, h.campaigns.ListPostulations)
			campaigns.GET("/:id/assignments", staff, h.campaigns.ListAssignments)
		}

		reservations := priv.Group("/reservations")
		{
			reservations.POST("", h.reservations.Create)
			reservations.GET("", staff, h.reservations.List)
			reservations.GET("/mine", h.reservations.Mine)
			reservations.POST("/:id/approve", staff, h.reservations.Approve)
			reservations.POST("/:id/reject", staff, h.reservations.Reject)
			reservations.DELETE("/:id", h.reservations.Cancel)
		}

		stats := priv.Group("/stats", staff)
		{
			stats.GET("/semesters/active", h.stats.ActiveSemesterStats)
			stats.GET("/semesters/:id", h.stats.SemesterStats)
			stats.GET("/system", h.stats.SystemMetrics)
		}
	}

	return r
}
