package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/sgac-unsa/sgac-api/api/swagger"
	"github.com/sgac-unsa/sgac-api/internal/handler"
	"github.com/sgac-unsa/sgac-api/internal/models"
	"github.com/sgac-unsa/sgac-api/internal/repository"
	"github.com/sgac-unsa/sgac-api/internal/service"
	"github.com/sgac-unsa/sgac-api/pkg/cache"
	"github.com/sgac-unsa/sgac-api/pkg/config"
	"github.com/sgac-unsa/sgac-api/pkg/database"
	"github.com/sgac-unsa/sgac-api/pkg/jobs"
	"github.com/sgac-unsa/sgac-api/pkg/logger"
)

// @title SGAC API
// @version 1.0.0
// @description Academic administration API: semesters, groups, lab campaigns, attendance, grades and reservations
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API degrades to uncached behaviour without redis.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.Enabled && redisClient != nil)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	dayStart := models.MustTimeOfDay(cfg.Academic.DayStart)
	dayEnd := models.MustTimeOfDay(cfg.Academic.DayEnd)
	weeklyRoomHours := (dayEnd.Minutes() - dayStart.Minutes()).Hours() * 6

	// Services.
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sgac-api",
		Audience:           []string{"sgac-clients"},
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	conflictSvc := service.NewConflictService(groupRepo, classroomRepo, reservationRepo, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, conflictSvc, nil, logr)
	groupSvc := service.NewGroupService(groupRepo, courseRepo, semesterRepo, classroomRepo, conflictSvc, campaignRepo, dayStart, dayEnd, nil, logr)
	sessionSvc := service.NewSessionService(groupRepo, semesterRepo, cfg.Academic.LabStartOffsetDays, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, groupRepo, cfg.Academic.AttendanceApprovedPct, cfg.Academic.AttendanceRiskPct, nil, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, nil, logr)
	gradeSvc := service.NewGradeService(gradeRepo, courseRepo, enrollmentRepo, nil, logr)
	campaignSvc := service.NewCampaignService(campaignRepo, groupRepo, enrollmentRepo, courseRepo, conflictSvc, cacheSvc, cfg.Campaigns.DefaultDurationDays, cfg.Campaigns.StatusCacheTTL, nil, logr)
	reservationSvc := service.NewReservationService(reservationRepo, classroomRepo, conflictSvc, dayStart, dayEnd, cfg.Academic.MinReservation, nil, logr)
	statsSvc := service.NewStatsService(groupRepo, semesterRepo, cacheSvc, weeklyRoomHours, logr)

	// Background assignment workers.
	assignQueue := jobs.NewQueue("campaign-assigner", func(ctx context.Context, job jobs.Job) error {
		campaignID := job.Payload
		report, err := campaignSvc.AssignDirect(ctx, campaignID)
		if err != nil {
			return err
		}
		logr.Info("assignment batch finished",
			zap.String("campaignId", campaignID),
			zap.Int("assigned", len(report.Assigned)),
			zap.Int("skipped", len(report.Skipped)))
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Assigner.Workers,
		MaxRetries: cfg.Assigner.MaxRetries,
		Logger:     logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assignQueue.Start(ctx)
	defer assignQueue.Stop()

	handlers := routeHandlers{
		auth:         handler.NewAuthHandler(authSvc),
		users:        handler.NewUserHandler(userSvc),
		semesters:    handler.NewSemesterHandler(semesterSvc),
		courses:      handler.NewCourseHandler(courseSvc),
		classrooms:   handler.NewClassroomHandler(classroomSvc),
		groups:       handler.NewGroupHandler(groupSvc),
		sessions:     handler.NewSessionHandler(sessionSvc),
		enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		attendance:   handler.NewAttendanceHandler(attendanceSvc),
		grades:       handler.NewGradeHandler(gradeSvc),
		campaigns:    handler.NewCampaignHandler(campaignSvc, assignQueue),
		reservations: handler.NewReservationHandler(reservationSvc),
		stats:        handler.NewStatsHandler(statsSvc, metricsSvc),
	}

	router := newRouter(cfg, logr, authSvc, metricsSvc, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
