package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/jerson3105/juriv2-sub007/api/swagger"
	"github.com/jerson3105/juriv2-sub007/internal/handler"
	internalmiddleware "github.com/jerson3105/juriv2-sub007/internal/middleware"
	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/repository"
	"github.com/jerson3105/juriv2-sub007/internal/service"
	"github.com/jerson3105/juriv2-sub007/pkg/cache"
	"github.com/jerson3105/juriv2-sub007/pkg/config"
	"github.com/jerson3105/juriv2-sub007/pkg/database"
	"github.com/jerson3105/juriv2-sub007/pkg/jobs"
	"github.com/jerson3105/juriv2-sub007/pkg/logger"
	corsmiddleware "github.com/jerson3105/juriv2-sub007/pkg/middleware/cors"
	reqidmiddleware "github.com/jerson3105/juriv2-sub007/pkg/middleware/requestid"
)

// @title Classroom Progression API
// @version 1.0.0
// @description Reward propagation engine for gamified classrooms
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
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progression, realtimeQueue := buildProgression(ctx, cfg, db, redisClient, metricsSvc, logr)
	if realtimeQueue != nil {
		defer realtimeQueue.Stop()
	}

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	progressionHandler := handler.NewProgressionHandler(progression)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc, cfg.Metrics.Path, "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta(), internalmiddleware.JWT(authSvc))
	registerProgressionRoutes(api, progressionHandler, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logr.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

func buildProgression(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metricsSvc *service.MetricsService, logr *zap.Logger) (*service.ProgressionService, *jobs.Queue) {
	validate := validator.New()
	loc := cfg.Progression.Location()

	students := repository.NewStudentRepository(db)
	pointLogs := repository.NewPointLogRepository(db)
	behaviors := repository.NewBehaviorRepository(db)
	teams := repository.NewTeamRepository(db)
	missions := repository.NewMissionRepository(db)
	streaks := repository.NewStreakRepository(db)
	badges := repository.NewBadgeRepository(db)
	notifications := repository.NewNotificationRepository(db)

	classrooms := service.NewClassroomProvider(
		repository.NewClassroomRepository(db),
		repository.NewCacheRepository(redisClient, "progression"),
		metricsSvc,
		cfg.Progression.ClassroomCacheTTL,
		cfg.Progression.ClassroomCache,
		logr,
	)

	var (
		emitter       *service.NotificationEmitter
		realtimeQueue *jobs.Queue
	)
	if cfg.Realtime.Enabled {
		publisher := repository.NewNotificationPublisher(redisClient, cfg.Realtime.ChannelPrefix)
		realtimeQueue = jobs.NewQueue("realtime", service.RealtimeJobHandler(publisher), jobs.QueueConfig{
			Workers:    cfg.Realtime.Workers,
			MaxRetries: cfg.Realtime.Retries,
			RetryDelay: cfg.Realtime.RetryDelay,
			Logger:     logr,
			OnDrop: func(job jobs.Job, err error) {
				// full-buffer drops are counted by the dispatcher
				if !errors.Is(err, jobs.ErrQueueFull) {
					metricsSvc.RecordRealtimeDrop()
				}
			},
		})
		realtimeQueue.Start(ctx)
		dispatcher := service.NewNotificationDispatcher(realtimeQueue, metricsSvc, logr)
		emitter = service.NewNotificationEmitter(notifications, dispatcher, metricsSvc, logr)
	} else {
		emitter = service.NewNotificationEmitter(notifications, nil, metricsSvc, logr)
	}

	ledger := service.NewPointLedger(students, pointLogs, metricsSvc, logr)
	levels := service.NewLevelCalculator(students, cfg.Progression.DefaultXPPerLevel, metricsSvc)
	tracker := service.NewMissionTracker(missions, streaks, loc, metricsSvc, logr)
	evaluator := service.NewBadgeEvaluator(badges, behaviors, ledger, levels, metricsSvc, logr)
	clans := service.NewClanDistributor(teams, metricsSvc, logr)

	effects := service.NewEffectPipeline(metricsSvc, logr,
		service.NewClanEffect(clans),
		service.NewMissionEffect(tracker, emitter),
		service.NewBadgeEffect(evaluator, emitter),
		service.NewNotificationEffect(emitter),
	)

	progression := service.NewProgressionService(service.ProgressionDeps{
		Classrooms:  classrooms,
		Students:    students,
		Behaviors:   behaviors,
		Missions:    missions,
		Streaks:     streaks,
		Badges:      badges,
		Ledger:      ledger,
		Levels:      levels,
		Tracker:     tracker,
		Evaluator:   evaluator,
		Emitter:     emitter,
		Effects:     effects,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
		Location:    loc,
		MaxStudents: cfg.Progression.MaxStudentsPerCall,
	})
	return progression, realtimeQueue
}

func registerProgressionRoutes(api *gin.RouterGroup, h *handler.ProgressionHandler, logr *zap.Logger) {
	teacherOnly := internalmiddleware.RequireRoles(models.RoleTeacher)
	audit := func(action string) gin.HandlerFunc { return internalmiddleware.Audit(logr, action) }

	progression := api.Group("/progression")
	progression.POST("/behaviors/apply", teacherOnly, audit("behavior.apply"), h.ApplyBehavior)
	progression.POST("/points", teacherOnly, audit("points.apply"), h.ApplyPoints)
	progression.POST("/activities/complete", teacherOnly, audit("activity.complete"), h.CompleteActivity)
	progression.GET("/streak-milestones", h.Milestones)

	students := api.Group("/students/:studentId")
	students.GET("/points/history", h.History)
	students.GET("/progress", h.Progress)
	students.POST("/login", audit("login.claim"), h.ClaimDailyLogin)
	students.POST("/streak/milestones/:days/claim", audit("milestone.claim"), h.ClaimStreakMilestone)

	api.POST("/missions/:studentMissionId/claim", audit("mission.claim"), h.ClaimMission)
	api.POST("/classrooms/:classroomId/badges/:badgeId/award", teacherOnly, audit("badge.award"), h.AwardBadge)
}
