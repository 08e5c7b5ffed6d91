package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/attendance-api/api/swagger"
	"github.com/campushq/attendance-api/internal/handler"
	"github.com/campushq/attendance-api/internal/middleware"
	"github.com/campushq/attendance-api/internal/models"
	"github.com/campushq/attendance-api/internal/repository"
	"github.com/campushq/attendance-api/internal/service"
	"github.com/campushq/attendance-api/internal/verify"
	"github.com/campushq/attendance-api/pkg/cache"
	"github.com/campushq/attendance-api/pkg/config"
	"github.com/campushq/attendance-api/pkg/database"
	"github.com/campushq/attendance-api/pkg/export"
	"github.com/campushq/attendance-api/pkg/logger"
	corsmiddleware "github.com/campushq/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/attendance-api/pkg/middleware/requestid"
)

// @title Attendance API
// @version 1.0.0
// @description Attendance session verification and membership service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	faceClient := verify.NewFaceClient(cfg.Verify.FaceServiceURL, cfg.Verify.Timeout, cfg.Verify.Skip)
	smsClient := verify.NewSMSClient(cfg.Verify.SMSServiceURL, cfg.Verify.Timeout, cfg.Verify.Skip)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "attendance-api",
	})
	courseService := service.NewCourseService(courseRepo, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, courseRepo, cacheRepo, cfg.Sessions.ResumptionTTL, logr)
	participationService := service.NewParticipationService(sessionRepo, cacheRepo, cfg.Sessions.ActiveCacheTTL, logr)
	verificationService := service.NewVerificationService(sessionRepo, participationService, faceClient, smsClient, cfg.Sessions.AttemptTTL, logr)
	adminSessionService := service.NewAdminSessionService(sessionRepo, userRepo, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	userService := service.NewUserService(userRepo, faceClient, validate, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(participationService, verificationService, metricsService)
	teacherHandler := handler.NewTeacherSessionHandler(sessionService, courseService)
	adminHandler := handler.NewAdminSessionHandler(adminSessionService, participationService)
	courseHandler := handler.NewCourseHandler(courseService)
	userHandler := handler.NewUserHandler(userService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	student := api.Group("/sessions")
	student.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleStudent))
	student.GET("/active", sessionHandler.Active)
	student.GET("/attempt", sessionHandler.Attempt)
	student.POST("/:id/attempt", sessionHandler.SelectSession)
	student.DELETE("/:id/attempt", sessionHandler.AbandonAttempt)
	student.POST("/:id/attempt/sms", sessionHandler.ConfirmSMS)
	student.POST("/:id/attempt/face", sessionHandler.ConfirmFace)
	student.POST("/:id/commit", sessionHandler.Commit)

	teacher := api.Group("/teacher")
	teacher.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleTeacher))
	teacher.GET("/courses", teacherHandler.Courses)
	teacher.POST("/sessions", teacherHandler.Start)
	teacher.GET("/sessions/current", teacherHandler.Current)
	teacher.DELETE("/sessions/current", teacherHandler.End)
	teacher.GET("/sessions/current/participants", teacherHandler.Roster)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/sessions", adminHandler.History)
	admin.GET("/sessions/export", adminHandler.Export)
	admin.POST("/sessions/import", adminHandler.Import)
	admin.GET("/sessions/:id", adminHandler.Detail)
	admin.PUT("/sessions/:id", adminHandler.ReplaceParticipants)
	admin.GET("/courses", courseHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:code", courseHandler.Update)
	admin.DELETE("/courses/:code", courseHandler.Delete)
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.POST("/users/:id/face", userHandler.EnrollFace)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
