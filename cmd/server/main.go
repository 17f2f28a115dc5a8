package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rahulp1273/recipe-hub/internal/config"
	"github.com/rahulp1273/recipe-hub/internal/handler"
	"github.com/rahulp1273/recipe-hub/internal/middleware"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/internal/repository"
	"github.com/rahulp1273/recipe-hub/internal/service"
	"github.com/rahulp1273/recipe-hub/migrations"
	"github.com/rahulp1273/recipe-hub/pkg/auth"
	"github.com/rahulp1273/recipe-hub/pkg/clock"
	"github.com/rahulp1273/recipe-hub/pkg/logger"
	"github.com/rahulp1273/recipe-hub/pkg/mailer"
	"github.com/rahulp1273/recipe-hub/pkg/otpcode"
	"github.com/rahulp1273/recipe-hub/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           RecipeHub API
// @version         1.0
// @description     Accounts, email OTP verification and profiles for RecipeHub.

// @contact.name   API Support
// @contact.email  support@recipehub.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()

	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync(log)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	log.Info("starting RecipeHub API", zap.String("env", cfg.App.Env))

	// ==================== Database (PostgreSQL) ====================
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.App.Env == "production" {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Warn("migration failed, falling back to AutoMigrate", zap.Error(err))
		if err := db.AutoMigrate(&model.User{}, &model.OTPRecord{}); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	pingCancel()
	log.Info("connected to Redis")

	// ==================== Email (SMTP) ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}, log)
	log.Info("SMTP configured", zap.String("host", cfg.SMTP.Host), zap.String("port", cfg.SMTP.Port))

	// ==================== MinIO (optional) ====================
	var fileStorage storage.Storage
	minioCtx, minioCancel := context.WithTimeout(context.Background(), 10*time.Second)
	minioStorage, err := storage.NewMinIO(minioCtx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	}, log)
	minioCancel()
	if err != nil {
		log.Warn("MinIO not available, avatar upload disabled", zap.Error(err))
	} else {
		fileStorage = minioStorage
		log.Info("connected to MinIO", zap.String("bucket", cfg.MinIO.Bucket))
	}

	// ==================== Initialize Layers ====================
	clk := clock.New()
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry, clk)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	issueThrottle := repository.NewIssueThrottle(rdb, cfg.OTP.IssueLimit, cfg.OTP.IssueWindow)
	blacklist := repository.NewTokenBlacklist(rdb)

	// Services
	otpService := service.NewOTPService(
		otpRepo,
		userRepo,
		mailClient,
		issueThrottle,
		otpcode.NewHasher(cfg.OTP.HashSecret),
		clk,
		service.OTPPolicy{TTL: cfg.OTP.TTL, MaxAttempts: cfg.OTP.MaxAttempts},
		log,
	)
	authService := service.NewAuthService(userRepo, otpService, jwtManager, blacklist, fileStorage, log)
	profileService := service.NewProfileService(userRepo, fileStorage, log)

	sweeper, err := service.NewOTPSweeper(otpService, cfg.OTP.SweepSchedule, log)
	if err != nil {
		log.Fatal("invalid OTP sweep schedule", zap.Error(err))
	}
	sweeper.Start()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	profileHandler := handler.NewProfileHandler(profileService, log)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "recipehub-api",
			"time":    clk.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/verify-otp", authHandler.VerifyOTP)
			authGroup.POST("/resend-otp", authHandler.ResendOTP)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, blacklist))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", profileHandler.GetProfile)

			protected.GET("/profile", profileHandler.GetProfile)
			protected.PUT("/profile", profileHandler.UpdateProfile)
			protected.POST("/profile/avatar", profileHandler.UploadAvatar)
			protected.DELETE("/profile/avatar", profileHandler.RemoveAvatar)
			protected.PUT("/profile/password", profileHandler.ChangePassword)
		}
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("RecipeHub API listening",
		zap.String("addr", "http://0.0.0.0:"+cfg.App.Port),
		zap.String("docs", "/swagger/index.html"),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	sweeper.Stop()
	otpService.Wait()
	log.Info("server exited gracefully")
}
