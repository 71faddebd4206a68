package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/studyvault/studyvault-api/api/swagger"
	"github.com/studyvault/studyvault-api/internal/handler"
	"github.com/studyvault/studyvault-api/internal/middleware"
	"github.com/studyvault/studyvault-api/internal/models"
	"github.com/studyvault/studyvault-api/internal/repository"
	"github.com/studyvault/studyvault-api/internal/security"
	"github.com/studyvault/studyvault-api/internal/service"
	"github.com/studyvault/studyvault-api/pkg/cache"
	"github.com/studyvault/studyvault-api/pkg/captcha"
	"github.com/studyvault/studyvault-api/pkg/config"
	"github.com/studyvault/studyvault-api/pkg/database"
	"github.com/studyvault/studyvault-api/pkg/logger"
	corsmiddleware "github.com/studyvault/studyvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studyvault/studyvault-api/pkg/middleware/requestid"
	"github.com/studyvault/studyvault-api/pkg/storage"
)

// @title StudyVault API
// @version 1.0.0
// @description Course-material search and request portal
// @BasePath /api/v1
// @schemes http

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
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, snapshot cache disabled", "error", err)
		rdb = nil
	}

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	verifier := captcha.NewHTTPVerifier(cfg.Captcha)

	documentRepo := repository.NewDocumentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()
	tracker := security.NewTracker(security.TrackerConfig{
		FailureThreshold: cfg.Security.FailureThreshold,
		FailureWindow:    cfg.Security.FailureWindow,
		BanDuration:      cfg.Security.BanDuration,
	}, logr, rdb, metricsSvc)
	limiter := security.NewRateLimiter()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(documentRepo, rdb, metricsSvc, logr, cfg.Catalog.CacheTTL)
	documentSvc := service.NewDocumentService(documentRepo, store, signer, catalogSvc, metricsSvc, nil, logr, service.StorageLimits{
		MaxFileSizeBytes: cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Storage.AllowedMIMEs,
	})
	requestSvc := service.NewRequestService(requestRepo, limiter, tracker, verifier, metricsSvc, logr, service.IntakeConfig{
		RateLimit:       cfg.Intake.RateLimit,
		RateWindow:      cfg.Intake.RateWindow,
		DuplicateWindow: cfg.Intake.DuplicateWindow,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc, documentSvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	adminHandler := handler.NewAdminHandler(documentSvc, requestSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Guard(tracker))

	api.GET("/documents", catalogHandler.Search)
	api.GET("/documents/browse", catalogHandler.Browse)
	api.GET("/documents/options", catalogHandler.Options)
	api.GET("/documents/download-url", catalogHandler.DownloadURL)
	api.GET("/download", catalogHandler.Download)
	api.POST("/requests", requestHandler.Submit)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/documents", adminHandler.UploadDocument)
	admin.GET("/documents/export", adminHandler.ExportCatalog)
	admin.PATCH("/documents/*key", adminHandler.PatchDocument)
	admin.DELETE("/documents/*key", adminHandler.DeleteDocument)
	admin.GET("/requests", adminHandler.ListRequests)
	admin.DELETE("/requests/:id", adminHandler.DeleteRequest)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
