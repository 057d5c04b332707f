package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-records-api/api/swagger"
	"github.com/noah-isme/uni-records-api/internal/handler"
	"github.com/noah-isme/uni-records-api/internal/middleware"
	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	"github.com/noah-isme/uni-records-api/internal/service"
	"github.com/noah-isme/uni-records-api/pkg/cache"
	"github.com/noah-isme/uni-records-api/pkg/config"
	"github.com/noah-isme/uni-records-api/pkg/database"
	"github.com/noah-isme/uni-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/requestid"
)

// @title University Records API
// @version 0.1.0
// @description Account provisioning, catalog, enrollment and gradebook services
// @BasePath /
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

	credentialDB, err := database.NewPostgres(cfg.CredentialDB)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect credential database", "error", err)
	}
	defer credentialDB.Close()

	domainDB, err := database.NewPostgres(cfg.DomainDB)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect domain database", "error", err)
	}
	defer domainDB.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()

	credentialRepo := repository.NewCredentialRepository(credentialDB)
	profileRepo := repository.NewProfileRepository(domainDB)
	courseRepo := repository.NewCourseRepository(domainDB)
	sectionRepo := repository.NewSectionRepository(domainDB)
	enrollmentRepo := repository.NewEnrollmentRepository(domainDB)
	gradeRepo := repository.NewGradeRepository(domainDB)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(credentialRepo, validate, logr, service.AuthConfig{
		TokenSecret:       cfg.JWT.Secret,
		TokenExpiry:       cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		PasswordMinLength: cfg.Password.MinLength,
		BcryptCost:        cfg.Password.BcryptCost,
	})
	provisioningSvc := service.NewProvisioningService(credentialRepo, profileRepo, validate, logr, service.ProvisioningConfig{
		PasswordMinLength: cfg.Password.MinLength,
		BcryptCost:        cfg.Password.BcryptCost,
	})
	var catalogSvc *service.CatalogService
	if cacheRepo != nil {
		catalogSvc = service.NewCatalogService(courseRepo, sectionRepo, profileRepo, cacheRepo, cfg.Catalog.CacheTTL, validate, logr)
	} else {
		catalogSvc = service.NewCatalogService(courseRepo, sectionRepo, profileRepo, nil, cfg.Catalog.CacheTTL, validate, logr)
	}
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, profileRepo, metricsSvc, validate, logr)
	gradebookSvc := service.NewGradebookService(gradeRepo, enrollmentRepo, validate, logr, service.GradebookConfig{
		Weights: map[models.ComponentType]float64{
			models.ComponentMidterm:   cfg.Grading.MidtermWeight,
			models.ComponentFinalExam: cfg.Grading.FinalExamWeight,
			models.ComponentProject:   cfg.Grading.ProjectWeight,
		},
		MinScore:  cfg.Grading.MinScore,
		MaxScore:  cfg.Grading.MaxScore,
		Precision: cfg.Grading.Precision,
	})

	authHandler := handler.NewAuthHandler(authSvc)
	accountHandler := handler.NewAccountHandler(provisioningSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.PUT("/auth/password", authHandler.ChangePassword)

	authed.POST("/accounts", middleware.RequireRoles(models.RoleAdmin), accountHandler.Create)

	authed.GET("/courses", catalogHandler.ListCourses)
	authed.POST("/courses", middleware.RequireRoles(models.RoleAdmin), catalogHandler.CreateCourse)
	authed.GET("/sections", catalogHandler.ListSections)
	authed.POST("/sections", middleware.RequireRoles(models.RoleAdmin), catalogHandler.CreateSection)
	authed.PUT("/sections/:id/instructor", middleware.RequireRoles(models.RoleAdmin), catalogHandler.AssignInstructor)

	authed.POST("/enrollments", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), enrollmentHandler.Create)
	authed.POST("/enrollments/:id/drop", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), enrollmentHandler.Drop)
	authed.POST("/enrollments/:id/complete", middleware.RequireRoles(models.RoleAdmin), enrollmentHandler.Complete)
	authed.GET("/students/:studentId/enrollments", enrollmentHandler.ListByStudent)

	authed.PUT("/grades", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), gradebookHandler.Record)
	authed.GET("/enrollments/:id/grades", gradebookHandler.Components)
	authed.GET("/enrollments/:id/final-score", gradebookHandler.FinalScore)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
