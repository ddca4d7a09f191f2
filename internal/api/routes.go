package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cvForge/internal/api/middleware"
	"cvForge/internal/auth"
	"cvForge/internal/config"
	"cvForge/internal/database"
	"cvForge/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	resumeStore := database.NewResumeStore(db)
	profileStore := database.NewProfileStore(db)
	templateStore := database.NewTemplateStore(db)

	resumeHandler := NewResumeHandler(resumeStore, asynqClient, storageClient, cfg.Limits.MaxResumesPerUser)
	templateHandler := NewTemplateHandler(templateStore)
	profileHandler := NewProfileHandler(profileStore, storageClient, logger, cfg.Clamd.Addr)
	authHandler := NewAuthHandler(
		db,
		profileStore,
		authService,
		redisClient,
		logger,
		cfg.Limits.LoginRatePerHour,
		cfg.Limits.LoginLockThreshold,
		cfg.Limits.LoginLockTTL(),
		cfg.Auth.CookieDomain,
	)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.WSOrigins())

	authMiddleware := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		templateGroup := v1.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
		}

		v1.GET("/preview/:id", optionalAuth, resumeHandler.PreviewResume)

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PATCH("", profileHandler.UpdateProfile)
			profileGroup.POST("/avatar", profileHandler.UploadAvatar)
			profileGroup.GET("/avatar-link", profileHandler.GetAvatarLink)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.SaveResume)
			resumeGroup.PATCH("/:id/visibility", resumeHandler.SetVisibility)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/export", resumeHandler.ExportResume)
			resumeGroup.GET("/:id/export-link", resumeHandler.GetExportLink)
		}
	}
}
