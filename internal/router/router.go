// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/panelforge/panelforge-backend/internal/config"
	"github.com/panelforge/panelforge-backend/internal/handlers"
	"github.com/panelforge/panelforge-backend/internal/middleware"
	"github.com/panelforge/panelforge-backend/internal/services"
	"github.com/panelforge/panelforge-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	locks := services.NewEntityLocks()
	notificationService := services.NewNotificationService(db)
	storageService, _ := services.NewStorageService(cfg)
	settlement := services.NewStripeSettlement(db, cfg)
	minter := services.NewLedgerMinter(db)

	authService := services.NewAuthService(db, cfg)
	catalogService := services.NewCatalogService(db, cfg)
	rulesService := services.NewRulesService(db, locks)
	revenueService := services.NewRevenueService(db, cfg)
	issuanceService := services.NewIssuanceService(db, revenueService, settlement, minter, notificationService, locks)
	readService := services.NewReadService(db, revenueService, settlement, locks)
	withdrawalService := services.NewWithdrawalService(db, cfg, settlement, notificationService, locks)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(catalogService, storageService)
	episodeHandler := handlers.NewEpisodeHandler(catalogService, rulesService, issuanceService, readService, storageService)
	earningsHandler := handlers.NewEarningsHandler(revenueService, withdrawalService, issuanceService, notificationService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Project catalog
		projects := v1.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/mine", middleware.AuthRequired(), middleware.CreatorRequired(), projectHandler.ListMyProjects)
			projects.POST("", middleware.AuthRequired(), middleware.CreatorRequired(), projectHandler.CreateProject)
			projects.GET("/:projectId", projectHandler.GetProject)
			projects.PATCH("/:projectId", middleware.AuthRequired(), middleware.CreatorRequired(), projectHandler.UpdateProject)
			projects.GET("/:projectId/episodes", projectHandler.ListEpisodes)
			projects.POST("/:projectId/episodes", middleware.AuthRequired(), middleware.CreatorRequired(), projectHandler.CreateEpisode)
			projects.POST("/:projectId/uploads", middleware.AuthRequired(), middleware.CreatorRequired(), middleware.UploadRateLimit(), projectHandler.UploadEpisodePages)
			projects.GET("/:projectId/earnings", middleware.AuthRequired(), middleware.CreatorRequired(), earningsHandler.GetProjectEarnings)
		}

		// Episodes
		episodes := v1.Group("/episodes")
		{
			episodes.GET("/:episodeId", episodeHandler.GetEpisode)
			episodes.GET("/:episodeId/rules", episodeHandler.GetMintingRules)
			episodes.PUT("/:episodeId/rules", middleware.AuthRequired(), middleware.CreatorRequired(), episodeHandler.SetMintingRules)
			episodes.POST("/:episodeId/live", middleware.AuthRequired(), middleware.CreatorRequired(), episodeHandler.GoLive)
			episodes.POST("/:episodeId/mint", middleware.AuthRequired(), middleware.PurchaseRateLimit(), episodeHandler.Mint)
			episodes.POST("/:episodeId/read", middleware.AuthRequired(), middleware.PurchaseRateLimit(), episodeHandler.Read)
			episodes.GET("/:episodeId/access", middleware.AuthRequired(), episodeHandler.CheckAccess)
			episodes.GET("/:episodeId/earnings", middleware.AuthRequired(), middleware.CreatorRequired(), earningsHandler.GetEpisodeEarnings)
		}

		// Tokens
		v1.GET("/tokens/mine", middleware.AuthRequired(), episodeHandler.ListMyTokens)

		// Earnings and withdrawals
		earnings := v1.Group("/earnings")
		earnings.Use(middleware.AuthRequired(), middleware.CreatorRequired())
		{
			earnings.GET("", earningsHandler.GetMyEarnings)
			earnings.POST("/withdraw", earningsHandler.Withdraw)
		}

		// Notifications
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", earningsHandler.ListNotifications)
			notifications.POST("/:notificationId/read", earningsHandler.MarkNotificationRead)
		}

		// Operator routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/platform/balance", earningsHandler.GetPlatformBalance)
			admin.POST("/platform/withdraw", earningsHandler.WithdrawPlatformFees)
			admin.GET("/reconciliation", earningsHandler.ListReconciliationEntries)
			admin.POST("/reconciliation/:entryId/resolve", earningsHandler.ResolveReconciliationEntry)
		}
	}

	return r
}
