package app

import (
	"lingo_stake_backend/docs"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/middleware"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. Public
	a.registerPublicRoutes(router, c)

	// 2. Scheduler
	cron := router.Group("/api/cron")
	cron.Use(middleware.CronAuth(cfg.Sweep.CronSecret))
	{
		cron.POST("/sweep", c.cron.Sweep)
	}

	// 3. Authenticated
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerChallengeRoutes(authGroup, c)
		a.registerTutorRoutes(authGroup, c)
	}

	// 4. Admin
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/sweep", c.cron.Sweep)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/challenges", c.challenge.List)
		public.GET("/challenges/yield-preview", c.challenge.YieldPreview)
		public.GET("/challenges/invite/:code", c.challenge.GetByInviteCode)
		public.GET("/challenges/:id", c.challenge.Get)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.Profile)
	rg.PUT("/user/profile", c.user.UpdateProfile)
	rg.POST("/user/avatar/upload", c.user.UploadAvatar)
	rg.GET("/users/stats", c.user.Stats)

	rg.GET("/notifications", c.notification.List)
	rg.GET("/notifications/unread-count", c.notification.UnreadCount)
	rg.PUT("/notifications/:id/read", c.notification.MarkRead)
	rg.PUT("/notifications/read-all", c.notification.MarkAllRead)

	rg.GET("/achievements", c.achievement.List)
	rg.GET("/transactions", c.challenge.Transactions)
	rg.GET("/my/challenges", c.challenge.MyChallenges)
}

func (a *App) registerChallengeRoutes(rg *gin.RouterGroup, c *controllers) {
	challenges := rg.Group("/challenges")
	{
		// Creator
		challenges.GET("/mine", c.challenge.Mine)
		challenges.POST("", c.challenge.Create)
		challenges.PUT("/:id", c.challenge.Update)
		challenges.PUT("/:id/active", c.challenge.SetActive)
		challenges.POST("/:id/contract", c.challenge.LinkContract)

		// Participant
		challenges.POST("/:id/join", c.challenge.Join)
		challenges.POST("/:id/progress", c.challenge.RecordProgress)
		challenges.GET("/:id/progress", c.challenge.ProgressHistory)
		challenges.GET("/:id/participation", c.challenge.Participation)
		challenges.POST("/:id/complete", c.challenge.Complete)
		challenges.POST("/:id/claim", c.challenge.Claim)
		challenges.POST("/:id/exit", c.challenge.Exit)
	}
}

func (a *App) registerTutorRoutes(rg *gin.RouterGroup, c *controllers) {
	tutor := rg.Group("/tutor")
	{
		tutor.POST("/chat", c.tutor.Chat)
		tutor.POST("/chat/stream", c.tutor.ChatStream)
		tutor.GET("/conversations", c.tutor.ListConversations)
		tutor.GET("/conversations/:id", c.tutor.GetConversation)
		tutor.DELETE("/conversations/:id", c.tutor.DeleteConversation)
		tutor.POST("/questions", c.tutor.Questions)
		tutor.POST("/speech", c.tutor.SubmitSpeech)
		tutor.GET("/speech", c.tutor.ListSpeech)
	}

	rg.POST("/voice/calls", c.voice.StartCall)
	rg.GET("/voice/calls", c.voice.List)
}
