package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/ai"
	"github.com/momo0222/momail-backend/internal/api/handlers"
	"github.com/momo0222/momail-backend/internal/api/middleware"
	"github.com/momo0222/momail-backend/internal/config"
	"github.com/momo0222/momail-backend/internal/functions"
	"github.com/momo0222/momail-backend/internal/mail"
	"github.com/momo0222/momail-backend/internal/services"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.APIKeyManager, error) {
	router := gin.Default()

	// 配置 CORS - 允许跨域请求
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Initialize API key manager
	apiKeyManager, err := middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	// Pick the mail provider: the real IMAP account or the simulated
	// mailbox in demo mode
	var provider mail.Provider
	var demoProvider *mail.DemoProvider
	if cfg.DemoMode {
		demoProvider = mail.NewDemoProvider(cfg.Mail.Address)
		provider = demoProvider
	} else {
		provider = mail.NewIMAPProvider(cfg.Mail)
	}

	// AI client with local heuristic fallback for classification
	aiClient := ai.NewClient()
	aiClient.ConfigureWithBaseURL(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
	classifier := functions.NewClassifier(aiClient)

	// Initialize services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	configService := services.NewConfigService(db, logService)
	actionService := services.NewActionService(db, logService)
	executor := services.NewExecutor(db, provider, actionService, configService, logService)
	emailService := services.NewEmailService(db, provider, logService)
	bulkService := services.NewBulkService(db, provider, actionService, executor, logService)
	chatService := services.NewChatService(db, aiClient, bulkService, logService)
	agentService := services.NewAgentService(db, provider, classifier, aiClient, actionService, configService, logService)

	// Initialize handlers
	agentHandler := handlers.NewAgentHandler(agentService, actionService, emailService, chatService, logService)
	actionHandler := handlers.NewActionHandler(actionService, executor, logService)
	emailHandler := handlers.NewEmailHandler(emailService, logService)
	bulkHandler := handlers.NewBulkHandler(bulkService, logService)
	configHandler := handlers.NewConfigHandler(configService, logService)
	aiHandler := handlers.NewAIHandler(aiClient, emailService, logService)
	logsHandler := handlers.NewLogsHandler(logService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Apply API key middleware to all API routes
		api.Use(middleware.APIKeyMiddleware(apiKeyManager))

		// Agent routes
		agent := api.Group("/agent")
		{
			agent.POST("/start", agentHandler.Start)
			agent.POST("/stop", agentHandler.Stop)
			agent.GET("/status", agentHandler.GetStatus)
			agent.POST("/triage", agentHandler.Triage)
			agent.POST("/propose", agentHandler.Propose)
			agent.POST("/chat", agentHandler.Chat)
		}

		// Action ledger routes
		actions := api.Group("/actions")
		{
			actions.GET("", actionHandler.ListActions)
			actions.GET("/pending", actionHandler.ListPending)
			actions.GET("/stats", actionHandler.GetStats)
			actions.GET("/:id", actionHandler.GetAction)
			actions.POST("/:id/approve", actionHandler.Approve)
			actions.POST("/:id/reject", actionHandler.Reject)
			actions.POST("/:id/execute", actionHandler.Execute)
			actions.DELETE("/:id", actionHandler.DeleteAction)
		}

		// Email routes
		emails := api.Group("/emails")
		{
			emails.GET("", emailHandler.ListEmails)
			emails.GET("/stats", emailHandler.GetStats)
			emails.GET("/threads", emailHandler.ListThreads)
			emails.GET("/threads/:thread_id", emailHandler.GetThread)
			emails.POST("/send", emailHandler.Compose)
			emails.GET("/:id", emailHandler.GetEmail)
			emails.DELETE("/:id", emailHandler.DeleteEmail)
			emails.PUT("/:id/read", emailHandler.MarkAsRead)
			emails.POST("/:id/reply", emailHandler.Reply)
		}

		// Bulk routes
		bulk := api.Group("/bulk")
		{
			bulk.POST("/archive", bulkHandler.ArchiveBySender)
			bulk.POST("/read", bulkHandler.MarkRead)
			bulk.POST("/delete", bulkHandler.Delete)
			bulk.POST("/delete-by-sender", bulkHandler.DeleteBySender)
			bulk.POST("/execute", bulkHandler.ExecuteAllPending)
		}

		// Config routes
		configGroup := api.Group("/config")
		{
			configGroup.GET("", configHandler.GetConfig)
			configGroup.PUT("", configHandler.UpdateConfig)
		}

		// AI drafting routes
		aiGroup := api.Group("/ai")
		{
			aiGroup.POST("/draft-reply", aiHandler.DraftReply)
			aiGroup.POST("/generate", aiHandler.GenerateEmail)
		}

		// Activity log
		api.GET("/logs", logsHandler.ListLogs)

		// Demo routes, only in demo mode
		if demoProvider != nil {
			demoHandler := handlers.NewDemoHandler(demoProvider, logService)
			demo := api.Group("/demo")
			{
				demo.POST("/simulate", demoHandler.Simulate)
				demo.GET("/sent", demoHandler.ListSent)
			}
		}
	}

	return router, apiKeyManager, nil
}
