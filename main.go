package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"clinic-chat/bridge"
	"clinic-chat/config"
	"clinic-chat/handlers"
	"clinic-chat/services"
	"clinic-chat/workflows"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Connect to PostgreSQL for conversation history
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// One adapter per vendor; the bridge picks exactly one per turn
	backends := services.Backends{
		OpenAIChat:       services.NewOpenAIChatService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model),
		OpenAIAssistants: services.NewOpenAIAssistantsService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.AssistantID),
		Anthropic:        services.NewAnthropicService(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.Model),
	}
	chatBridge := bridge.New(cfg, backends)

	// Initialize workflows
	chatWorkflows := workflows.NewChatWorkflows(workflows.NewStore(db), chatBridge, cfg.History)

	// Initialize DBOS context for durable workflows
	dbosCtx, err := dbos.NewDBOSContext(context.Background(), dbos.Config{
		DatabaseURL: cfg.DatabaseURL,
		AppName:     "clinic-chat",
	})
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}

	// Register workflows with DBOS (MUST be before Launch)
	dbos.RegisterWorkflow(dbosCtx, chatWorkflows.TurnWorkflow)

	// Launch DBOS (starts workflow recovery)
	if err := dbos.Launch(dbosCtx); err != nil {
		log.Fatalf("Failed to launch DBOS: %v", err)
	}
	defer dbos.Shutdown(dbosCtx, 5*time.Second)
	log.Println("DBOS initialized - durable workflows enabled")

	// Initialize handlers
	tokens := handlers.NewTokenStore(30 * time.Minute)
	chatHandler := handlers.NewChatHandler(db, dbosCtx, chatWorkflows, chatBridge, tokens, cfg.History)

	// Setup Gin router
	router := gin.Default()

	// Enable CORS so the widget can call from the site origin
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Chat-Token")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// API routes
	api := router.Group("/api")
	{
		api.GET("/session", chatHandler.Session)
		api.POST("/chat", chatHandler.Chat)
		api.GET("/conversations/:threadId/messages", chatHandler.GetMessages)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "dbos": "enabled"})
	})

	// Start server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
