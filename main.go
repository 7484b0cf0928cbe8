package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"chatwave-api/config"
	"chatwave-api/database"
	"chatwave-api/jobs"
	"chatwave-api/middleware"
	"chatwave-api/routes"
	"chatwave-api/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Seed database with test data (optional - for development)
	if err := database.SeedData(db); err != nil {
		log.Printf("Warning: Failed to seed database: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Port == "8080" { // Development
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(middleware.SetupCORS())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(gin.Recovery())

	// Email boundary (offline notification fallback)
	emailService := services.NewEmailService(cfg)

	// Setup routes and the realtime gateway
	routes.SetupRoutes(router, db, cfg, emailService)

	// Background pruning of resolved friend-request mirrors
	cleanupJob := jobs.NewRequestCleanupJob(db, time.Hour, 30*24*time.Hour)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	// Start server
	log.Printf("Starting ChatWave API server on port %s", cfg.Port)
	log.Printf("WebSocket gateway available at: ws://localhost:%s/ws", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
