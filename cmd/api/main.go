package main

import (
	"log"
	"os"

	"directory-import-api/config"
	"directory-import-api/controllers"
	"directory-import-api/middleware"
	"directory-import-api/models"
	"directory-import-api/routes"
	"directory-import-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logging and database
	config.InitLogging()
	config.InitDB()

	if err := config.DB.AutoMigrate(&models.Listing{}, &models.ListingCategory{}, &models.ImportRun{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Wire the import pipeline
	sessions := services.NewSessionStore(services.SessionIdleExpiry)
	defer sessions.Stop()

	engine := services.NewBatchEngine(services.NewListingRepository(config.DB))
	runs := services.NewImportRunService(config.DB)
	imports := controllers.NewImportController(sessions, engine, runs, services.NewNotifierFromEnv())

	// Idle sessions are reclaimed in the background; their run records are
	// closed out as failed so abandoned imports stay visible.
	sessions.StartJanitor(services.JanitorInterval, imports.ExpireSession)

	// Setup routes
	routes.SetupRoutes(router, imports)

	// Create upload directory if not exists
	if err := os.MkdirAll(imports.UploadDir, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create upload directory: %v", err)
	}

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
