package routes

import (
	"directory-import-api/controllers"
	"directory-import-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, imports *controllers.ImportController) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Directory Import API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Imported listings (read side)
			listings := protected.Group("/listings")
			{
				listings.GET("", controllers.GetListings)
				listings.GET("/:id", controllers.GetListing)
			}

			// Resumable listing import (admin only, 3 = admin)
			admin := protected.Group("/admin/import/listings")
			admin.Use(middleware.RequireRole(3))
			{
				admin.POST("", imports.Start)
				admin.POST("/step", imports.Step)
				admin.POST("/cleanup", imports.Cleanup)
				admin.GET("/runs", imports.ListRuns)
			}
		}
	}
}
