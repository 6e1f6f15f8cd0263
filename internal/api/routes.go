package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// @Summary Sync a folder
		// @Description Record a sync job for the folder and dispatch it in the background
		// @Tags sync
		// @Accept json
		// @Produce json
		// @Param request body SyncRequest true "Folder to sync"
		// @Success 202 {object} SyncResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 503 {object} ErrorResponse "Task queue unavailable"
		// @Failure 500 {object} ErrorResponse
		// @Router /sync [post]
		v1.POST("/sync", h.SyncFolder)

		// @Summary Stream sync status
		// @Description WebSocket emitting one StatusEvent per second until the task finishes
		// @Tags sync
		// @Param task_id path string true "Task ID"
		// @Success 101 {object} StatusEvent
		// @Router /ws/sync_status/{task_id} [get]
		v1.GET("/ws/sync_status/:task_id", h.SyncStatus)

		// @Summary List synced folders
		// @Description Latest completed sync per folder, newest first
		// @Tags folders
		// @Produce json
		// @Success 200 {object} SyncedFoldersResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /synced_folders [get]
		v1.GET("/synced_folders", h.SyncedFolders)

		// @Summary Delete a folder
		// @Description Remove the folder's ingested content and its sync history
		// @Tags folders
		// @Accept json
		// @Param request body DeleteFolderRequest true "Folder to delete"
		// @Success 201 "Created"
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /delete_folder [post]
		v1.POST("/delete_folder", h.DeleteFolder)

		jobs := v1.Group("/jobs")
		{
			// @Summary Get a sync job
			// @Tags jobs
			// @Produce json
			// @Param id path string true "Job ID"
			// @Success 200 {object} models.SyncJob
			// @Failure 404 {object} ErrorResponse
			// @Router /jobs/{id} [get]
			jobs.GET("/:id", h.GetJob)

			// @Summary Cancel a sync job
			// @Description Revoke the job's task; the job ends FAILED
			// @Tags jobs
			// @Produce json
			// @Param id path string true "Job ID"
			// @Success 202 {object} map[string]string
			// @Failure 404 {object} ErrorResponse
			// @Failure 409 {object} ErrorResponse "Job already finished"
			// @Router /jobs/{id}/cancel [post]
			jobs.POST("/:id/cancel", h.CancelJob)
		}

		// @Summary Search content
		// @Tags content
		// @Produce json
		// @Param q query string true "Text to look for"
		// @Success 200 {object} SearchResponse
		// @Failure 400 {object} ErrorResponse
		// @Router /search [get]
		v1.GET("/search", h.Search)

		// @Summary Health check
		// @Tags health
		// @Produce json
		// @Success 200 {object} HealthResponse
		// @Failure 503 {object} HealthResponse
		// @Router /health [get]
		v1.GET("/health", h.Health)
	}

	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}
