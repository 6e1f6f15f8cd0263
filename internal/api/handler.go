package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/docsync/internal/content"
	"github.com/Kamar-Folarin/docsync/internal/errors"
	"github.com/Kamar-Folarin/docsync/internal/models"
	"github.com/Kamar-Folarin/docsync/internal/syncer"
)

// SyncService is the job engine behind the handlers
type SyncService interface {
	Submit(ctx context.Context, folderPath, homeDir string) (*syncer.SubmitResult, error)
	History(ctx context.Context) (*models.SyncedFolders, error)
	Delete(ctx context.Context, folderPath, homeDir string) error
	GetJob(ctx context.Context, jobID string) (*models.SyncJob, error)
	Cancel(ctx context.Context, jobID string) error
}

// ContentSearcher searches ingested content
type ContentSearcher interface {
	Search(ctx context.Context, query string) ([]content.Document, error)
}

// StatusStreamer serves the live status of a task over a websocket
type StatusStreamer interface {
	ServeWebSocket(w http.ResponseWriter, r *http.Request, taskID string)
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	syncService SyncService
	search      ContentSearcher
	streamer    StatusStreamer
	health      Pinger
	logger      *logrus.Logger
}

func NewHandler(
	syncService SyncService,
	search ContentSearcher,
	streamer StatusStreamer,
	health Pinger,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		syncService: syncService,
		search:      search,
		streamer:    streamer,
		health:      health,
		logger:      logger,
	}
}

// SyncFolder dispatches a folder sync job
func (h *Handler) SyncFolder(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.syncService.Submit(c.Request.Context(), req.FolderPath, req.HomeDir)
	if err != nil {
		h.respondWithError(c, err, "Failed to submit sync job")
		return
	}

	c.JSON(http.StatusAccepted, SyncResponse{
		JobID:  res.JobID,
		TaskID: res.TaskID,
		Status: string(res.Status),
	})
}

// SyncStatus streams task progress over a websocket
func (h *Handler) SyncStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "task_id is required"})
		return
	}
	h.streamer.ServeWebSocket(c.Writer, c.Request, taskID)
}

// SyncedFolders returns the latest completed sync of every folder
func (h *Handler) SyncedFolders(c *gin.Context) {
	history, err := h.syncService.History(c.Request.Context())
	if err != nil {
		h.respondWithError(c, err, "Failed to load synced folders")
		return
	}

	resp := SyncedFoldersResponse{
		Results:   make([]SyncedFolder, 0, len(history.Results)),
		FileCount: history.FileCount,
	}
	for _, r := range history.Results {
		resp.Results = append(resp.Results, SyncedFolder{
			FolderPath:     r.FolderPath,
			LastSyncedAt:   r.LastSyncedAt,
			TotalFiles:     r.TotalFiles,
			ProcessedFiles: r.ProcessedFiles,
			SkippedFiles:   r.SkippedFiles,
			Status:         string(r.Status),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteFolder removes a folder's content and job records
func (h *Handler) DeleteFolder(c *gin.Context) {
	var req DeleteFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.syncService.Delete(c.Request.Context(), req.FolderPath, req.HomeDir); err != nil {
		h.respondWithError(c, err, "Failed to delete folder")
		return
	}
	c.Status(http.StatusCreated)
}

// GetJob returns one sync job record
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.syncService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondWithError(c, err, "Failed to get sync job")
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelJob revokes a running or queued job
func (h *Handler) CancelJob(c *gin.Context) {
	if err := h.syncService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.respondWithError(c, err, "Failed to cancel sync job")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

// Search looks up ingested content
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "q is required"})
		return
	}

	docs, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		h.respondWithError(c, err, "Failed to search content")
		return
	}

	resp := SearchResponse{Query: query, Results: make([]SearchDocument, 0, len(docs))}
	for _, d := range docs {
		resp.Results = append(resp.Results, SearchDocument{
			ID:         d.ID,
			SourceFile: d.SourceFile,
			ChunkIndex: d.ChunkIndex,
			Title:      d.Title,
			Body:       d.Body,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Health reports whether the job store is reachable
func (h *Handler) Health(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) respondWithError(c *gin.Context, err error, msg string) {
	code := statusCode(err)
	entry := h.logger.WithError(err).WithField("path", c.FullPath())
	if code >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}

	message := err.Error()
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(code, ErrorResponse{Error: message})
}

func statusCode(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
