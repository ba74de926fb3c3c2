package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// Relayer is the part of the application the upload endpoints drive.
type Relayer interface {
	Relay(ctx context.Context, req *domain.UploadRequest) (*domain.Upload, error)
	GetUpload(id string) (*domain.Upload, error)
	ListUploads(filters map[string]interface{}) ([]*domain.Upload, error)
	GetStats() (*domain.UploadStats, error)
}

// UploadHandler handles relay HTTP requests
type UploadHandler struct {
	service Relayer
	logger  *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service Relayer, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger,
	}
}

// Upload handles POST /upload
func (h *UploadHandler) Upload(c *gin.Context) {
	var raw domain.RawUploadRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	req, err := domain.NormalizeRequest(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	upload, err := h.service.Relay(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("relay failed",
			zap.String("url", req.SourceURL),
			zap.String("chat", req.ChatID),
			zap.Error(err))

		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidURL) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message_id": upload.MessageID})
}

// GetUpload handles GET /api/v1/uploads/:id
func (h *UploadHandler) GetUpload(c *gin.Context) {
	id := c.Param("id")

	upload, err := h.service.GetUpload(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}

	c.JSON(http.StatusOK, upload)
}

// ListUploads handles GET /api/v1/uploads
func (h *UploadHandler) ListUploads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if kind := c.Query("kind"); kind != "" {
		filters["kind"] = kind
	}

	uploads, err := h.service.ListUploads(filters)
	if err != nil {
		h.logger.Error("Failed to list uploads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, uploads)
}

// GetStats handles GET /api/v1/uploads/stats
func (h *UploadHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
