package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/facecheck/internal/auth"
	"github.com/example/facecheck/internal/domain/face"
	"github.com/example/facecheck/internal/presenter"
	"github.com/example/facecheck/internal/usecase"
)

// MaxUploadSize is the largest gallery image accepted, in bytes.
const MaxUploadSize = 10 << 20

// multipartOverhead leaves room for multipart framing around the image part.
const multipartOverhead = 1 << 20

//nolint:gochecknoglobals // Read-only lookup table.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

// SessionService is the use case surface the HTTP layer drives.
type SessionService interface {
	CreateSession(ctx context.Context, userID string, perms presenter.Permissions) (*usecase.Snapshot, error)
	GetSnapshot(ctx context.Context, userID, sessionID string) (*usecase.Snapshot, error)
	CloseSession(ctx context.Context, userID, sessionID string) error
	SetPermissions(ctx context.Context, userID, sessionID string, perms presenter.Permissions) error
	Capture(ctx context.Context, userID, sessionID string, mode face.CaptureMode) error
	SelectGalleryImage(ctx context.Context, userID, sessionID string, data []byte) error
	Compare(ctx context.Context, userID, sessionID string) error
	Reset(ctx context.Context, userID, sessionID string) error
	DrainMessages(ctx context.Context, userID, sessionID string) ([]string, error)
	ListComparisons(ctx context.Context, userID, sessionID string) ([]usecase.ComparisonEntry, error)
	GetMetricsSummary(ctx context.Context, userID string) (*usecase.MetricsSummary, error)
}

type permissionsRequest struct {
	CameraPermission  bool `json:"camera_permission"`
	StoragePermission bool `json:"storage_permission"`
}

func (r permissionsRequest) toPermissions() presenter.Permissions {
	return presenter.Permissions{Camera: r.CameraPermission, Storage: r.StoragePermission}
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc SessionService, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/", authMiddleware)

	api.POST("/sessions", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req permissionsRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions payload"})
				return
			}
		}

		snapshot, err := svc.CreateSession(c.Request.Context(), userID, req.toPermissions())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, snapshot)
	})

	api.GET("/sessions/:id", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		snapshot, err := svc.GetSnapshot(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, snapshot)
	})

	api.DELETE("/sessions/:id", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		if err := svc.CloseSession(c.Request.Context(), userID, c.Param("id")); err != nil {
			writeError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	})

	api.PUT("/sessions/:id/permissions", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var req permissionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions payload"})
			return
		}

		if err := svc.SetPermissions(c.Request.Context(), userID, c.Param("id"), req.toPermissions()); err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, req.toPermissions())
	})

	api.POST("/sessions/:id/capture/:mode", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		mode, err := face.ParseCaptureMode(c.Param("mode"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		accepted(c, svc.Capture(c.Request.Context(), userID, c.Param("id"), mode))
	})

	api.POST("/sessions/:id/gallery", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		data, status, msg := readImageUpload(c)
		if status != http.StatusOK {
			c.JSON(status, gin.H{"error": msg})
			return
		}

		accepted(c, svc.SelectGalleryImage(c.Request.Context(), userID, c.Param("id"), data))
	})

	api.POST("/sessions/:id/compare", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		accepted(c, svc.Compare(c.Request.Context(), userID, c.Param("id")))
	})

	api.POST("/sessions/:id/reset", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		accepted(c, svc.Reset(c.Request.Context(), userID, c.Param("id")))
	})

	api.GET("/sessions/:id/messages", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		messages, err := svc.DrainMessages(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": messages})
	})

	api.GET("/sessions/:id/comparisons", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		entries, err := svc.ListComparisons(c.Request.Context(), userID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comparisons"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"comparisons": entries})
	})

	api.GET("/metrics/summary", func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		summary, err := svc.GetMetricsSummary(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load metrics"})
			return
		}

		c.JSON(http.StatusOK, summary)
	})
}

// readImageUpload returns the uploaded image bytes, or an HTTP status and message on rejection.
func readImageUpload(c *gin.Context) ([]byte, int, string) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, http.StatusRequestEntityTooLarge, "image exceeds upload limit"
		}
		return nil, http.StatusBadRequest, "image file is required"
	}

	if file.Size > MaxUploadSize {
		return nil, http.StatusRequestEntityTooLarge, "image exceeds upload limit"
	}

	if _, ok := allowedImageTypes[file.Header.Get("Content-Type")]; !ok {
		return nil, http.StatusUnsupportedMediaType, "unsupported image type"
	}

	src, err := file.Open()
	if err != nil {
		return nil, http.StatusBadRequest, "unable to open image"
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to read image"
	}

	return data, http.StatusOK, ""
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := auth.GetUserID(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return userID, true
}

func accepted(c *gin.Context, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
