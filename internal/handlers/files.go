package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/config"
	"github.com/minjoonchoi/httpgate/internal/observability"
)

// FilesHandler serves file upload and download endpoints backed by a local
// directory.
type FilesHandler struct {
	dir     string
	maxSize int64
	logger  observability.Logger
}

// NewFilesHandler creates a files handler from upload configuration.
func NewFilesHandler(cfg config.UploadConfig, logger observability.Logger) *FilesHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	dir := cfg.Path
	if dir == "" {
		dir = "uploads"
	}
	return &FilesHandler{dir: dir, maxSize: cfg.MaxFileSize, logger: logger}
}

// Register mounts the file routes.
func (h *FilesHandler) Register(r gin.IRouter) {
	r.POST("/api/upload", h.upload)
	r.GET("/api/files/:name", h.download)
}

func (h *FilesHandler) upload(c *gin.Context) {
	if h.maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize)
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "a 'file' form field is required"})
		return
	}
	if h.maxSize > 0 && file.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"detail": fmt.Sprintf("file exceeds the %d byte limit", h.maxSize),
		})
		return
	}

	name := sanitizeFilename(file.Filename)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid filename"})
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("failed to create upload directory", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}
	dest := filepath.Join(h.dir, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		h.logger.Error("failed to save upload",
			observability.String("filename", name),
			observability.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}

	h.logger.Info("file uploaded",
		observability.String("filename", name),
		observability.Int64("size", file.Size),
	)
	c.JSON(http.StatusOK, gin.H{
		"filename":     name,
		"size":         file.Size,
		"content_type": file.Header.Get("Content-Type"),
	})
}

func (h *FilesHandler) download(c *gin.Context) {
	name := sanitizeFilename(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid filename"})
		return
	}

	path := filepath.Join(h.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"detail": "File not found."})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.File(path)
}

// sanitizeFilename strips any path components, rejecting names that would
// escape the upload directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}
