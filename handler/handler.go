package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"audio-archiver/codec"
	"audio-archiver/dto"
	"audio-archiver/service"
)

type Handler struct {
	catalog *service.Catalog
	codec   *codec.Adapter
}

func NewHandler(catalog *service.Catalog, adapter *codec.Adapter) *Handler {
	return &Handler{catalog: catalog, codec: adapter}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/upload", h.Upload)
	r.GET("/files", h.ListFiles)
	r.GET("/files/:filename", h.Download)
	r.POST("/decompress/:filename", h.Decompress)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:         "ok",
		FileCount:      h.catalog.FileCount(),
		CodecAvailable: h.codec.Available(),
		Timestamp:      time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty filename"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer src.Close()

	stored, size, err := h.catalog.Store(
		c.Request.Context(), src, fileHeader.Filename,
		c.PostForm("metadata"), c.ClientIP(),
	)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{
		Status:        "ok",
		Filename:      stored,
		SizeBytes:     size,
		MetadataSaved: true,
	})
}

func (h *Handler) ListFiles(c *gin.Context) {
	files, err := h.catalog.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
		return
	}
	c.JSON(http.StatusOK, dto.FileListResponse{
		Count: len(files),
		Files: files,
	})
}

func (h *Handler) Download(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.catalog.FilePath(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found: " + filename})
		return
	}
	c.FileAttachment(path, filename)
}

func (h *Handler) Decompress(c *gin.Context) {
	filename := c.Param("filename")
	result, outputPath, err := h.catalog.Decompress(c.Request.Context(), filename)
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found: " + filename})
		return
	case errors.Is(err, codec.ErrUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ffmpeg is not installed on the storage server"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Decompression failed: " + err.Error()})
		return
	}

	if strings.EqualFold(c.Query("download"), "true") {
		c.FileAttachment(outputPath, result.Output)
		return
	}
	c.JSON(http.StatusOK, result)
}
