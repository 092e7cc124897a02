package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parishkit/livestream-service/internal/domain"
	"github.com/parishkit/livestream-service/internal/dto"
	"github.com/parishkit/livestream-service/internal/service"
	"github.com/parishkit/livestream-service/pkg/storage"
)

const maxThumbnailBytes = 5 << 20 // 5 MiB

// LivestreamHandler exposes broadcast orchestration over HTTP
type LivestreamHandler struct {
	livestreams *service.LivestreamService
	thumbnails  *storage.ThumbnailStore // nil when storage is disabled
}

// NewLivestreamHandler creates a new livestream handler
func NewLivestreamHandler(livestreams *service.LivestreamService, thumbnails *storage.ThumbnailStore) *LivestreamHandler {
	return &LivestreamHandler{
		livestreams: livestreams,
		thumbnails:  thumbnails,
	}
}

// Create creates a broadcast fanned out to the requested platforms
func (h *LivestreamHandler) Create(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req dto.CreateLivestreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	platforms := make([]domain.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, domain.Platform(p))
	}

	stream, err := h.livestreams.CreateLivestream(c.Request.Context(), tc, service.CreateLivestreamInput{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.Thumbnail,
		StartAt:      req.StartAt,
		Platforms:    platforms,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stream)
}

// List returns the tenant's livestreams
func (h *LivestreamHandler) List(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	streams, err := h.livestreams.ListLivestreams(c.Request.Context(), tc)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, streams)
}

// Get returns one livestream
func (h *LivestreamHandler) Get(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	stream, err := h.livestreams.GetLivestream(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

// Update merge-patches a livestream
func (h *LivestreamHandler) Update(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req dto.UpdateLivestreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	stream, err := h.livestreams.UpdateLivestream(c.Request.Context(), tc, c.Param("id"), service.UpdateLivestreamInput{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.Thumbnail,
		StartAt:      req.StartAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

// Delete removes the broadcast and its vendor-side events
func (h *LivestreamHandler) Delete(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.livestreams.DeleteLivestream(c.Request.Context(), tc, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Livestream deleted",
	})
}

// Start starts the broadcast on every destination
func (h *LivestreamHandler) Start(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	stream, err := h.livestreams.StartLivestream(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

// Stop stops the broadcast on every destination
func (h *LivestreamHandler) Stop(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	stream, err := h.livestreams.StopLivestream(c.Request.Context(), tc, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stream)
}

// UploadThumbnail stores a thumbnail image and records its URL
func (h *LivestreamHandler) UploadThumbnail(c *gin.Context) {
	tc, ok := TenantFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	if h.thumbnails == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "Storage disabled",
			Message: "Thumbnail storage is not configured",
		})
		return
	}

	file, header, err := c.Request.FormFile("thumbnail")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "thumbnail file field is required",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxThumbnailBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "failed to read thumbnail upload",
		})
		return
	}
	if len(data) > maxThumbnailBytes {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "Too large",
			Message: "thumbnail must be 5 MiB or smaller",
		})
		return
	}

	url, err := h.thumbnails.Upload(c.Request.Context(), tc.TenantID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	stream, err := h.livestreams.SetThumbnail(c.Request.Context(), tc, c.Param("id"), url)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stream)
}
