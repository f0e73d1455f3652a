package handler

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/response"
)

type VideoHandler struct {
	service   *service.VideoService
	validator *validator.Validate
}

func NewVideoHandler(svc *service.VideoService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/videos
func (h *VideoHandler) Create(c *fiber.Ctx) error {
	var req model.CreateVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	video, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrContentFlagged) {
			return response.ContentFlagged(c)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, model.CreateVideoResponse{
		Video:   video,
		Message: "Video generation started",
	})
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	videos, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, model.VideoListResponse{Videos: videos})
}

// Get handles GET /api/videos/:videoId
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	videoID := c.Params("videoId")

	video, err := h.service.Get(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, video)
}

// Progress handles GET /api/videos/:videoId/progress
func (h *VideoHandler) Progress(c *fiber.Ctx) error {
	videoID := c.Params("videoId")

	entries, err := h.service.Progress(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, model.ProgressListResponse{Progress: entries})
}

// Download handles GET /api/videos/:videoId/download
func (h *VideoHandler) Download(c *fiber.Ctx) error {
	videoID := c.Params("videoId")

	video, err := h.service.Get(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}

	if video.FilePath == "" {
		return response.NotFound(c, "Video file not available")
	}

	path, err := h.service.SafeArtifactPath(video.FilePath)
	if err != nil {
		return response.InvalidPath(c, "Invalid file path")
	}

	if _, err := os.Stat(path); err != nil {
		return response.NotFound(c, "Video file not found on disk")
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	switch c.Query("inline") {
	case "1", "true", "yes":
		return c.SendFile(path)
	}
	return c.Download(path, video.Title+".mp4")
}

// Delete handles DELETE /api/videos/:videoId
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	videoID := c.Params("videoId")

	if err := h.service.Delete(c.Context(), videoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{
		"success": true,
		"message": "Video deleted successfully",
	})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
