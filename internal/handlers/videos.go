package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playtube/backend/internal/logging"
	"github.com/playtube/backend/internal/models"
	"github.com/playtube/backend/internal/repositories"
)

// VideoHandler provides endpoints for publishing and watching videos.
type VideoHandler struct {
	Videos    VideoStore
	Media     MediaStore
	UploadDir string
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/videos. The request is a multipart form with
// videofile and thumbnail files plus title, description, and duration fields.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	ownerID := callerID(ctx)
	if ownerID == "" {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "invalid multipart request body"))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "title is required"))
		return
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("duration")), 64)
	if err != nil || duration <= 0 {
		respondError(ctx, w, newAPIError(http.StatusBadRequest, "duration must be a positive number of seconds"))
		return
	}

	videoURL, apiErr := h.uploadFormFile(r, "videofile")
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	thumbnailURL, apiErr := h.uploadFormFile(r, "thumbnail")
	if apiErr != nil {
		respondError(ctx, w, apiErr)
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Title:        title,
		Description:  description,
		Duration:     duration,
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("failed to create video", "ownerId", ownerID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to publish video"))
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoID}. Fetching a published video bumps
// its view count; unpublished videos are visible only to their owner.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := chi.URLParam(r, "videoID")

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "video does not exist"))
			return
		}
		logger.Error("video lookup failed", "videoId", videoID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to look up video"))
		return
	}

	if !video.Published && video.OwnerID != callerID(ctx) {
		respondError(ctx, w, newAPIError(http.StatusNotFound, "video does not exist"))
		return
	}

	if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
		logger.Warn("failed to increment views", "videoId", video.ID, "error", err)
	} else {
		video.Views++
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched")
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ListPublished(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list videos", "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to list videos"))
		return
	}

	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videos, "videos fetched")
}

// TogglePublish handles PATCH /api/v1/videos/{videoID}/toggle-publish. Only
// the owner may flip the flag.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := chi.URLParam(r, "videoID")

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, newAPIError(http.StatusNotFound, "video does not exist"))
			return
		}
		logger.Error("video lookup failed", "videoId", videoID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "unable to look up video"))
		return
	}

	if video.OwnerID != callerID(ctx) {
		respondError(ctx, w, newAPIError(http.StatusUnauthorized, "only the owner can change publish state"))
		return
	}

	if err := h.Videos.SetPublished(ctx, video.ID, !video.Published); err != nil {
		logger.Error("failed to toggle publish state", "videoId", video.ID, "error", err)
		respondError(ctx, w, newAPIError(http.StatusInternalServerError, "failed to update video"))
		return
	}

	video.Published = !video.Published
	respondData(ctx, w, http.StatusOK, video, "publish state updated")
}

func (h VideoHandler) uploadFormFile(r *http.Request, field string) (string, *apiError) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	file, header, err := r.FormFile(field)
	if err != nil {
		return "", newAPIError(http.StatusBadRequest, field+" file is required")
	}
	defer file.Close()

	localPath, err := saveUpload(h.UploadDir, header)
	if err != nil {
		logger.Error("failed to stage upload", "field", field, "error", err)
		return "", newAPIError(http.StatusInternalServerError, "failed to store uploaded file")
	}

	result, err := h.Media.UploadFile(ctx, localPath)
	if err != nil {
		logger.Error("media store upload failed", "field", field, "error", err)
		return "", newAPIError(http.StatusInternalServerError, "could not upload "+field+", please try again later")
	}
	_ = os.Remove(localPath)

	return result.URL, nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
