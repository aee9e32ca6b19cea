package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

const (
	videoStorageBaseURL     = "https://storage.example.com/videos/"
	thumbnailStorageBaseURL = "https://storage.example.com/thumbnails/"
)

type uploadRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoFile     string `json:"video_file"`
	ThumbnailFile string `json:"thumbnail_file"`
	Duration      int    `json:"duration"`
	VideoType     string `json:"video_type"`
}

type uploadVideoPayload struct {
	models.Video
	ChannelName string `json:"channel_name"`
	IsVerified  bool   `json:"is_verified"`
}

type uploadResponse struct {
	Message string             `json:"message"`
	Video   uploadVideoPayload `json:"video"`
}

// uploadFilenameStem derives the storage filename from the caller identity
// and the current unix second. File bytes never feed the digest, so two
// uploads by the same user inside one second share a stem.
func (h *Handler) uploadFilenameStem(userID string) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s%d", userID, h.now().Unix())))
	return hex.EncodeToString(digest[:])
}

// Upload handles POST /api/upload. The file fields are accepted as opaque
// strings and discarded; only metadata is persisted.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
		return
	}

	userID, hasIdentity := identityFromRequest(r)
	if !hasIdentity {
		WriteRequestError(w, AuthRequiredError("authentication required"))
		return
	}

	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteRequestError(w, ValidationError("invalid JSON payload"))
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.VideoFile == "" || req.ThumbnailFile == "" {
		WriteRequestError(w, ValidationError("missing required fields"))
		return
	}

	profile, found, err := h.Store.GetChannelByUser(r.Context(), userID)
	if err != nil {
		writeStorageError(w, "resolve channel", err)
		return
	}
	if !found {
		WriteRequestError(w, NotFoundError("channel not found"))
		return
	}

	stem := h.uploadFilenameStem(userID)
	video, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
		ChannelID:    profile.ID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     videoStorageBaseURL + stem + ".mp4",
		ThumbnailURL: thumbnailStorageBaseURL + stem + ".jpg",
		Duration:     req.Duration,
		VideoType:    req.VideoType,
	})
	if err != nil {
		writeStorageError(w, "create video", err)
		return
	}

	h.invalidateFeed(r)
	h.recordEvent("upload")
	writeJSON(w, http.StatusOK, uploadResponse{
		Message: "video uploaded",
		Video: uploadVideoPayload{
			Video:       video,
			ChannelName: profile.Name,
			IsVerified:  profile.IsVerified,
		},
	})
}

func (h *Handler) invalidateFeed(r *http.Request) {
	if h.Feed != nil {
		h.Feed.Invalidate(r.Context())
	}
}
