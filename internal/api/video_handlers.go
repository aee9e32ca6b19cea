package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type videoListingPayload struct {
	models.Video
	ChannelName *string `json:"channel_name"`
	IsVerified  *bool   `json:"is_verified"`
}

type videoListResponse struct {
	Videos []videoListingPayload `json:"videos"`
}

func newVideoListResponse(listings []storage.VideoListing) videoListResponse {
	payloads := make([]videoListingPayload, 0, len(listings))
	for _, listing := range listings {
		payloads = append(payloads, videoListingPayload{
			Video:       listing.Video,
			ChannelName: listing.ChannelName,
			IsVerified:  listing.IsVerified,
		})
	}
	return videoListResponse{Videos: payloads}
}

type createVideoRequest struct {
	ChannelID    string `json:"channel_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration"`
	VideoType    string `json:"video_type"`
}

// Videos handles GET (home feed) and POST (direct insert) on /api/videos.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Feed != nil {
		if cached, ok := h.Feed.Get(ctx); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	listings, err := h.Store.ListRecentVideos(ctx, storage.RecentVideosLimit)
	if err != nil {
		writeStorageError(w, "list videos", err)
		return
	}

	response := newVideoListResponse(listings)
	if h.Feed != nil {
		if payload, err := json.Marshal(response); err == nil {
			h.Feed.Set(ctx, payload)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteRequestError(w, ValidationError("invalid JSON payload"))
		return
	}
	if strings.TrimSpace(req.ChannelID) == "" || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.VideoURL) == "" {
		WriteRequestError(w, ValidationError("missing required fields"))
		return
	}

	video, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
		ChannelID:    req.ChannelID,
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		VideoType:    req.VideoType,
	})
	if err != nil {
		writeStorageError(w, "create video", err)
		return
	}

	h.invalidateFeed(r)
	writeJSON(w, http.StatusCreated, map[string]models.Video{"video": video})
}
