package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type channelResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	AvatarURL        string    `json:"avatar_url"`
	BannerURL        string    `json:"banner_url"`
	IsVerified       bool      `json:"is_verified"`
	SubscribersCount int       `json:"subscribers_count"`
	VideosCount      int       `json:"videos_count"`
	CreatedAt        time.Time `json:"created_at"`
}

func newChannelResponse(profile storage.ChannelProfile) channelResponse {
	return channelResponse{
		ID:               profile.ID,
		UserID:           profile.UserID,
		Name:             profile.Name,
		Description:      profile.Description,
		AvatarURL:        profile.AvatarURL,
		BannerURL:        profile.BannerURL,
		IsVerified:       profile.IsVerified,
		SubscribersCount: profile.SubscribersCount,
		VideosCount:      profile.VideosCount,
		CreatedAt:        profile.CreatedAt,
	}
}

type channelUpdateRequest struct {
	ChannelName *string `json:"channel_name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
	BannerURL   *string `json:"banner_url"`
}

type channelUpdateResponse struct {
	Message string         `json:"message"`
	Channel models.Channel `json:"channel"`
}

// Channel handles GET and PUT on /api/channel.
func (h *Handler) Channel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getChannel(w, r)
	case http.MethodPut:
		h.updateChannel(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
	}
}

func (h *Handler) getChannel(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(r.URL.Query().Get("channel_id"))
	userID, hasIdentity := identityFromRequest(r)

	var (
		profile storage.ChannelProfile
		found   bool
		err     error
	)
	switch {
	case channelID != "":
		profile, found, err = h.Store.GetChannel(r.Context(), channelID)
	case hasIdentity:
		profile, found, err = h.Store.GetChannelByUser(r.Context(), userID)
	default:
		WriteRequestError(w, ValidationError("channel_id or identity required"))
		return
	}
	if err != nil {
		writeStorageError(w, "get channel", err)
		return
	}
	if !found {
		WriteRequestError(w, NotFoundError("channel not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]channelResponse{"channel": newChannelResponse(profile)})
}

// updateChannel applies the historical field rules: channel_name, avatar_url,
// and banner_url are applied only when non-empty, while description is
// applied whenever the key is present, empty string included.
func (h *Handler) updateChannel(w http.ResponseWriter, r *http.Request) {
	userID, hasIdentity := identityFromRequest(r)
	if !hasIdentity {
		WriteRequestError(w, AuthRequiredError("authentication required"))
		return
	}

	var req channelUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteRequestError(w, ValidationError("invalid JSON payload"))
		return
	}

	var update storage.ChannelUpdate
	if req.ChannelName != nil && strings.TrimSpace(*req.ChannelName) != "" {
		update.Name = req.ChannelName
	}
	if req.Description != nil {
		update.Description = req.Description
	}
	if req.AvatarURL != nil && strings.TrimSpace(*req.AvatarURL) != "" {
		update.AvatarURL = req.AvatarURL
	}
	if req.BannerURL != nil && strings.TrimSpace(*req.BannerURL) != "" {
		update.BannerURL = req.BannerURL
	}
	if update.Empty() {
		WriteRequestError(w, ValidationError("no fields to update"))
		return
	}

	channel, err := h.Store.UpdateChannel(r.Context(), userID, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteRequestError(w, NotFoundError("channel not found"))
			return
		}
		writeStorageError(w, "update channel", err)
		return
	}

	writeJSON(w, http.StatusOK, channelUpdateResponse{
		Message: "channel updated",
		Channel: channel,
	})
}
