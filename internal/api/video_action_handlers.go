package api

import (
	"errors"
	"net/http"
	"strings"

	"cliptide/internal/storage"
)

type videoActionRequest struct {
	Action    string `json:"action"`
	VideoID   string `json:"video_id"`
	ChannelID string `json:"channel_id"`
}

// VideoActions handles GET (state checks) and POST (mutations) on
// /api/video-actions.
func (h *Handler) VideoActions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.videoActionCheck(w, r)
	case http.MethodPost:
		h.videoActionApply(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		WriteRequestError(w, MethodNotAllowedError(r.Method))
	}
}

func (h *Handler) videoActionCheck(w http.ResponseWriter, r *http.Request) {
	userID, hasIdentity := identityFromRequest(r)
	if !hasIdentity {
		WriteRequestError(w, AuthRequiredError("authentication required"))
		return
	}

	query := r.URL.Query()
	switch query.Get("action") {
	case "check_subscription":
		channelID := strings.TrimSpace(query.Get("channel_id"))
		if channelID == "" {
			WriteRequestError(w, ValidationError("channel_id is required"))
			return
		}
		subscribed, err := h.Store.IsSubscribed(r.Context(), userID, channelID)
		if err != nil {
			writeStorageError(w, "check subscription", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"is_subscribed": subscribed})
	case "check_like":
		videoID := strings.TrimSpace(query.Get("video_id"))
		if videoID == "" {
			WriteRequestError(w, ValidationError("video_id is required"))
			return
		}
		verdict, err := h.Store.GetVideoReaction(r.Context(), userID, videoID)
		if err != nil {
			writeStorageError(w, "check reaction", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]*bool{"liked": verdict})
	default:
		WriteRequestError(w, ValidationError("invalid action"))
	}
}

func (h *Handler) videoActionApply(w http.ResponseWriter, r *http.Request) {
	userID, hasIdentity := identityFromRequest(r)
	if !hasIdentity {
		WriteRequestError(w, AuthRequiredError("authentication required"))
		return
	}

	var req videoActionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteRequestError(w, ValidationError("invalid JSON payload"))
		return
	}

	switch req.Action {
	case "like", "dislike":
		h.applyReaction(w, r, userID, req)
	case "view":
		h.applyView(w, r, userID, req)
	case "subscribe":
		h.applySubscription(w, r, userID, req, true)
	case "unsubscribe":
		h.applySubscription(w, r, userID, req, false)
	default:
		WriteRequestError(w, ValidationError("invalid action"))
	}
}

func (h *Handler) applyReaction(w http.ResponseWriter, r *http.Request, userID string, req videoActionRequest) {
	if strings.TrimSpace(req.VideoID) == "" {
		WriteRequestError(w, ValidationError("video_id is required"))
		return
	}
	counts, err := h.Store.SetVideoReaction(r.Context(), userID, req.VideoID, req.Action == "like")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteRequestError(w, NotFoundError("video not found"))
			return
		}
		writeStorageError(w, "set reaction", err)
		return
	}
	h.recordEvent(req.Action)
	writeJSON(w, http.StatusOK, map[string]int{
		"likes_count":    counts.Likes,
		"dislikes_count": counts.Dislikes,
	})
}

func (h *Handler) applyView(w http.ResponseWriter, r *http.Request, userID string, req videoActionRequest) {
	if strings.TrimSpace(req.VideoID) == "" {
		WriteRequestError(w, ValidationError("video_id is required"))
		return
	}
	views, err := h.Store.RecordView(r.Context(), userID, req.VideoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteRequestError(w, NotFoundError("video not found"))
			return
		}
		writeStorageError(w, "record view", err)
		return
	}
	h.recordEvent("view")
	writeJSON(w, http.StatusOK, map[string]int{"views_count": views})
}

func (h *Handler) applySubscription(w http.ResponseWriter, r *http.Request, userID string, req videoActionRequest, subscribe bool) {
	if strings.TrimSpace(req.ChannelID) == "" {
		WriteRequestError(w, ValidationError("channel_id is required"))
		return
	}

	var (
		count int
		err   error
	)
	if subscribe {
		count, err = h.Store.Subscribe(r.Context(), userID, req.ChannelID)
	} else {
		count, err = h.Store.Unsubscribe(r.Context(), userID, req.ChannelID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteRequestError(w, NotFoundError("channel not found"))
			return
		}
		writeStorageError(w, "update subscription", err)
		return
	}

	if subscribe {
		h.recordEvent("subscribe")
	} else {
		h.recordEvent("unsubscribe")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_subscribed":     subscribe,
		"subscribers_count": count,
	})
}
