package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVideoActionsRequireIdentity(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.VideoActions(rec, httptest.NewRequest(http.MethodGet, "/api/video-actions?action=check_like&video_id=v1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 on check, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.VideoActions(rec, jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "view", "video_id": "v1"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 on apply, got %d", rec.Code)
	}
}

func TestReactionFlipsBetweenLikeAndDislike(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, channelID := registerUser(t, store, "alice")
	videoID := createVideo(t, store, channelID, "clip")

	like := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "like", "video_id": videoID})
	like.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.VideoActions(rec, like)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var counts map[string]int
	decodeResponse(t, rec, &counts)
	if counts["likes_count"] != 1 || counts["dislikes_count"] != 0 {
		t.Fatalf("unexpected counts after like: %v", counts)
	}

	dislike := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "dislike", "video_id": videoID})
	dislike.Header.Set("X-User-Id", userID)
	rec = httptest.NewRecorder()
	handler.VideoActions(rec, dislike)
	decodeResponse(t, rec, &counts)
	if counts["likes_count"] != 0 || counts["dislikes_count"] != 1 {
		t.Fatalf("unexpected counts after flip: %v", counts)
	}
}

func TestReactionOnUnknownVideo(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, _ := registerUser(t, store, "bob")

	req := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "like", "video_id": "missing"})
	req.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.VideoActions(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if errorMessage(t, rec) != "video not found" {
		t.Fatalf("unexpected error %q", errorMessage(t, rec))
	}
}

func TestCheckLikeReportsNullWithoutVerdict(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, channelID := registerUser(t, store, "carol")
	videoID := createVideo(t, store, channelID, "clip")

	check := func() map[string]*bool {
		req := httptest.NewRequest(http.MethodGet, "/api/video-actions?action=check_like&video_id="+videoID, nil)
		req.Header.Set("X-User-Id", userID)
		rec := httptest.NewRecorder()
		handler.VideoActions(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var payload map[string]*bool
		decodeResponse(t, rec, &payload)
		return payload
	}

	if verdict := check()["liked"]; verdict != nil {
		t.Fatalf("expected null verdict before reacting, got %v", *verdict)
	}

	react := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "like", "video_id": videoID})
	react.Header.Set("X-User-Id", userID)
	handler.VideoActions(httptest.NewRecorder(), react)

	verdict := check()["liked"]
	if verdict == nil || !*verdict {
		t.Fatalf("expected liked=true, got %v", verdict)
	}
}

func TestViewCountsEveryImpression(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, channelID := registerUser(t, store, "dave")
	videoID := createVideo(t, store, channelID, "clip")

	var counts map[string]int
	for i := 1; i <= 3; i++ {
		req := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "view", "video_id": videoID})
		req.Header.Set("X-User-Id", userID)
		rec := httptest.NewRecorder()
		handler.VideoActions(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("view %d: expected status 200, got %d", i, rec.Code)
		}
		decodeResponse(t, rec, &counts)
		if counts["views_count"] != i {
			t.Fatalf("view %d: expected count %d, got %d", i, i, counts["views_count"])
		}
	}
}

func TestSubscribeLifecycle(t *testing.T) {
	handler, store := newTestHandler(t)
	viewerID, _ := registerUser(t, store, "erin")
	_, channelID := registerUser(t, store, "frank")

	apply := func(action string) map[string]any {
		req := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": action, "channel_id": channelID})
		req.Header.Set("X-User-Id", viewerID)
		rec := httptest.NewRecorder()
		handler.VideoActions(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d: %s", action, rec.Code, rec.Body.String())
		}
		var payload map[string]any
		decodeResponse(t, rec, &payload)
		return payload
	}

	payload := apply("subscribe")
	if payload["is_subscribed"] != true || payload["subscribers_count"] != float64(1) {
		t.Fatalf("unexpected subscribe payload %v", payload)
	}

	// Subscribing twice is idempotent.
	payload = apply("subscribe")
	if payload["subscribers_count"] != float64(1) {
		t.Fatalf("expected count to stay at 1, got %v", payload["subscribers_count"])
	}

	check := httptest.NewRequest(http.MethodGet, "/api/video-actions?action=check_subscription&channel_id="+channelID, nil)
	check.Header.Set("X-User-Id", viewerID)
	rec := httptest.NewRecorder()
	handler.VideoActions(rec, check)
	var status map[string]bool
	decodeResponse(t, rec, &status)
	if !status["is_subscribed"] {
		t.Fatal("expected is_subscribed true")
	}

	payload = apply("unsubscribe")
	if payload["is_subscribed"] != false || payload["subscribers_count"] != float64(0) {
		t.Fatalf("unexpected unsubscribe payload %v", payload)
	}
}

func TestVideoActionValidation(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, _ := registerUser(t, store, "grace")

	req := jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "promote"})
	req.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.VideoActions(rec, req)
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "invalid action" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	req = jsonRequest(t, http.MethodPost, "/api/video-actions", map[string]string{"action": "like"})
	req.Header.Set("X-User-Id", userID)
	rec = httptest.NewRecorder()
	handler.VideoActions(rec, req)
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "video_id is required" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/api/video-actions?action=check_subscription", nil)
	get.Header.Set("X-User-Id", userID)
	rec = httptest.NewRecorder()
	handler.VideoActions(rec, get)
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "channel_id is required" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.VideoActions(rec, httptest.NewRequest(http.MethodDelete, "/api/video-actions", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}
