package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

func TestGetChannelByQueryParameter(t *testing.T) {
	handler, store := newTestHandler(t)
	_, channelID := registerUser(t, store, "alice")
	createVideo(t, store, channelID, "first")

	req := httptest.NewRequest(http.MethodGet, "/api/channel?channel_id="+channelID, nil)
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Channel channelResponse `json:"channel"`
	}
	decodeResponse(t, rec, &payload)
	if payload.Channel.ID != channelID {
		t.Fatalf("expected channel %q, got %q", channelID, payload.Channel.ID)
	}
	if payload.Channel.Name != "alice's channel" {
		t.Fatalf("unexpected channel name %q", payload.Channel.Name)
	}
	if payload.Channel.VideosCount != 1 {
		t.Fatalf("expected videos_count 1, got %d", payload.Channel.VideosCount)
	}
}

func TestGetChannelFallsBackToIdentity(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, channelID := registerUser(t, store, "bob")

	req := httptest.NewRequest(http.MethodGet, "/api/channel", nil)
	req.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Channel channelResponse `json:"channel"`
	}
	decodeResponse(t, rec, &payload)
	if payload.Channel.ID != channelID {
		t.Fatalf("expected channel %q, got %q", channelID, payload.Channel.ID)
	}
}

func TestGetChannelRequiresSelector(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Channel(rec, httptest.NewRequest(http.MethodGet, "/api/channel", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if errorMessage(t, rec) != "channel_id or identity required" {
		t.Fatalf("unexpected error %q", errorMessage(t, rec))
	}
}

func TestGetChannelUnknownID(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Channel(rec, httptest.NewRequest(http.MethodGet, "/api/channel?channel_id=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if errorMessage(t, rec) != "channel not found" {
		t.Fatalf("unexpected error %q", errorMessage(t, rec))
	}
}

func TestUpdateChannelRequiresIdentity(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest(t, http.MethodPut, "/api/channel", map[string]string{"channel_name": "renamed"})
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestUpdateChannelFieldRules(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, _ := registerUser(t, store, "carol")

	// Empty channel_name and avatar_url are dropped while an empty
	// description overwrites.
	req := jsonRequest(t, http.MethodPut, "/api/channel", map[string]string{
		"channel_name": "",
		"description":  "",
		"avatar_url":   "",
	})
	req.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Message string         `json:"message"`
		Channel models.Channel `json:"channel"`
	}
	decodeResponse(t, rec, &payload)
	if payload.Message != "channel updated" {
		t.Fatalf("unexpected message %q", payload.Message)
	}
	if payload.Channel.Name != "carol's channel" {
		t.Fatalf("empty name should not overwrite, got %q", payload.Channel.Name)
	}
	if payload.Channel.Description != "" {
		t.Fatalf("empty description should overwrite, got %q", payload.Channel.Description)
	}
	if payload.Channel.AvatarURL != storage.AvatarURL("carol") {
		t.Fatalf("empty avatar_url should not overwrite, got %q", payload.Channel.AvatarURL)
	}

	req = jsonRequest(t, http.MethodPut, "/api/channel", map[string]string{
		"channel_name": "Carol Plays",
		"banner_url":   "https://cdn.example.com/banner.png",
	})
	req.Header.Set("X-User-Id", userID)
	rec = httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeResponse(t, rec, &payload)
	if payload.Channel.Name != "Carol Plays" {
		t.Fatalf("expected renamed channel, got %q", payload.Channel.Name)
	}
	if payload.Channel.BannerURL != "https://cdn.example.com/banner.png" {
		t.Fatalf("expected banner applied, got %q", payload.Channel.BannerURL)
	}
}

func TestUpdateChannelNoEffectiveFields(t *testing.T) {
	handler, store := newTestHandler(t)
	userID, _ := registerUser(t, store, "dave")

	req := jsonRequest(t, http.MethodPut, "/api/channel", map[string]string{
		"channel_name": "   ",
		"avatar_url":   "",
	})
	req.Header.Set("X-User-Id", userID)
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if errorMessage(t, rec) != "no fields to update" {
		t.Fatalf("unexpected error %q", errorMessage(t, rec))
	}
}

func TestUpdateChannelUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest(t, http.MethodPut, "/api/channel", map[string]string{"channel_name": "ghost town"})
	req.Header.Set("X-User-Id", "no-such-user")
	rec := httptest.NewRecorder()
	handler.Channel(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestChannelRejectsUnsupportedMethod(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Channel(rec, httptest.NewRequest(http.MethodDelete, "/api/channel", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, PUT" {
		t.Fatalf("expected Allow header, got %q", allow)
	}
}
