package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// newIntegrationRepository connects to the Postgres instance named by
// CLIPTIDE_TEST_POSTGRES_DSN and skips the test when none is configured.
func newIntegrationRepository(t *testing.T) Repository {
	t.Helper()
	dsn := os.Getenv("CLIPTIDE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CLIPTIDE_TEST_POSTGRES_DSN not set")
	}
	repo, err := NewPostgresRepository(dsn, WithPostgresApplicationName("cliptide-test"))
	if err != nil {
		t.Fatalf("NewPostgresRepository error: %v", err)
	}
	t.Cleanup(func() {
		if closer, ok := repo.(interface{ Close(context.Context) error }); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = closer.Close(ctx)
		}
	})
	return repo
}

func registerIntegrationUser(t *testing.T, repo Repository) (userID, channelID string) {
	t.Helper()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	user, channel, err := repo.RegisterUser(context.Background(), RegisterParams{
		Username: "ituser-" + suffix,
		Email:    "ituser-" + suffix + "@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}
	return user.ID, channel.ID
}

func TestPostgresSubscribeMissingChannelIsNotFound(t *testing.T) {
	repo := newIntegrationRepository(t)
	userID, _ := registerIntegrationUser(t, repo)

	if _, err := repo.Subscribe(context.Background(), userID, "no-such-channel"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Unsubscribe(context.Background(), userID, "no-such-channel"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from unsubscribe, got %v", err)
	}
}

func TestPostgresSubscribeLifecycle(t *testing.T) {
	repo := newIntegrationRepository(t)
	viewerID, _ := registerIntegrationUser(t, repo)
	_, channelID := registerIntegrationUser(t, repo)
	ctx := context.Background()

	count, err := repo.Subscribe(ctx, viewerID, channelID)
	if err != nil || count != 1 {
		t.Fatalf("subscribe: count=%d err=%v", count, err)
	}
	count, err = repo.Subscribe(ctx, viewerID, channelID)
	if err != nil || count != 1 {
		t.Fatalf("repeat subscribe should be idempotent: count=%d err=%v", count, err)
	}
	subscribed, err := repo.IsSubscribed(ctx, viewerID, channelID)
	if err != nil || !subscribed {
		t.Fatalf("expected subscription to exist: subscribed=%v err=%v", subscribed, err)
	}
	count, err = repo.Unsubscribe(ctx, viewerID, channelID)
	if err != nil || count != 0 {
		t.Fatalf("unsubscribe: count=%d err=%v", count, err)
	}
}

func TestPostgresActionsAcceptUnregisteredIdentity(t *testing.T) {
	repo := newIntegrationRepository(t)
	_, channelID := registerIntegrationUser(t, repo)
	ctx := context.Background()

	video, err := repo.CreateVideo(ctx, CreateVideoParams{
		ChannelID: channelID,
		Title:     "ghost target",
		VideoURL:  "https://storage.example.com/videos/ghost.mp4",
	})
	if err != nil {
		t.Fatalf("CreateVideo error: %v", err)
	}

	// The identity header is trusted as-is, so identities that never
	// registered still get their actions recorded.
	ghost := fmt.Sprintf("ghost-%d", time.Now().UnixNano())
	counts, err := repo.SetVideoReaction(ctx, ghost, video.ID, true)
	if err != nil || counts.Likes != 1 {
		t.Fatalf("ghost like: counts=%+v err=%v", counts, err)
	}
	if _, err := repo.RecordView(ctx, ghost, video.ID); err != nil {
		t.Fatalf("ghost view: %v", err)
	}
	if count, err := repo.Subscribe(ctx, ghost, channelID); err != nil || count != 1 {
		t.Fatalf("ghost subscribe: count=%d err=%v", count, err)
	}
}

func TestPostgresReactionMissingVideoIsNotFound(t *testing.T) {
	repo := newIntegrationRepository(t)
	userID, _ := registerIntegrationUser(t, repo)

	if _, err := repo.SetVideoReaction(context.Background(), userID, "no-such-video", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
