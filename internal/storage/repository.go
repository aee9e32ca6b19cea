package storage

import (
	"context"

	"cliptide/internal/models"
)

// Repository defines the persistence contract shared by the JSON datastore
// and the Postgres datastore. All aggregate invariants (unique usernames,
// one reaction per user/video, recounted denormalized counters) are owned by
// the implementation, not by callers.
type Repository interface {
	// RegisterUser creates the account and its seeded channel as one
	// operation. Returns ErrUsernameTaken when the username exists.
	RegisterUser(ctx context.Context, params RegisterParams) (models.User, models.Channel, error)
	// FindUserByUsername resolves a user and the channel seeded for it.
	FindUserByUsername(ctx context.Context, username string) (models.User, models.Channel, bool, error)

	// GetChannel resolves a channel profile by channel id.
	GetChannel(ctx context.Context, id string) (ChannelProfile, bool, error)
	// GetChannelByUser resolves a channel profile by its owner.
	GetChannelByUser(ctx context.Context, userID string) (ChannelProfile, bool, error)
	// UpdateChannel applies a partial update to the channel owned by userID.
	// Returns ErrNotFound when the user has no channel row.
	UpdateChannel(ctx context.Context, userID string, update ChannelUpdate) (models.Channel, error)

	// CreateVideo inserts a video row with zeroed counters.
	CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error)
	// ListRecentVideos returns at most limit videos, newest first.
	ListRecentVideos(ctx context.Context, limit int) ([]VideoListing, error)

	// SetVideoReaction upserts the caller's verdict for the video and
	// recounts both like aggregates from the fact rows.
	SetVideoReaction(ctx context.Context, userID, videoID string, isLike bool) (ReactionCounts, error)
	// GetVideoReaction reports the caller's stored verdict; nil when the
	// caller has never reacted to the video.
	GetVideoReaction(ctx context.Context, userID, videoID string) (*bool, error)
	// RecordView appends an impression row and bumps the view counter.
	RecordView(ctx context.Context, userID, videoID string) (int, error)

	// Subscribe records the subscription (idempotent) and recounts.
	Subscribe(ctx context.Context, userID, channelID string) (int, error)
	// Unsubscribe deletes the subscription (idempotent) and recounts.
	Unsubscribe(ctx context.Context, userID, channelID string) (int, error)
	// IsSubscribed reports whether a subscription row exists.
	IsSubscribed(ctx context.Context, userID, channelID string) (bool, error)

	// Ping verifies the datastore is reachable.
	Ping(ctx context.Context) error
}
