package storage

import (
	"errors"

	"cliptide/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	avatarServiceURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

	// RecentVideosLimit caps the home feed listing. There is no pagination
	// cursor; callers cannot reach older rows through the listing.
	RecentVideosLimit = 50
)

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken indicates the username uniqueness constraint fired.
	ErrUsernameTaken = errors.New("username already taken")
)

// RegisterParams captures the attributes required to create an account and
// its seeded channel.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// ChannelUpdate describes a partial channel update. Nil fields are left
// untouched; the handler decides which payload fields qualify.
type ChannelUpdate struct {
	Name        *string
	Description *string
	AvatarURL   *string
	BannerURL   *string
}

// Empty reports whether the update would touch no fields.
func (u ChannelUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.AvatarURL == nil && u.BannerURL == nil
}

// CreateVideoParams captures a fully specified video row.
type CreateVideoParams struct {
	ChannelID    string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     int
	VideoType    string
}

// ChannelProfile is a channel joined with its derived video count.
type ChannelProfile struct {
	models.Channel
	VideosCount int
}

// VideoListing is a video joined null-safely with its owning channel; the
// channel pointers are nil when the channel row has been removed.
type VideoListing struct {
	models.Video
	ChannelName *string
	IsVerified  *bool
}

// ReactionCounts carries the recomputed like/dislike aggregates after a
// reaction write.
type ReactionCounts struct {
	Likes    int
	Dislikes int
}
