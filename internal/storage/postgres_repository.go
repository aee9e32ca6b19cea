package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cliptide/internal/models"
)

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// schema exists before returning.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool, bounded by ctx.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) RegisterUser(ctx context.Context, params RegisterParams) (models.User, models.Channel, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, models.Channel{}, fmt.Errorf("username is required")
	}

	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("hash password: %w", err)
	}
	userID, err := generateID()
	if err != nil {
		return models.User{}, models.Channel{}, err
	}
	channelID, err := generateID()
	if err != nil {
		return models.User{}, models.Channel{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("begin register transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))
`, username).Scan(&exists); err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return models.User{}, models.Channel{}, ErrUsernameTaken
	}

	now := r.cfg.Clock()
	avatar := AvatarURL(username)
	user := models.User{
		ID:           userID,
		Username:     username,
		Email:        strings.TrimSpace(params.Email),
		AvatarURL:    avatar,
		PasswordHash: hashed,
		CreatedAt:    now,
	}
	channel := models.Channel{
		ID:          channelID,
		UserID:      userID,
		Name:        fmt.Sprintf("%s's channel", username),
		Description: fmt.Sprintf("Personal channel of %s", username),
		AvatarURL:   avatar,
		CreatedAt:   now,
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO users (id, username, email, avatar_url, is_admin, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, user.ID, user.Username, user.Email, user.AvatarURL, user.IsAdmin, user.PasswordHash, user.CreatedAt); err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO channels (id, user_id, name, description, avatar_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, channel.ID, channel.UserID, channel.Name, channel.Description, channel.AvatarURL, channel.CreatedAt); err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("insert channel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("commit register transaction: %w", err)
	}
	return user, channel, nil
}

func (r *postgresRepository) FindUserByUsername(ctx context.Context, username string) (models.User, models.Channel, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT u.id, u.username, u.email, u.avatar_url, u.is_admin, u.password_hash, u.created_at,
       COALESCE(c.id, ''), COALESCE(c.user_id, ''), COALESCE(c.name, ''), COALESCE(c.description, ''),
       COALESCE(c.avatar_url, ''), COALESCE(c.banner_url, ''), COALESCE(c.is_verified, FALSE),
       COALESCE(c.subscribers_count, 0), COALESCE(c.created_at, u.created_at)
FROM users u
LEFT JOIN channels c ON c.user_id = u.id
WHERE LOWER(u.username) = LOWER($1)
LIMIT 1
`, username)

	var user models.User
	var channel models.Channel
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.AvatarURL, &user.IsAdmin, &user.PasswordHash, &user.CreatedAt,
		&channel.ID, &channel.UserID, &channel.Name, &channel.Description,
		&channel.AvatarURL, &channel.BannerURL, &channel.IsVerified,
		&channel.SubscribersCount, &channel.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, models.Channel{}, false, nil
		}
		return models.User{}, models.Channel{}, false, fmt.Errorf("find user: %w", err)
	}
	return user, channel, true, nil
}

const channelProfileColumns = `
c.id, c.user_id, c.name, c.description, c.avatar_url, c.banner_url,
c.is_verified, c.subscribers_count, c.created_at,
(SELECT COUNT(*) FROM videos v WHERE v.channel_id = c.id)
`

func scanChannelProfile(row pgx.Row) (ChannelProfile, bool, error) {
	var profile ChannelProfile
	if err := row.Scan(
		&profile.ID, &profile.UserID, &profile.Name, &profile.Description,
		&profile.AvatarURL, &profile.BannerURL, &profile.IsVerified,
		&profile.SubscribersCount, &profile.CreatedAt, &profile.VideosCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChannelProfile{}, false, nil
		}
		return ChannelProfile{}, false, fmt.Errorf("scan channel: %w", err)
	}
	return profile, true, nil
}

func (r *postgresRepository) GetChannel(ctx context.Context, id string) (ChannelProfile, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelProfileColumns+` FROM channels c WHERE c.id = $1`, id)
	return scanChannelProfile(row)
}

func (r *postgresRepository) GetChannelByUser(ctx context.Context, userID string) (ChannelProfile, bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelProfileColumns+` FROM channels c WHERE c.user_id = $1 LIMIT 1`, userID)
	return scanChannelProfile(row)
}

func (r *postgresRepository) UpdateChannel(ctx context.Context, userID string, update ChannelUpdate) (models.Channel, error) {
	assignments := make([]string, 0, 4)
	args := make([]any, 0, 5)
	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("name", update.Name)
	appendSet("description", update.Description)
	appendSet("avatar_url", update.AvatarURL)
	appendSet("banner_url", update.BannerURL)
	if len(assignments) == 0 {
		return models.Channel{}, fmt.Errorf("no fields to update")
	}

	args = append(args, userID)
	query := fmt.Sprintf(`
UPDATE channels SET %s
WHERE user_id = $%d
RETURNING id, user_id, name, description, avatar_url, banner_url, is_verified, subscribers_count, created_at
`, strings.Join(assignments, ", "), len(args))

	var channel models.Channel
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&channel.ID, &channel.UserID, &channel.Name, &channel.Description,
		&channel.AvatarURL, &channel.BannerURL, &channel.IsVerified,
		&channel.SubscribersCount, &channel.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, ErrNotFound
		}
		return models.Channel{}, fmt.Errorf("update channel: %w", err)
	}
	return channel, nil
}

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.Video, error) {
	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}
	videoType := strings.TrimSpace(params.VideoType)
	if videoType == "" {
		videoType = "regular"
	}
	video := models.Video{
		ID:           id,
		ChannelID:    params.ChannelID,
		Title:        params.Title,
		Description:  params.Description,
		VideoURL:     params.VideoURL,
		ThumbnailURL: params.ThumbnailURL,
		Duration:     params.Duration,
		VideoType:    videoType,
		CreatedAt:    r.cfg.Clock(),
	}
	if _, err := r.pool.Exec(ctx, `
INSERT INTO videos (id, channel_id, title, description, video_url, thumbnail_url, duration, video_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, video.ID, video.ChannelID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL, video.Duration, video.VideoType, video.CreatedAt); err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) ListRecentVideos(ctx context.Context, limit int) ([]VideoListing, error) {
	if limit <= 0 {
		limit = RecentVideosLimit
	}
	rows, err := r.pool.Query(ctx, `
SELECT v.id, v.channel_id, v.title, v.description, v.video_url, v.thumbnail_url,
       v.duration, v.video_type, v.views_count, v.likes_count, v.dislikes_count, v.created_at,
       c.name, c.is_verified
FROM videos v
LEFT JOIN channels c ON c.id = v.channel_id
ORDER BY v.created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	listings := make([]VideoListing, 0, limit)
	for rows.Next() {
		var listing VideoListing
		if err := rows.Scan(
			&listing.ID, &listing.ChannelID, &listing.Title, &listing.Description,
			&listing.VideoURL, &listing.ThumbnailURL, &listing.Duration, &listing.VideoType,
			&listing.ViewsCount, &listing.LikesCount, &listing.DislikesCount, &listing.CreatedAt,
			&listing.ChannelName, &listing.IsVerified,
		); err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video rows: %w", err)
	}
	return listings, nil
}

func (r *postgresRepository) SetVideoReaction(ctx context.Context, userID, videoID string, isLike bool) (ReactionCounts, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ReactionCounts{}, fmt.Errorf("begin reaction transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
INSERT INTO video_likes (user_id, video_id, is_like, created_at)
SELECT $1, $2, $3, $4
WHERE EXISTS (SELECT 1 FROM videos WHERE id = $2)
ON CONFLICT (user_id, video_id) DO UPDATE SET is_like = EXCLUDED.is_like
`, userID, videoID, isLike, r.cfg.Clock())
	if err != nil {
		return ReactionCounts{}, fmt.Errorf("upsert reaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ReactionCounts{}, ErrNotFound
	}

	var counts ReactionCounts
	if err := tx.QueryRow(ctx, `
UPDATE videos SET
	likes_count = (SELECT COUNT(*) FROM video_likes WHERE video_id = $1 AND is_like),
	dislikes_count = (SELECT COUNT(*) FROM video_likes WHERE video_id = $1 AND NOT is_like)
WHERE id = $1
RETURNING likes_count, dislikes_count
`, videoID).Scan(&counts.Likes, &counts.Dislikes); err != nil {
		return ReactionCounts{}, fmt.Errorf("recount reactions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ReactionCounts{}, fmt.Errorf("commit reaction transaction: %w", err)
	}
	return counts, nil
}

func (r *postgresRepository) GetVideoReaction(ctx context.Context, userID, videoID string) (*bool, error) {
	var isLike bool
	err := r.pool.QueryRow(ctx, `
SELECT is_like FROM video_likes WHERE user_id = $1 AND video_id = $2
`, userID, videoID).Scan(&isLike)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reaction: %w", err)
	}
	return &isLike, nil
}

func (r *postgresRepository) RecordView(ctx context.Context, userID, videoID string) (int, error) {
	id, err := generateID()
	if err != nil {
		return 0, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin view transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var views int
	if err := tx.QueryRow(ctx, `
UPDATE videos SET views_count = views_count + 1 WHERE id = $1 RETURNING views_count
`, videoID).Scan(&views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO video_views (id, user_id, video_id, created_at)
VALUES ($1, $2, $3, $4)
`, id, userID, videoID, r.cfg.Clock()); err != nil {
		return 0, fmt.Errorf("insert view: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit view transaction: %w", err)
	}
	return views, nil
}

func (r *postgresRepository) Subscribe(ctx context.Context, userID, channelID string) (int, error) {
	id, err := generateID()
	if err != nil {
		return 0, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin subscribe transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Guard on channel existence so a missing channel reaches the recount
	// below and maps to ErrNotFound instead of tripping the FK.
	if _, err := tx.Exec(ctx, `
INSERT INTO subscriptions (id, user_id, channel_id, created_at)
SELECT $1, $2, $3, $4
WHERE EXISTS (SELECT 1 FROM channels WHERE id = $3)
ON CONFLICT (user_id, channel_id) DO NOTHING
`, id, userID, channelID, r.cfg.Clock()); err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}

	count, err := r.recountSubscribers(ctx, tx, channelID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit subscribe transaction: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Unsubscribe(ctx context.Context, userID, channelID string) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin unsubscribe transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
DELETE FROM subscriptions WHERE user_id = $1 AND channel_id = $2
`, userID, channelID); err != nil {
		return 0, fmt.Errorf("delete subscription: %w", err)
	}

	count, err := r.recountSubscribers(ctx, tx, channelID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit unsubscribe transaction: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) recountSubscribers(ctx context.Context, tx pgx.Tx, channelID string) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, `
UPDATE channels SET
	subscribers_count = (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1)
WHERE id = $1
RETURNING subscribers_count
`, channelID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("recount subscribers: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) IsSubscribed(ctx context.Context, userID, channelID string) (bool, error) {
	var subscribed bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND channel_id = $2)
`, userID, channelID).Scan(&subscribed); err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return subscribed, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

var _ Repository = (*postgresRepository)(nil)
