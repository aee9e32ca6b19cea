package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cliptide/internal/models"
)

type dataset struct {
	Users         map[string]models.User                 `json:"users"`
	Channels      map[string]models.Channel              `json:"channels"`
	Videos        map[string]models.Video                `json:"videos"`
	VideoLikes    map[string]map[string]models.VideoLike `json:"videoLikes"`
	VideoViews    map[string]models.VideoView               `json:"videoViews"`
	Subscriptions map[string]map[string]models.Subscription `json:"subscriptions"`
}

// Storage is the JSON-file datastore used for development and tests. Every
// mutation works on a cloned dataset and swaps it in only after a successful
// persist, so a failed write never leaves partial state in memory.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	now             func() time.Time
}

// NewJSONRepository opens the JSON-backed datastore and returns it as a
// Repository.
func NewJSONRepository(path string, opts ...Option) (Repository, error) {
	return NewStorage(path, opts...)
}

func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath: path,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Channels:      make(map[string]models.Channel),
		Videos:        make(map[string]models.Video),
		VideoLikes:    make(map[string]map[string]models.VideoLike),
		VideoViews:    make(map[string]models.VideoView),
		Subscriptions: make(map[string]map[string]models.Subscription),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Channels == nil {
		s.data.Channels = make(map[string]models.Channel)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.VideoLikes == nil {
		s.data.VideoLikes = make(map[string]map[string]models.VideoLike)
	}
	if s.data.VideoViews == nil {
		s.data.VideoViews = make(map[string]models.VideoView)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]map[string]models.Subscription)
	}
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()
	for id, user := range src.Users {
		clone.Users[id] = user
	}
	for id, channel := range src.Channels {
		clone.Channels[id] = channel
	}
	for id, video := range src.Videos {
		clone.Videos[id] = video
	}
	for videoID, likes := range src.VideoLikes {
		cloned := make(map[string]models.VideoLike, len(likes))
		for userID, like := range likes {
			cloned[userID] = like
		}
		clone.VideoLikes[videoID] = cloned
	}
	for id, view := range src.VideoViews {
		clone.VideoViews[id] = view
	}
	for channelID, subs := range src.Subscriptions {
		cloned := make(map[string]models.Subscription, len(subs))
		for userID, sub := range subs {
			cloned[userID] = sub
		}
		clone.Subscriptions[channelID] = cloned
	}
	return clone
}

func (s *Storage) RegisterUser(_ context.Context, params RegisterParams) (models.User, models.Channel, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return models.User{}, models.Channel{}, fmt.Errorf("username is required")
	}

	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, models.Channel{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if strings.EqualFold(existing.Username, username) {
			return models.User{}, models.Channel{}, ErrUsernameTaken
		}
	}

	userID, err := generateID()
	if err != nil {
		return models.User{}, models.Channel{}, err
	}
	channelID, err := generateID()
	if err != nil {
		return models.User{}, models.Channel{}, err
	}

	now := s.now()
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

	updated := cloneDataset(s.data)
	updated.Users[userID] = user
	updated.Channels[channelID] = channel
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, models.Channel{}, err
	}
	s.data = updated

	return user, channel, nil
}

func (s *Storage) FindUserByUsername(_ context.Context, username string) (models.User, models.Channel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data.Users {
		if strings.EqualFold(user.Username, username) {
			for _, channel := range s.data.Channels {
				if channel.UserID == user.ID {
					return user, channel, true, nil
				}
			}
			return user, models.Channel{}, true, nil
		}
	}
	return models.User{}, models.Channel{}, false, nil
}

func (s *Storage) GetChannel(_ context.Context, id string) (ChannelProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channel, ok := s.data.Channels[id]
	if !ok {
		return ChannelProfile{}, false, nil
	}
	return ChannelProfile{Channel: channel, VideosCount: s.countVideosLocked(id)}, true, nil
}

func (s *Storage) GetChannelByUser(_ context.Context, userID string) (ChannelProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, channel := range s.data.Channels {
		if channel.UserID == userID {
			return ChannelProfile{Channel: channel, VideosCount: s.countVideosLocked(channel.ID)}, true, nil
		}
	}
	return ChannelProfile{}, false, nil
}

func (s *Storage) countVideosLocked(channelID string) int {
	count := 0
	for _, video := range s.data.Videos {
		if video.ChannelID == channelID {
			count++
		}
	}
	return count
}

func (s *Storage) UpdateChannel(_ context.Context, userID string, update ChannelUpdate) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target models.Channel
	found := false
	for _, channel := range s.data.Channels {
		if channel.UserID == userID {
			target = channel
			found = true
			break
		}
	}
	if !found {
		return models.Channel{}, ErrNotFound
	}

	if update.Name != nil {
		target.Name = *update.Name
	}
	if update.Description != nil {
		target.Description = *update.Description
	}
	if update.AvatarURL != nil {
		target.AvatarURL = *update.AvatarURL
	}
	if update.BannerURL != nil {
		target.BannerURL = *update.BannerURL
	}

	updated := cloneDataset(s.data)
	updated.Channels[target.ID] = target
	if err := s.persistDataset(updated); err != nil {
		return models.Channel{}, err
	}
	s.data = updated

	return target, nil
}

func (s *Storage) CreateVideo(_ context.Context, params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		CreatedAt:    s.now(),
	}

	updated := cloneDataset(s.data)
	updated.Videos[id] = video
	if err := s.persistDataset(updated); err != nil {
		return models.Video{}, err
	}
	s.data = updated

	return video, nil
}

func (s *Storage) ListRecentVideos(_ context.Context, limit int) ([]VideoListing, error) {
	if limit <= 0 {
		limit = RecentVideosLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID > videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	if len(videos) > limit {
		videos = videos[:limit]
	}

	listings := make([]VideoListing, 0, len(videos))
	for _, video := range videos {
		listing := VideoListing{Video: video}
		if channel, ok := s.data.Channels[video.ChannelID]; ok {
			name := channel.Name
			verified := channel.IsVerified
			listing.ChannelName = &name
			listing.IsVerified = &verified
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *Storage) SetVideoReaction(_ context.Context, userID, videoID string, isLike bool) (ReactionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return ReactionCounts{}, ErrNotFound
	}

	updated := cloneDataset(s.data)
	likes := updated.VideoLikes[videoID]
	if likes == nil {
		likes = make(map[string]models.VideoLike)
		updated.VideoLikes[videoID] = likes
	}
	existing, reacted := likes[userID]
	if reacted {
		existing.IsLike = isLike
		likes[userID] = existing
	} else {
		likes[userID] = models.VideoLike{
			UserID:    userID,
			VideoID:   videoID,
			IsLike:    isLike,
			CreatedAt: s.now(),
		}
	}

	counts := recountReactions(likes)
	video.LikesCount = counts.Likes
	video.DislikesCount = counts.Dislikes
	updated.Videos[videoID] = video

	if err := s.persistDataset(updated); err != nil {
		return ReactionCounts{}, err
	}
	s.data = updated

	return counts, nil
}

func recountReactions(likes map[string]models.VideoLike) ReactionCounts {
	counts := ReactionCounts{}
	for _, like := range likes {
		if like.IsLike {
			counts.Likes++
		} else {
			counts.Dislikes++
		}
	}
	return counts
}

func (s *Storage) GetVideoReaction(_ context.Context, userID, videoID string) (*bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes, ok := s.data.VideoLikes[videoID]
	if !ok {
		return nil, nil
	}
	like, ok := likes[userID]
	if !ok {
		return nil, nil
	}
	verdict := like.IsLike
	return &verdict, nil
}

func (s *Storage) RecordView(_ context.Context, userID, videoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return 0, ErrNotFound
	}

	id, err := generateID()
	if err != nil {
		return 0, err
	}

	updated := cloneDataset(s.data)
	updated.VideoViews[id] = models.VideoView{
		ID:        id,
		UserID:    userID,
		VideoID:   videoID,
		CreatedAt: s.now(),
	}
	video.ViewsCount++
	updated.Videos[videoID] = video

	if err := s.persistDataset(updated); err != nil {
		return 0, err
	}
	s.data = updated

	return video.ViewsCount, nil
}

func (s *Storage) Subscribe(_ context.Context, userID, channelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.data.Channels[channelID]
	if !ok {
		return 0, ErrNotFound
	}

	updated := cloneDataset(s.data)
	subs := updated.Subscriptions[channelID]
	if subs == nil {
		subs = make(map[string]models.Subscription)
		updated.Subscriptions[channelID] = subs
	}
	if _, exists := subs[userID]; !exists {
		id, err := generateID()
		if err != nil {
			return 0, err
		}
		subs[userID] = models.Subscription{
			ID:        id,
			UserID:    userID,
			ChannelID: channelID,
			CreatedAt: s.now(),
		}
	}

	channel.SubscribersCount = len(subs)
	updated.Channels[channelID] = channel

	if err := s.persistDataset(updated); err != nil {
		return 0, err
	}
	s.data = updated

	return channel.SubscribersCount, nil
}

func (s *Storage) Unsubscribe(_ context.Context, userID, channelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel, ok := s.data.Channels[channelID]
	if !ok {
		return 0, ErrNotFound
	}

	updated := cloneDataset(s.data)
	subs := updated.Subscriptions[channelID]
	delete(subs, userID)

	channel.SubscribersCount = len(subs)
	updated.Channels[channelID] = channel

	if err := s.persistDataset(updated); err != nil {
		return 0, err
	}
	s.data = updated

	return channel.SubscribersCount, nil
}

func (s *Storage) IsSubscribed(_ context.Context, userID, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs, ok := s.data.Subscriptions[channelID]
	if !ok {
		return false, nil
	}
	_, subscribed := subs[userID]
	return subscribed, nil
}

func (s *Storage) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Users == nil {
		return fmt.Errorf("datastore not loaded")
	}
	return nil
}

var _ Repository = (*Storage)(nil)
