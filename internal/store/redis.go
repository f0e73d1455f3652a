package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/model"
)

const (
	videoKeyPrefix   = "video:"
	videoIndexKey    = "videos:index"
	progressSuffix   = ":progress"
	defaultRecordTTL = 7 * 24 * time.Hour
)

// RedisStore keeps each video as a JSON snapshot under video:{id}, an index
// sorted set scored by creation time for newest-first listing, and the
// progress log as an append-only list under video:{id}:progress.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		redis: redisClient,
		ttl:   defaultRecordTTL,
	}
}

func (s *RedisStore) Create(ctx context.Context, video *model.Video) error {
	if err := s.save(ctx, video); err != nil {
		return err
	}
	score := float64(video.CreatedAt.UnixNano())
	if err := s.redis.ZAdd(ctx, videoIndexKey, redis.Z{Score: score, Member: video.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index video: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Video, error) {
	data, err := s.redis.Get(ctx, videoKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var video model.Video
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*model.Video, error) {
	// ZRevRange: highest creation time first.
	ids, err := s.redis.ZRevRange(ctx, videoIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	videos := make([]*model.Video, 0, len(ids))
	for _, id := range ids {
		video, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				// Expired record still in the index.
				s.redis.ZRem(ctx, videoIndexKey, id)
				continue
			}
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (s *RedisStore) Update(ctx context.Context, video *model.Video) error {
	exists, err := s.redis.Exists(ctx, videoKey(video.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.save(ctx, video)
}

func (s *RedisStore) AppendProgress(ctx context.Context, id string, entry *model.ProgressEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := videoKey(id) + progressSuffix
	if err := s.redis.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisStore) ListProgress(ctx context.Context, id string) ([]*model.ProgressEntry, error) {
	items, err := s.redis.LRange(ctx, videoKey(id)+progressSuffix, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*model.ProgressEntry, 0, len(items))
	for _, item := range items {
		var entry model.ProgressEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	removed, err := s.redis.Del(ctx, videoKey(id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	s.redis.Del(ctx, videoKey(id)+progressSuffix)
	s.redis.ZRem(ctx, videoIndexKey, id)
	return nil
}

func (s *RedisStore) save(ctx context.Context, video *model.Video) error {
	video.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(video)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, videoKey(video.ID), data, s.ttl).Err()
}

func videoKey(id string) string {
	return videoKeyPrefix + id
}
