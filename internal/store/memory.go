package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reelcraft/api/internal/model"
)

// MemoryStore is an in-process VideoStore. Used by tests and single-node
// deployments without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	videos   map[string]*model.Video
	progress map[string][]*model.ProgressEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:   make(map[string]*model.Video),
		progress: make(map[string][]*model.ProgressEntry),
	}
}

func (s *MemoryStore) Create(ctx context.Context, video *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = cloneVideo(video)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVideo(video), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*model.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	videos := make([]*model.Video, 0, len(s.videos))
	for _, video := range s.videos {
		videos = append(videos, cloneVideo(video))
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (s *MemoryStore) Update(ctx context.Context, video *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return ErrNotFound
	}
	video.UpdatedAt = time.Now().UTC()
	s.videos[video.ID] = cloneVideo(video)
	return nil
}

func (s *MemoryStore) AppendProgress(ctx context.Context, id string, entry *model.ProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	s.progress[id] = append(s.progress[id], &e)
	return nil
}

func (s *MemoryStore) ListProgress(ctx context.Context, id string) ([]*model.ProgressEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*model.ProgressEntry, 0, len(s.progress[id]))
	for _, entry := range s.progress[id] {
		e := *entry
		entries = append(entries, &e)
	}
	return entries, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(s.videos, id)
	delete(s.progress, id)
	return nil
}

func cloneVideo(v *model.Video) *model.Video {
	c := *v
	c.RawScenes = append([]model.Scene(nil), v.RawScenes...)
	c.ApprovedScenes = append([]model.Scene(nil), v.ApprovedScenes...)
	c.NarrationRefs = append([]string(nil), v.NarrationRefs...)
	return &c
}
