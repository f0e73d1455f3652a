package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/broadcast"
	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/moderation"
	"github.com/reelcraft/api/internal/sanitize"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/internal/worker"
)

// ErrContentFlagged is returned when a submission fails moderation.
var ErrContentFlagged = errors.New("content violates policy")

// VideoService manages generation jobs: submission, queries, deletion.
type VideoService struct {
	store     store.VideoStore
	enqueuer  worker.Enqueuer
	moderator *moderation.Checker
	hub       *broadcast.Broadcaster
	storage   client.ArtifactStorage // may be nil
	outputDir string
}

func NewVideoService(videoStore store.VideoStore, enqueuer worker.Enqueuer, moderator *moderation.Checker, hub *broadcast.Broadcaster, storage client.ArtifactStorage, outputDir string) *VideoService {
	return &VideoService{
		store:     videoStore,
		enqueuer:  enqueuer,
		moderator: moderator,
		hub:       hub,
		storage:   storage,
		outputDir: outputDir,
	}
}

// Create validates, sanitizes and moderates a submission, persists the new
// record and hands it to a detached worker. Returns immediately.
func (s *VideoService) Create(ctx context.Context, req *model.CreateVideoRequest) (*model.Video, error) {
	title := sanitize.Clean(strings.TrimSpace(req.Title), 255)
	description := sanitize.Clean(strings.TrimSpace(req.Description), 2000)
	userInput := sanitize.Clean(strings.TrimSpace(req.UserInput), 4000)

	if title == "" {
		title = fmt.Sprintf("Video - %s", time.Now().Format("2006-01-02 15:04"))
	}

	if s.moderator.Flagged(ctx, fmt.Sprintf("%s %s %s", title, description, userInput)) {
		return nil, ErrContentFlagged
	}

	now := time.Now().UTC()
	video := &model.Video{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		UserInput:   userInput,
		Status:      model.VideoStatusPending,
		CurrentStep: model.StageStart,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}

	if err := s.enqueuer.EnqueueGenerate(ctx, video.ID, userInput); err != nil {
		return nil, fmt.Errorf("failed to enqueue generation: %w", err)
	}

	return video, nil
}

// Get returns one video or store.ErrNotFound.
func (s *VideoService) Get(ctx context.Context, id string) (*model.Video, error) {
	return s.store.Get(ctx, id)
}

// List returns all videos, newest first.
func (s *VideoService) List(ctx context.Context) ([]*model.Video, error) {
	return s.store.List(ctx)
}

// Progress returns the append-only progress log for a video.
func (s *VideoService) Progress(ctx context.Context, id string) ([]*model.ProgressEntry, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListProgress(ctx, id)
}

// Delete removes the record, its retained stream state, and its artifact
// file when one exists under the output root. Deleting an absent id returns
// store.ErrNotFound, so a repeated delete never succeeds twice.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	video, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if video.FilePath != "" {
		if path, err := s.SafeArtifactPath(video.FilePath); err == nil {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove artifact for video %s: %v", id, err)
			}
		}
	}

	if s.storage != nil && video.PublicURL != "" {
		if err := s.storage.DeleteArtifact(ctx, id); err != nil {
			log.Printf("Failed to remove mirrored artifact for video %s: %v", id, err)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.hub.Forget(id)
	return nil
}

// SafeArtifactPath resolves a stored artifact path and rejects anything
// outside the configured output root.
func (s *VideoService) SafeArtifactPath(storedPath string) (string, error) {
	abs, err := filepath.Abs(storedPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path")
	}
	root := filepath.Clean(s.outputDir)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path")
	}
	return abs, nil
}
