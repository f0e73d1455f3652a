package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reelcraft/api/internal/broadcast"
	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/internal/workflow"
)

// VideoWorker drives the generation pipeline for one job at a time. It owns
// the job's in-flight state for the duration of the run: the store sees
// snapshots, the broadcaster sees ephemeral events, and nothing else writes.
type VideoWorker struct {
	store   store.VideoStore
	engine  *workflow.Engine
	hub     *broadcast.Broadcaster
	storage client.ArtifactStorage // optional artifact mirror, may be nil
}

func NewVideoWorker(videoStore store.VideoStore, engine *workflow.Engine, hub *broadcast.Broadcaster, storage client.ArtifactStorage) *VideoWorker {
	return &VideoWorker{
		store:   videoStore,
		engine:  engine,
		hub:     hub,
		storage: storage,
	}
}

// ProcessTask handles a video:generate task from the asynq queue.
func (w *VideoWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	w.Run(ctx, payload.VideoID, payload.UserInput)
	// Job-level failures are persisted on the record; never re-run the task.
	return nil
}

// Run executes the pipeline for one job to its terminal state.
func (w *VideoWorker) Run(ctx context.Context, videoID, userInput string) {
	log.Printf("Starting video generation job: %s", videoID)

	w.report(ctx, videoID, model.StageGenerating, 5, "Starting video generation...")

	result := w.engine.Run(ctx, userInput, func(stage model.Stage, percent int, message string) {
		w.report(ctx, videoID, stage, percent, message)
	})

	if result.Failed() {
		w.finalizeFailure(ctx, videoID, result)
		log.Printf("Video generation job %s failed: %s", videoID, result.Err)
		return
	}

	w.finalizeSuccess(ctx, videoID, result)
	log.Printf("Video generation job %s completed", videoID)
}

// report performs exactly one store update and one broadcaster publish per
// stage transition, in that order. Store failures are logged and swallowed:
// they must never abort the worker.
func (w *VideoWorker) report(ctx context.Context, videoID string, stage model.Stage, percent int, message string) {
	now := time.Now().UTC()

	status := model.VideoStatusProcessing
	entryStatus := model.ProgressStarted
	switch stage {
	case model.StageCompleted:
		status = model.VideoStatusCompleted
		entryStatus = model.ProgressCompleted
	case model.StageFailed:
		status = model.VideoStatusFailed
		entryStatus = model.ProgressFailed
	}

	var stageChanged bool
	video, err := w.store.Get(ctx, videoID)
	if err != nil {
		log.Printf("Failed to load video %s for progress update: %v", videoID, err)
	} else {
		stageChanged = video.CurrentStep != stage
		video.Status = status
		video.CurrentStep = stage
		video.Progress = percent
		if stage == model.StageFailed {
			msg := message
			video.Error = &msg
		}
		if err := w.store.Update(ctx, video); err != nil {
			log.Printf("Failed to update video %s: %v", videoID, err)
		}
		entry := &model.ProgressEntry{Stage: stage, Status: entryStatus, Message: message, Timestamp: now}
		if err := w.store.AppendProgress(ctx, videoID, entry); err != nil {
			log.Printf("Failed to append progress for video %s: %v", videoID, err)
		}
	}

	w.hub.Publish(videoID, model.StreamEvent{
		Type:      model.StreamEventProgress,
		Progress:  percent,
		Message:   message,
		Timestamp: now,
	})

	// On a stage change subscribers also get the refreshed record, so a
	// client can track state without polling the REST endpoints.
	if stageChanged && !stage.IsTerminal() {
		w.hub.Publish(videoID, model.StreamEvent{
			Type:      model.StreamEventUpdate,
			Data:      video,
			Timestamp: now,
		})
	}
}

func (w *VideoWorker) finalizeSuccess(ctx context.Context, videoID string, result *workflow.Result) {
	video, err := w.store.Get(ctx, videoID)
	if err != nil {
		log.Printf("Failed to load video %s for completion: %v", videoID, err)
		return
	}

	video.Status = model.VideoStatusCompleted
	video.CurrentStep = model.StageCompleted
	video.Progress = 100
	video.Error = nil
	video.RawScenes = result.RawScenes
	video.ApprovedScenes = result.ApprovedScenes
	video.NarrationRefs = result.NarrationRefs
	video.RetryCount = result.RetryCount
	video.FilePath = result.Artifact.FilePath
	video.Duration = result.Artifact.Duration
	if video.Duration == 0 {
		// The assembler did not report one; fall back to scene durations.
		for _, scene := range result.ApprovedScenes {
			if scene.DurationSeconds > 0 {
				video.Duration += scene.DurationSeconds
			}
		}
	}

	if w.storage != nil {
		url, err := w.storage.UploadArtifact(ctx, videoID, video.FilePath)
		if err != nil {
			log.Printf("Failed to mirror artifact for video %s: %v", videoID, err)
		} else {
			video.PublicURL = url
		}
	}

	if err := w.store.Update(ctx, video); err != nil {
		log.Printf("Failed to persist completion for video %s: %v", videoID, err)
	}
	entry := &model.ProgressEntry{
		Stage:     model.StageCompleted,
		Status:    model.ProgressCompleted,
		Message:   "Video generation completed successfully",
		Timestamp: time.Now().UTC(),
	}
	if err := w.store.AppendProgress(ctx, videoID, entry); err != nil {
		log.Printf("Failed to append completion entry for video %s: %v", videoID, err)
	}

	w.hub.Publish(videoID, model.StreamEvent{
		Type:      model.StreamEventComplete,
		Data:      video,
		Timestamp: time.Now().UTC(),
	})
}

func (w *VideoWorker) finalizeFailure(ctx context.Context, videoID string, result *workflow.Result) {
	errMsg := result.Err
	if errMsg == "" {
		errMsg = "unknown error"
	}

	video, err := w.store.Get(ctx, videoID)
	if err != nil {
		log.Printf("Failed to load video %s for failure: %v", videoID, err)
	} else {
		video.Status = model.VideoStatusFailed
		video.CurrentStep = model.StageFailed
		// Progress stays at the percent of the stage that failed.
		video.Error = &errMsg
		video.RawScenes = result.RawScenes
		video.ApprovedScenes = result.ApprovedScenes
		video.NarrationRefs = result.NarrationRefs
		video.RetryCount = result.RetryCount
		if err := w.store.Update(ctx, video); err != nil {
			log.Printf("Failed to persist failure for video %s: %v", videoID, err)
		}
		entry := &model.ProgressEntry{
			Stage:     model.StageFailed,
			Status:    model.ProgressFailed,
			Message:   fmt.Sprintf("Video generation failed: %s", errMsg),
			Timestamp: time.Now().UTC(),
		}
		if err := w.store.AppendProgress(ctx, videoID, entry); err != nil {
			log.Printf("Failed to append failure entry for video %s: %v", videoID, err)
		}
	}

	w.hub.Publish(videoID, model.StreamEvent{
		Type:      model.StreamEventError,
		Message:   errMsg,
		Timestamp: time.Now().UTC(),
	})
}
