package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeVideoGenerate = "video:generate"

	// QueueVideo is the asynq queue video generation tasks run on.
	QueueVideo = "video"
)

// GeneratePayload is the asynq task payload for one generation job.
type GeneratePayload struct {
	VideoID   string `json:"videoId"`
	UserInput string `json:"userInput"`
}

// NewGenerateTask builds the asynq task for a submitted video.
func NewGenerateTask(videoID, userInput string) (*asynq.Task, error) {
	data, err := json.Marshal(GeneratePayload{VideoID: videoID, UserInput: userInput})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeVideoGenerate, data), nil
}

// Enqueuer hands a submitted job to a detached worker. The submitting
// caller never blocks on job completion.
type Enqueuer interface {
	EnqueueGenerate(ctx context.Context, videoID, userInput string) error
}

// AsynqEnqueuer enqueues generation tasks on the video queue. Task-level
// retry is disabled: the only retry in the system is the quality-driven
// generate/critique loop inside the engine.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueGenerate(ctx context.Context, videoID, userInput string) error {
	task, err := NewGenerateTask(videoID, userInput)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueVideo),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	return err
}

// InlineEnqueuer runs the worker in-process on a fresh goroutine. Used by
// tests and single-node deployments without Redis.
type InlineEnqueuer struct {
	Worker *VideoWorker
}

func (e *InlineEnqueuer) EnqueueGenerate(ctx context.Context, videoID, userInput string) error {
	go e.Worker.Run(context.Background(), videoID, userInput)
	return nil
}
