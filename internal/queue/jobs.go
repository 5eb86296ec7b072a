package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ThumbnailTask is scheduled each time an image is uploaded.
	ThumbnailTask = "file:thumbnail"
	// Name is the broker queue thumbnail tasks are published to.
	Name = "fileQueue"
)

// ThumbnailPayload is serialized into the task payload so the worker knows
// which record to load.
type ThumbnailPayload struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
}

// Enqueuer publishes thumbnail jobs. The API depends on this rather than on a
// concrete broker so the in-process pool can stand in for asynq.
type Enqueuer interface {
	EnqueueThumbnail(ctx context.Context, payload ThumbnailPayload) error
}

// NewThumbnailTask builds the asynq task for payload.
func NewThumbnailTask(payload ThumbnailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ThumbnailTask, data), nil
}

// AsynqEnqueuer publishes thumbnail jobs to Redis through asynq.
type AsynqEnqueuer struct {
	client   *asynq.Client
	maxRetry int
}

// NewAsynqEnqueuer wraps client. maxRetry is handed to the broker as is.
func NewAsynqEnqueuer(client *asynq.Client, maxRetry int) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client, maxRetry: maxRetry}
}

// EnqueueThumbnail implements Enqueuer.
func (e *AsynqEnqueuer) EnqueueThumbnail(ctx context.Context, payload ThumbnailPayload) error {
	task, err := NewThumbnailTask(payload)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(Name), asynq.MaxRetry(e.maxRetry)); err != nil {
		return fmt.Errorf("enqueue thumbnail task: %w", err)
	}
	return nil
}
