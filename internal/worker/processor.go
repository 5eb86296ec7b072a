// Package worker derives thumbnails for uploaded images. Processor.Process
// holds the job logic; Handler plugs it into an asynq server and the
// processing package runs it in-process.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/FileVault/internal/blob"
	"github.com/dharsanguruparan/FileVault/internal/queue"
	"github.com/dharsanguruparan/FileVault/internal/repository"
	"github.com/dharsanguruparan/FileVault/internal/thumbnail"
)

var (
	// ErrInvalidJob marks payloads that can never succeed.
	ErrInvalidJob = errors.New("invalid thumbnail job")
	// ErrFileNotFound means no record matches the job's file and user.
	ErrFileNotFound = errors.New("file not found")
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	repo  repository.Files
	store blob.Store
	log   *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo repository.Files, store blob.Store, log *slog.Logger) *Processor {
	return &Processor{repo: repo, store: store, log: log}
}

// Handler registers the thumbnail job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ThumbnailTask, p.handleThumbnail)
	return mux
}

func (p *Processor) handleThumbnail(ctx context.Context, task *asynq.Task) error {
	var payload queue.ThumbnailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		p.log.ErrorContext(ctx, "thumbnail job rejected", "error", err)
		return fmt.Errorf("%w: decode payload: %v", ErrInvalidJob, err)
	}
	return p.Process(ctx, payload)
}

// Process runs one thumbnail job: load the record, read the original, write
// one derivative per width. Derivatives are overwritten, so re-running a job
// is safe; a failure part way leaves earlier derivatives in place.
func (p *Processor) Process(ctx context.Context, job queue.ThumbnailPayload) error {
	log := p.log.With("file_id", job.FileID, "user_id", job.UserID)
	failure := func(err error) error {
		log.ErrorContext(ctx, "thumbnail job failed", "error", err)
		return err
	}
	if job.FileID == "" {
		return failure(fmt.Errorf("%w: missing fileId", ErrInvalidJob))
	}
	if job.UserID == "" {
		return failure(fmt.Errorf("%w: missing userId", ErrInvalidJob))
	}
	file, err := p.repo.FindOwned(ctx, job.FileID, job.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return failure(ErrFileNotFound)
	}
	if err != nil {
		return failure(err)
	}
	if file.StorageRef == "" {
		return failure(fmt.Errorf("%w: file %s has no content", ErrInvalidJob, file.ID))
	}
	data, err := blob.ReadAll(ctx, p.store, file.StorageRef)
	if err != nil {
		return failure(fmt.Errorf("read original: %w", err))
	}
	src, err := thumbnail.Decode(data)
	if err != nil {
		return failure(err)
	}
	for _, width := range thumbnail.Widths {
		out, err := src.Resize(width)
		if err != nil {
			return failure(err)
		}
		if err := blob.PutBytes(ctx, p.store, blob.DerivativeRef(file.StorageRef, width), out); err != nil {
			return failure(fmt.Errorf("write %dpx thumbnail: %w", width, err))
		}
	}
	w, h := src.Size()
	log.InfoContext(ctx, "thumbnails generated", "format", src.Format(), "width", w, "height", h)
	return nil
}
