package worker

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/FileVault/internal/blob"
	"github.com/dharsanguruparan/FileVault/internal/logging"
	"github.com/dharsanguruparan/FileVault/internal/model"
	"github.com/dharsanguruparan/FileVault/internal/queue"
	"github.com/dharsanguruparan/FileVault/internal/repository"
	"github.com/dharsanguruparan/FileVault/internal/thumbnail"
)

type fixture struct {
	repo  *repository.MemoryFiles
	store *blob.LocalStore
	proc  *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := repository.NewMemoryFiles()
	return &fixture{repo: repo, store: store, proc: NewProcessor(repo, store, logging.Discard())}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 3), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (f *fixture) addImage(t *testing.T, id, owner string, data []byte) *model.File {
	t.Helper()
	ctx := context.Background()
	ref := blob.NewRef()
	require.NoError(t, blob.PutBytes(ctx, f.store, ref, data))
	file := &model.File{ID: id, OwnerID: owner, Name: id + ".png", Type: model.TypeImage, ParentID: model.RootID, StorageRef: ref}
	require.NoError(t, f.repo.Insert(ctx, file))
	return file
}

func TestProcess_WritesAllDerivatives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.addImage(t, "cat", "alice", pngBytes(t, 800, 400))

	require.NoError(t, f.proc.Process(ctx, queue.ThumbnailPayload{FileID: "cat", UserID: "alice"}))

	for _, width := range thumbnail.Widths {
		data, err := blob.ReadAll(ctx, f.store, blob.DerivativeRef(file.StorageRef, width))
		require.NoError(t, err, "width %d", width)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, width, cfg.Width)
		assert.Equal(t, width/2, cfg.Height)
	}

	original, err := blob.ReadAll(ctx, f.store, file.StorageRef)
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t, 800, 400), original, "original is untouched")
}

func TestProcess_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.addImage(t, "dog", "alice", pngBytes(t, 300, 300))
	job := queue.ThumbnailPayload{FileID: "dog", UserID: "alice"}

	require.NoError(t, f.proc.Process(ctx, job))
	first := map[int][]byte{}
	for _, width := range thumbnail.Widths {
		data, err := blob.ReadAll(ctx, f.store, blob.DerivativeRef(file.StorageRef, width))
		require.NoError(t, err)
		first[width] = data
	}

	require.NoError(t, f.proc.Process(ctx, job))
	for _, width := range thumbnail.Widths {
		data, err := blob.ReadAll(ctx, f.store, blob.DerivativeRef(file.StorageRef, width))
		require.NoError(t, err)
		assert.Equal(t, first[width], data, "width %d", width)
	}
}

func TestProcess_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addImage(t, "owned", "alice", pngBytes(t, 10, 10))
	f.addImage(t, "broken", "alice", []byte("not an image"))
	require.NoError(t, f.repo.Insert(ctx, &model.File{ID: "lost", OwnerID: "alice", Name: "lost.png", Type: model.TypeImage, ParentID: model.RootID, StorageRef: "missing-ref"}))
	require.NoError(t, f.repo.Insert(ctx, &model.File{ID: "dir", OwnerID: "alice", Name: "dir", Type: model.TypeFolder, ParentID: model.RootID}))

	tests := []struct {
		name    string
		job     queue.ThumbnailPayload
		wantErr error
	}{
		{name: "missing file id", job: queue.ThumbnailPayload{UserID: "alice"}, wantErr: ErrInvalidJob},
		{name: "missing user id", job: queue.ThumbnailPayload{FileID: "owned"}, wantErr: ErrInvalidJob},
		{name: "unknown file", job: queue.ThumbnailPayload{FileID: "nope", UserID: "alice"}, wantErr: ErrFileNotFound},
		{name: "wrong owner", job: queue.ThumbnailPayload{FileID: "owned", UserID: "bob"}, wantErr: ErrFileNotFound},
		{name: "folder", job: queue.ThumbnailPayload{FileID: "dir", UserID: "alice"}, wantErr: ErrInvalidJob},
		{name: "missing blob", job: queue.ThumbnailPayload{FileID: "lost", UserID: "alice"}, wantErr: blob.ErrNotExist},
		{name: "undecodable", job: queue.ThumbnailPayload{FileID: "broken", UserID: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.proc.Process(ctx, tt.job)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHandler_DecodesAsynqTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.addImage(t, "bird", "alice", pngBytes(t, 120, 60))

	task, err := queue.NewThumbnailTask(queue.ThumbnailPayload{FileID: "bird", UserID: "alice"})
	require.NoError(t, err)
	require.NoError(t, f.proc.Handler().ProcessTask(ctx, task))

	ok, err := f.store.Exists(ctx, blob.DerivativeRef(file.StorageRef, 100))
	require.NoError(t, err)
	assert.True(t, ok)

	err = f.proc.Handler().ProcessTask(ctx, asynq.NewTask(queue.ThumbnailTask, []byte("{")))
	assert.ErrorIs(t, err, ErrInvalidJob)
}
