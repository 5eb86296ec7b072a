// Package files implements the file operations exposed over HTTP: upload,
// lookup, listing, publishing and content download. It resolves the caller,
// applies the access rules and coordinates the metadata store, the blob store
// and the thumbnail queue.
package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/FileVault/internal/access"
	"github.com/dharsanguruparan/FileVault/internal/auth"
	"github.com/dharsanguruparan/FileVault/internal/blob"
	"github.com/dharsanguruparan/FileVault/internal/model"
	"github.com/dharsanguruparan/FileVault/internal/queue"
	"github.com/dharsanguruparan/FileVault/internal/repository"
	"github.com/dharsanguruparan/FileVault/internal/thumbnail"
)

// PageSize is the fixed number of entries per listing page.
const PageSize = 20

const defaultContentType = "application/octet-stream"

// CreateInput is the upload request. Data carries the base64 payload and is
// required for everything but folders.
type CreateInput struct {
	Name     string `validate:"required"`
	Type     string `validate:"required,oneof=folder file image"`
	ParentID string
	IsPublic bool
	Data     string `validate:"required_unless=Type folder"`
}

var fieldMessages = map[string]string{
	"Name": "Missing name",
	"Type": "Missing type",
	"Data": "Missing data",
}

// Content is an open blob ready to be streamed. Callers must close Body.
type Content struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

// Service composes the token authority, metadata store, blob store and job
// queue.
type Service struct {
	repo     repository.Files
	blobs    blob.Store
	tokens   *auth.Authority
	jobs     queue.Enqueuer
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires a Service.
func NewService(repo repository.Files, blobs blob.Store, tokens *auth.Authority, jobs queue.Enqueuer, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		tokens:   tokens,
		jobs:     jobs,
		log:      log,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a folder, file or image for the token's user. The blob is
// written before the metadata record that points at it, and the thumbnail job
// is queued only after the record is committed.
func (s *Service) Create(ctx context.Context, token string, in CreateInput) (*model.File, error) {
	userID, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	parentID := in.ParentID
	if parentID == "" {
		parentID = model.RootID
	}
	if parentID != model.RootID {
		parent, err := s.repo.FindByID(ctx, parentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrParentNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load parent: %w", err)
		}
		if !parent.IsFolder() {
			return nil, ErrParentNotFolder
		}
	}

	file := &model.File{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Name:      in.Name,
		Type:      model.FileType(in.Type),
		IsPublic:  in.IsPublic,
		ParentID:  parentID,
		CreatedAt: s.now(),
	}
	if !file.IsFolder() {
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			return nil, &ValidationError{Field: "data", Message: "Invalid data"}
		}
		ref := blob.NewRef()
		if err := blob.PutBytes(ctx, s.blobs, ref, data); err != nil {
			s.log.ErrorContext(ctx, "write blob failed", "user_id", userID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		file.StorageRef = ref
	}
	if err := s.repo.Insert(ctx, file); err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}

	if file.Type == model.TypeImage {
		job := queue.ThumbnailPayload{FileID: file.ID, UserID: userID}
		if err := s.jobs.EnqueueThumbnail(ctx, job); err != nil {
			s.log.ErrorContext(ctx, "enqueue thumbnail failed", "file_id", file.ID, "user_id", userID, "error", err)
		}
	}
	s.log.InfoContext(ctx, "file created", "file_id", file.ID, "user_id", userID, "type", file.Type)
	return file, nil
}

// Get returns the metadata of one of the caller's files. Files owned by
// someone else are reported as missing.
func (s *Service) Get(ctx context.Context, token, id string) (*model.File, error) {
	userID, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	file, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanReadMetadata(userID, file) {
		return nil, ErrNotFound
	}
	return file, nil
}

// List returns one page of the caller's files directly under parentID.
// Negative pages are treated as the first page.
func (s *Service) List(ctx context.Context, token, parentID string, page int) ([]*model.File, error) {
	userID, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if page < 0 {
		page = 0
	}
	scope := access.ListScope(userID, parentID)
	out, err := s.repo.List(ctx, scope.OwnerID, scope.ParentID, page*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// Publish makes a file's content readable by anyone.
func (s *Service) Publish(ctx context.Context, token, id string) (*model.File, error) {
	return s.setVisibility(ctx, token, id, true)
}

// Unpublish restricts a file's content to its owner.
func (s *Service) Unpublish(ctx context.Context, token, id string) (*model.File, error) {
	return s.setVisibility(ctx, token, id, false)
}

func (s *Service) setVisibility(ctx context.Context, token, id string, public bool) (*model.File, error) {
	userID, err := s.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	file, err := s.repo.SetPublic(ctx, id, userID, public)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	if !access.CanMutateVisibility(userID, file) {
		return nil, ErrNotFound
	}
	return file, nil
}

// Content opens a file's bytes, or the derivative of the given width when
// size is non-zero. token may be empty. Every failure that could reveal a
// private file's existence is reported as ErrNotFound.
func (s *Service) Content(ctx context.Context, token, id string, size int) (*Content, error) {
	file, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	var userID string
	if !file.IsPublic {
		userID, err = s.tokens.Resolve(ctx, token)
		if err != nil && !errors.Is(err, auth.ErrNoSession) {
			s.log.WarnContext(ctx, "token lookup failed", "file_id", id, "error", err)
		}
	}
	if !access.CanReadContent(userID, file) {
		return nil, ErrNotFound
	}
	if file.IsFolder() {
		return nil, ErrNoContent
	}
	if file.StorageRef == "" {
		return nil, ErrNotFound
	}
	ref := file.StorageRef
	if size != 0 {
		if !thumbnail.IsWidth(size) {
			return nil, ErrNotFound
		}
		ref = blob.DerivativeRef(ref, size)
	}
	body, err := s.blobs.Open(ctx, ref)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open content: %w", err)
	}
	return &Content{Name: file.Name, ContentType: ContentType(file.Name), Body: body}, nil
}

// ContentType infers a MIME type from name's extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *Service) find(ctx context.Context, id string) (*model.File, error) {
	file, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	return file, nil
}

func (s *Service) resolveUser(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if errors.Is(err, auth.ErrNoSession) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Service) validateInput(in CreateInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		if msg, ok := fieldMessages[field]; ok {
			return &ValidationError{Field: field, Message: msg}
		}
	}
	return &ValidationError{Message: err.Error()}
}
