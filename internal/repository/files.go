// Package repository persists file metadata. Three backends implement the
// same Files contract: MongoDB, PostgreSQL and an in-memory map.
package repository

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

// ErrNotFound is returned when no record matches the lookup, including when
// the id exists but belongs to another owner.
var ErrNotFound = errors.New("file not found")

// Files is the metadata store contract used by the service and the worker.
type Files interface {
	// Insert stores a new record. f.ID must already be set.
	Insert(ctx context.Context, f *model.File) error
	// FindByID looks a record up regardless of owner.
	FindByID(ctx context.Context, id string) (*model.File, error)
	// FindOwned looks a record up by id and owner.
	FindOwned(ctx context.Context, id, ownerID string) (*model.File, error)
	// List returns ownerID's records under parentID in insertion order.
	List(ctx context.Context, ownerID, parentID string, skip, limit int) ([]*model.File, error)
	// SetPublic atomically updates the record matching id and owner and
	// returns it as stored after the update.
	SetPublic(ctx context.Context, id, ownerID string, public bool) (*model.File, error)
}
