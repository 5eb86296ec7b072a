// Package blob stores raw file bytes outside the metadata store. A blob is
// addressed by an opaque reference generated at upload time; thumbnails live
// next to it under DerivativeRef.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// ErrNotExist is returned when no blob is stored under a reference.
var ErrNotExist = errors.New("blob does not exist")

// ErrInvalidRef rejects references that would escape the storage area.
var ErrInvalidRef = errors.New("invalid blob reference")

// Store is the storage gateway contract.
type Store interface {
	// Put writes size bytes from r under ref, replacing any previous blob.
	// The blob is complete once Put returns nil.
	Put(ctx context.Context, ref string, r io.Reader, size int64) error
	// Open streams the blob under ref, or returns ErrNotExist.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Exists reports whether a blob is stored under ref.
	Exists(ctx context.Context, ref string) (bool, error)
}

// NewRef generates a fresh reference for an original upload.
func NewRef() string {
	return uuid.NewString()
}

// DerivativeRef is where the thumbnail of the given width for ref lives.
func DerivativeRef(ref string, width int) string {
	return ref + "_" + strconv.Itoa(width)
}

// PutBytes is a convenience wrapper around Store.Put.
func PutBytes(ctx context.Context, s Store, ref string, data []byte) error {
	return s.Put(ctx, ref, bytes.NewReader(data), int64(len(data)))
}

// ReadAll loads the whole blob under ref into memory.
func ReadAll(ctx context.Context, s Store, ref string) ([]byte, error) {
	rc, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}
