package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

// MemoryFiles keeps records in a map guarded by an RWMutex, with a slice
// remembering insertion order for listings.
type MemoryFiles struct {
	mu    sync.RWMutex
	files map[string]*model.File
	order []string
}

// NewMemoryFiles constructs an empty MemoryFiles.
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string]*model.File)}
}

// Insert implements Files.
func (m *MemoryFiles) Insert(_ context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[f.ID]; exists {
		return fmt.Errorf("insert file %s: duplicate id", f.ID)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	rec := *f
	m.files[f.ID] = &rec
	m.order = append(m.order, f.ID)
	return nil
}

// FindByID implements Files.
func (m *MemoryFiles) FindByID(_ context.Context, id string) (*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

// FindOwned implements Files.
func (m *MemoryFiles) FindOwned(ctx context.Context, id, ownerID string) (*model.File, error) {
	f, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return f, nil
}

// List implements Files.
func (m *MemoryFiles) List(_ context.Context, ownerID, parentID string, skip, limit int) ([]*model.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.File, 0, limit)
	seen := 0
	for _, id := range m.order {
		rec := m.files[id]
		if rec.OwnerID != ownerID || rec.ParentID != parentID {
			continue
		}
		if seen < skip {
			seen++
			continue
		}
		if len(out) == limit {
			break
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// SetPublic implements Files. The write lock makes match and mutate a single
// step.
func (m *MemoryFiles) SetPublic(_ context.Context, id, ownerID string, public bool) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	rec.IsPublic = public
	out := *rec
	return &out, nil
}
