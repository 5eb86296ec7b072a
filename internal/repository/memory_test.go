package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

func seed(t *testing.T, repo *MemoryFiles, owner, parent string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%s-%02d", owner, parent, i)
		require.NoError(t, repo.Insert(context.Background(), &model.File{
			ID: id, OwnerID: owner, Name: id, Type: model.TypeFile, ParentID: parent, StorageRef: "ref-" + id,
		}))
		ids = append(ids, id)
	}
	return ids
}

func TestMemoryFiles_InsertAndFind(t *testing.T) {
	repo := NewMemoryFiles()
	ctx := context.Background()
	seed(t, repo, "alice", model.RootID, 1)

	f, err := repo.FindByID(ctx, "alice-0-00")
	require.NoError(t, err)
	assert.Equal(t, "alice", f.OwnerID)
	assert.False(t, f.CreatedAt.IsZero())

	_, err = repo.FindOwned(ctx, "alice-0-00", "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Insert(ctx, &model.File{ID: "alice-0-00", OwnerID: "alice"})
	assert.Error(t, err)
}

func TestMemoryFiles_ReturnsCopies(t *testing.T) {
	repo := NewMemoryFiles()
	ctx := context.Background()
	seed(t, repo, "alice", model.RootID, 1)

	f, err := repo.FindByID(ctx, "alice-0-00")
	require.NoError(t, err)
	f.IsPublic = true

	again, err := repo.FindByID(ctx, "alice-0-00")
	require.NoError(t, err)
	assert.False(t, again.IsPublic)
}

func TestMemoryFiles_ListScopedAndPaged(t *testing.T) {
	repo := NewMemoryFiles()
	ctx := context.Background()
	aliceRoot := seed(t, repo, "alice", model.RootID, 25)
	seed(t, repo, "bob", model.RootID, 5)
	seed(t, repo, "alice", "folder-1", 3)

	page0, err := repo.List(ctx, "alice", model.RootID, 0, 20)
	require.NoError(t, err)
	require.Len(t, page0, 20)
	page1, err := repo.List(ctx, "alice", model.RootID, 20, 20)
	require.NoError(t, err)
	require.Len(t, page1, 5)

	var got []string
	for _, f := range append(page0, page1...) {
		assert.Equal(t, "alice", f.OwnerID)
		assert.Equal(t, model.RootID, f.ParentID)
		got = append(got, f.ID)
	}
	assert.Equal(t, aliceRoot, got, "insertion order is preserved across pages")

	page2, err := repo.List(ctx, "alice", model.RootID, 40, 20)
	require.NoError(t, err)
	assert.Empty(t, page2)

	sub, err := repo.List(ctx, "alice", "folder-1", 0, 20)
	require.NoError(t, err)
	assert.Len(t, sub, 3)
}

func TestMemoryFiles_SetPublic(t *testing.T) {
	repo := NewMemoryFiles()
	ctx := context.Background()
	seed(t, repo, "alice", model.RootID, 1)

	f, err := repo.SetPublic(ctx, "alice-0-00", "alice", true)
	require.NoError(t, err)
	assert.True(t, f.IsPublic)

	f, err = repo.SetPublic(ctx, "alice-0-00", "alice", false)
	require.NoError(t, err)
	assert.False(t, f.IsPublic)

	_, err = repo.SetPublic(ctx, "alice-0-00", "bob", true)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.SetPublic(ctx, "nope", "alice", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFiles_ConcurrentInserts(t *testing.T) {
	repo := NewMemoryFiles()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Insert(ctx, &model.File{ID: fmt.Sprintf("id-%d", i), OwnerID: "alice", ParentID: model.RootID})
		}(i)
	}
	wg.Wait()

	all, err := repo.List(ctx, "alice", model.RootID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 50)
}
