package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

func newTestRegistry(t *testing.T) (Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stores.json")
	r, err := NewRegistry(path)
	require.NoError(t, err)
	return r, path
}

func TestRegistry_CreateAssignsIDAndTimestamps(t *testing.T) {
	r, _ := newTestRegistry(t)
	st, err := r.Create(Store{Name: "app", Kind: KindFile, Path: "/tmp/app"})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, StatusPending, st.Status)
	assert.False(t, st.CreatedAt.IsZero())
}

func TestRegistry_DuplicateNameIsConflict(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Create(Store{Name: "app", Kind: KindFile})
	require.NoError(t, err)

	_, err = r.Create(Store{Name: "app", Kind: KindWeb})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.Conflict))
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	r, path := newTestRegistry(t)
	created, err := r.Create(Store{Name: "app", Kind: KindFile, Path: "/tmp/app"})
	require.NoError(t, err)

	reopened, err := NewRegistry(path)
	require.NoError(t, err)
	st, ok := reopened.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "app", st.Name)

	byName, ok := reopened.GetByName("app")
	require.True(t, ok)
	assert.Equal(t, created.ID, byName.ID)
}

func TestRegistry_UpdateMissingIsNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Update("nope", func(s *Store) {})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.NotFound))
}

func TestRegistry_DeleteIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	st, err := r.Create(Store{Name: "app", Kind: KindFile})
	require.NoError(t, err)

	require.NoError(t, r.Delete(st.ID))
	require.NoError(t, r.Delete(st.ID))
	_, ok := r.Get(st.ID)
	assert.False(t, ok)
}
