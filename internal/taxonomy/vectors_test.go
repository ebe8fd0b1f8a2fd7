package taxonomy

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Parse(strings.NewReader(testDocument))
	require.NoError(t, err)
	return store
}

// fakeEmbed returns a deterministic vector per text so tests can tell
// entries apart without a real model.
func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestBuildAndAttachVectors(t *testing.T) {
	store := testStore(t)

	vs, err := store.BuildVectors(context.Background(), fakeEmbed, "test-model@3", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, vs.Dimension)
	assert.Len(t, vs.Entries, store.Len())

	attached, err := store.AttachVectors(vs)
	require.NoError(t, err)
	assert.Equal(t, store.Len(), attached)
	assert.True(t, store.HasVectors())
	assert.Equal(t, 3, store.Dim())
}

func TestAttachVectors_StaleChecksum(t *testing.T) {
	store := testStore(t)
	vs, err := store.BuildVectors(context.Background(), fakeEmbed, "test-model@3", nil)
	require.NoError(t, err)

	// The same document with one keyword edited invalidates exactly that
	// category's vector.
	edited, err := Parse(strings.NewReader(strings.Replace(testDocument, `"日傘"`, `"ビニール傘"`, 1)))
	require.NoError(t, err)

	attached, err := edited.AttachVectors(vs)
	require.NoError(t, err)
	assert.Equal(t, edited.Len()-1, attached)
	assert.False(t, edited.HasVectors(), "a store with any stale category has no usable vectors")
}

func TestVectorSet_SaveLoad(t *testing.T) {
	store := testStore(t)
	vs, err := store.BuildVectors(context.Background(), fakeEmbed, "test-model@3", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vectors", "categories.json")
	require.NoError(t, vs.Save(path))

	loaded, err := LoadVectors(path)
	require.NoError(t, err)
	assert.Equal(t, vs.ModelVersion, loaded.ModelVersion)
	assert.Equal(t, vs.Dimension, loaded.Dimension)
	assert.Equal(t, len(vs.Entries), len(loaded.Entries))

	attached, err := store.AttachVectors(loaded)
	require.NoError(t, err)
	assert.Equal(t, store.Len(), attached)
}

func TestLoadVectors_Missing(t *testing.T) {
	_, err := LoadVectors(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestBuildVectors_Progress(t *testing.T) {
	store := testStore(t)

	var calls []int
	_, err := store.BuildVectors(context.Background(), fakeEmbed, "m", func(done, total int) {
		assert.Equal(t, store.Len(), total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	assert.Len(t, calls, store.Len())
	assert.Equal(t, store.Len(), calls[len(calls)-1])
}
