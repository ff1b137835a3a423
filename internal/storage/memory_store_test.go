package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)
	ctx := t.Context()

	hash, err := store.Put(ctx, &Object{Type: ObjectTypeDataset, Data: []byte("id,anomalous,ts\n")})
	require.NoError(t, err)

	obj, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, ObjectTypeDataset, obj.Type)

	// Returned data is a copy.
	obj.Data[0] = 'X'
	again, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, byte('i'), again.Data[0])

	list, err := store.List(ctx, ObjectTypeSeries)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, store.AddRunRef(ctx, "r1", []string{hash}))
	refs, err := store.GetRunRef(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{hash}, refs)

	require.NoError(t, store.Delete(ctx, hash))
	_, err = store.Get(ctx, hash)
	assert.True(t, IsNotFound(err))
}
