package filesystem

import (
	"context"
	"io"
	"strings"
	"testing"

	"watchparty/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	data := "fake movie bytes"
	require.NoError(t, store.PutBlob(ctx, "mov1", strings.NewReader(data), int64(len(data)), "video/mp4"))

	blob, size, err := store.GetBlob(ctx, "mov1")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), size)

	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, data, string(got))

	// The reader must seek for byte-range streaming.
	_, err = blob.Seek(5, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, data[5:], string(rest))
}

func TestGetMissingBlob(t *testing.T) {
	store := NewStore(t.TempDir())
	_, _, err := store.GetBlob(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteBlob(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.PutBlob(ctx, "mov1", strings.NewReader("x"), 1, "video/mp4"))
	require.NoError(t, store.DeleteBlob(ctx, "mov1"))
	_, _, err := store.GetBlob(ctx, "mov1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.NoError(t, store.DeleteBlob(ctx, "mov1"), "deleting a missing blob is a no-op")
}

func TestPathTraversalIsRejected(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", "./x"} {
		err := store.PutBlob(ctx, id, strings.NewReader("x"), 1, "video/mp4")
		assert.Error(t, err, "%q", id)
	}
}
