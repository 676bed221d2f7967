package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"watchparty/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqliteStore {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "watchparty.db"))
}

func TestRoomRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	room := &core.Room{
		ID:          "01ROOM",
		RoomCode:    "abc123",
		InviteToken: "tok-abc123",
		MovieID:     "mov1",
		CreatedBy:   "user1",
		CreatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateRoom(ctx, room))

	byID, err := store.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.RoomCode, byID.RoomCode)
	assert.Equal(t, room.MovieID, byID.MovieID)

	byToken, err := store.FindRoomByToken(ctx, room.InviteToken)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byToken.ID)

	byCode, err := store.FindRoomByCode(ctx, room.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byCode.ID)
}

func TestRoomLookupsReturnNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindRoomByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.FindRoomByToken(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.FindRoomByCode(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRoomCodeAndTokenAreUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	first := &core.Room{ID: "r1", RoomCode: "same00", InviteToken: "tok1", MovieID: "m", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.CreateRoom(ctx, first))

	dupCode := &core.Room{ID: "r2", RoomCode: "same00", InviteToken: "tok2", MovieID: "m", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	assert.Error(t, store.CreateRoom(ctx, dupCode))

	dupToken := &core.Room{ID: "r3", RoomCode: "other0", InviteToken: "tok1", MovieID: "m", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	assert.Error(t, store.CreateRoom(ctx, dupToken))
}

func TestDeleteRoomsExpiredBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	expired := &core.Room{ID: "r1", RoomCode: "old000", InviteToken: "tok1", MovieID: "m", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	alive := &core.Room{ID: "r2", RoomCode: "new000", InviteToken: "tok2", MovieID: "m", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.CreateRoom(ctx, expired))
	require.NoError(t, store.CreateRoom(ctx, alive))

	n, err := store.DeleteRoomsExpiredBefore(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.FindRoomByID(ctx, "r1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.FindRoomByID(ctx, "r2")
	assert.NoError(t, err)
}

func TestMovieRoundTripAndListOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &core.Movie{ID: "m1", Title: "First", ContentType: "video/mp4", Size: 10, UploadedBy: "u1", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &core.Movie{ID: "m2", Title: "Second", ContentType: "video/webm", Size: 20, UploadedBy: "u1", CreatedAt: time.Now()}
	require.NoError(t, store.CreateMovie(ctx, older))
	require.NoError(t, store.CreateMovie(ctx, newer))

	got, err := store.FindMovieByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.Equal(t, int64(10), got.Size)

	_, err = store.FindMovieByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	movies, err := store.ListMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "m2", movies[0].ID, "newest first")
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &core.User{ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: "hash", IsAdmin: true, CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, user))

	byEmail, err := store.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.True(t, byEmail.IsAdmin)

	byID, err := store.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = store.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)

	dup := &core.User{ID: "u2", Name: "Alice2", Email: "alice@example.com", PasswordHash: "hash"}
	assert.Error(t, store.CreateUser(ctx, dup), "email is unique")
}
