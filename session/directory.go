package session

import (
	"context"
	"fmt"
	"time"

	"watchparty/core"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength    = 6
	tokenLength   = 32
	codeAttempts  = 5
	DefaultTTL    = 24 * time.Hour
	SweepInterval = 10 * time.Minute
)

// Directory resolves human room codes and invite tokens to rooms and creates
// rooms bound to a catalog movie. The invite token is the only address meant
// to be durable and shareable; the room id is a legacy alias that handlers
// redirect to the token address.
type Directory struct {
	rooms  core.RoomStore
	movies core.MovieStore
	ttl    time.Duration
}

func NewDirectory(rooms core.RoomStore, movies core.MovieStore, ttl time.Duration) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Directory{rooms: rooms, movies: movies, ttl: ttl}
}

// CreateRoom creates a room for a catalog movie. Requester must be an
// authenticated user; the movie must exist. The short code is collision
// checked against currently live rooms, the invite token is long enough to
// be unguessable.
func (d *Directory) CreateRoom(ctx context.Context, movieID string, requester *core.User) (*core.Room, error) {
	if requester == nil {
		return nil, core.ErrUnauthorized
	}
	if _, err := d.movies.FindMovieByID(ctx, movieID); err != nil {
		return nil, core.ErrNotFound
	}

	code, err := d.generateCode(ctx)
	if err != nil {
		return nil, err
	}
	token, err := gonanoid.New(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}

	now := time.Now()
	room := &core.Room{
		ID:          ulid.Make().String(),
		RoomCode:    code,
		InviteToken: token,
		MovieID:     movieID,
		CreatedBy:   requester.ID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(d.ttl),
	}
	if err := d.rooms.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"room_code": room.RoomCode,
		"movie_id":  movieID,
		"user_id":   requester.ID,
	}).Info("Room created")
	return room, nil
}

// ResolveByToken resolves the canonical shareable address.
func (d *Directory) ResolveByToken(ctx context.Context, token string) (*core.Room, error) {
	room, err := d.rooms.FindRoomByToken(ctx, token)
	if err != nil {
		return nil, core.ErrInvalidToken
	}
	if room.Expired(time.Now()) {
		return nil, core.ErrInvalidToken
	}
	return room, nil
}

// ResolveByID resolves the legacy internal address. Handlers use it only to
// redirect to the token address, never to serve the room directly.
func (d *Directory) ResolveByID(ctx context.Context, id string) (*core.Room, error) {
	room, err := d.rooms.FindRoomByID(ctx, id)
	if err != nil {
		return nil, core.ErrNotFound
	}
	if room.Expired(time.Now()) {
		return nil, core.ErrNotFound
	}
	return room, nil
}

// ResolveByCode resolves the short human-typed alias.
func (d *Directory) ResolveByCode(ctx context.Context, code string) (*core.Room, error) {
	room, err := d.rooms.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, core.ErrNotFound
	}
	if room.Expired(time.Now()) {
		return nil, core.ErrNotFound
	}
	return room, nil
}

// generateCode draws short codes until one does not collide with a live
// room.
func (d *Directory) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := gonanoid.Generate(codeAlphabet, codeLength)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, err := d.rooms.FindRoomByCode(ctx, code); err != nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not find a free room code after %d attempts", codeAttempts)
}

// Sweep evicts rooms whose TTL has elapsed and returns how many were
// removed.
func (d *Directory) Sweep(ctx context.Context) (int, error) {
	n, err := d.rooms.DeleteRoomsExpiredBefore(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logrus.WithField("rooms", n).Info("Swept expired rooms")
	}
	return n, nil
}

// RunSweeper periodically sweeps expired rooms until the context is done.
func (d *Directory) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(ctx); err != nil {
				logrus.WithError(err).Error("Failed to sweep expired rooms")
			}
		}
	}
}
