package core

import (
	"context"
	"time"
)

type (
	// Room binds a catalog movie to a set of connected participants. It is
	// addressable three ways: by its internal ID (legacy links, must
	// redirect), by the short human-typed RoomCode, and by the long
	// InviteToken which is the canonical shareable address.
	Room struct {
		ID          string    `json:"id"`
		RoomCode    string    `json:"roomCode"`
		InviteToken string    `json:"inviteToken"`
		MovieID     string    `json:"movieId"`
		CreatedBy   string    `json:"-"`
		CreatedAt   time.Time `json:"createdAt"`
		ExpiresAt   time.Time `json:"expiresAt"`
	}

	// RoomStore defines the persistence layer for rooms. Lookups by code and
	// token must resolve to exactly one room.
	RoomStore interface {
		CreateRoom(ctx context.Context, room *Room) error
		FindRoomByID(ctx context.Context, id string) (*Room, error)
		FindRoomByToken(ctx context.Context, token string) (*Room, error)
		FindRoomByCode(ctx context.Context, code string) (*Room, error)
		DeleteRoomsExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
	}
)

// Expired reports whether the room's TTL has elapsed at the given instant.
func (r *Room) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
