package core

import (
	"context"
	"time"
)

type (
	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		IsAdmin      bool      `json:"isAdmin"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	UserStore interface {
		CreateUser(ctx context.Context, user *User) error
		FindUserByEmail(ctx context.Context, email string) (*User, error)
		FindUserByID(ctx context.Context, id string) (*User, error)
	}
)
