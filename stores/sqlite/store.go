package sqlite

import (
	"context"
	"database/sql"
	"log"
	"time"

	"watchparty/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based metadata store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	roomTableStmt := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		room_code TEXT NOT NULL UNIQUE,
		invite_token TEXT NOT NULL UNIQUE,
		movie_id TEXT NOT NULL,
		created_by TEXT,
		created_at DATETIME,
		expires_at DATETIME
	);`
	if _, err = db.Exec(roomTableStmt); err != nil {
		log.Fatalf("failed to create rooms table: %v", err)
	}

	movieTableStmt := `
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content_type TEXT,
		size INTEGER,
		uploaded_by TEXT,
		created_at DATETIME
	);`
	if _, err = db.Exec(movieTableStmt); err != nil {
		log.Fatalf("failed to create movies table: %v", err)
	}

	userTableStmt := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	);`
	if _, err = db.Exec(userTableStmt); err != nil {
		log.Fatalf("failed to create users table: %v", err)
	}

	return &sqliteStore{db}
}

// RoomStore implementation

func (s *sqliteStore) CreateRoom(ctx context.Context, room *core.Room) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rooms (id, room_code, invite_token, movie_id, created_by, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		room.ID, room.RoomCode, room.InviteToken, room.MovieID, room.CreatedBy, room.CreatedAt, room.ExpiresAt)
	if err != nil {
		logrus.WithError(err).WithField("room_id", room.ID).Error("Failed to create room")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"room_code": room.RoomCode,
	}).Info("Room created")
	return nil
}

func (s *sqliteStore) findRoom(ctx context.Context, where, arg string) (*core.Room, error) {
	var room core.Room
	err := s.db.QueryRowContext(ctx,
		"SELECT id, room_code, invite_token, movie_id, created_by, created_at, expires_at FROM rooms WHERE "+where+" = ?", arg).
		Scan(&room.ID, &room.RoomCode, &room.InviteToken, &room.MovieID, &room.CreatedBy, &room.CreatedAt, &room.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (s *sqliteStore) FindRoomByID(ctx context.Context, id string) (*core.Room, error) {
	return s.findRoom(ctx, "id", id)
}

func (s *sqliteStore) FindRoomByToken(ctx context.Context, token string) (*core.Room, error) {
	return s.findRoom(ctx, "invite_token", token)
}

func (s *sqliteStore) FindRoomByCode(ctx context.Context, code string) (*core.Room, error) {
	return s.findRoom(ctx, "room_code", code)
}

func (s *sqliteStore) DeleteRoomsExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MovieStore implementation

func (s *sqliteStore) CreateMovie(ctx context.Context, movie *core.Movie) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO movies (id, title, content_type, size, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		movie.ID, movie.Title, movie.ContentType, movie.Size, movie.UploadedBy, movie.CreatedAt)
	if err != nil {
		logrus.WithError(err).WithField("movie_id", movie.ID).Error("Failed to create movie")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"movie_id": movie.ID,
		"title":    movie.Title,
	}).Info("Movie created")
	return nil
}

func (s *sqliteStore) FindMovieByID(ctx context.Context, id string) (*core.Movie, error) {
	var movie core.Movie
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, content_type, size, uploaded_by, created_at FROM movies WHERE id = ?", id).
		Scan(&movie.ID, &movie.Title, &movie.ContentType, &movie.Size, &movie.UploadedBy, &movie.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &movie, nil
}

func (s *sqliteStore) ListMovies(ctx context.Context) ([]*core.Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, content_type, size, created_at FROM movies ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*core.Movie
	for rows.Next() {
		var movie core.Movie
		if err := rows.Scan(&movie.ID, &movie.Title, &movie.ContentType, &movie.Size, &movie.CreatedAt); err != nil {
			return nil, err
		}
		movies = append(movies, &movie)
	}
	return movies, rows.Err()
}

// UserStore implementation

func (s *sqliteStore) CreateUser(ctx context.Context, user *core.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt)
	return err
}

func (s *sqliteStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var user core.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *sqliteStore) FindUserByID(ctx context.Context, id string) (*core.User, error) {
	var user core.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
