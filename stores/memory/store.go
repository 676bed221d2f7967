package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"watchparty/core"

	"github.com/sirupsen/logrus"
)

// memStore implements RoomStore, MovieStore and UserStore in memory. The
// default backend; everything is lost on restart.
type memStore struct {
	mu     sync.RWMutex
	rooms  map[string]*core.Room
	movies map[string]*core.Movie
	users  map[string]*core.User
}

// NewStore creates a new in-memory metadata store.
func NewStore() *memStore {
	return &memStore{
		rooms:  make(map[string]*core.Room),
		movies: make(map[string]*core.Movie),
		users:  make(map[string]*core.User),
	}
}

// RoomStore implementation

func (s *memStore) CreateRoom(ctx context.Context, room *core.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ID] = &cp
	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"room_code": room.RoomCode,
	}).Debug("Room stored")
	return nil
}

func (s *memStore) FindRoomByID(ctx context.Context, id string) (*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if room, ok := s.rooms[id]; ok {
		cp := *room
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (s *memStore) FindRoomByToken(ctx context.Context, token string) (*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.InviteToken == token {
			cp := *room
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) FindRoomByCode(ctx context.Context, code string) (*core.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.RoomCode == code {
			cp := *room
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) DeleteRoomsExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, room := range s.rooms {
		if room.Expired(cutoff) {
			delete(s.rooms, id)
			n++
		}
	}
	return n, nil
}

// MovieStore implementation

func (s *memStore) CreateMovie(ctx context.Context, movie *core.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *movie
	s.movies[movie.ID] = &cp
	logrus.WithFields(logrus.Fields{
		"movie_id": movie.ID,
		"title":    movie.Title,
	}).Debug("Movie stored")
	return nil
}

func (s *memStore) FindMovieByID(ctx context.Context, id string) (*core.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if movie, ok := s.movies[id]; ok {
		cp := *movie
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (s *memStore) ListMovies(ctx context.Context) ([]*core.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies := make([]*core.Movie, 0, len(s.movies))
	for _, movie := range s.movies {
		cp := *movie
		movies = append(movies, &cp)
	}
	return movies, nil
}

// UserStore implementation

func (s *memStore) CreateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return core.ErrUnauthorized
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) FindUserByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

// blobStore keeps movie binaries in memory.
type blobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *blobStore {
	return &blobStore{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
}

func (s *blobStore) PutBlob(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[id] = data
	s.types[id] = contentType
	logrus.WithFields(logrus.Fields{
		"blob_id":     id,
		"data_length": len(data),
	}).Debug("Blob stored")
	return nil
}

type blobReader struct {
	*bytes.Reader
}

func (blobReader) Close() error { return nil }

func (s *blobStore) GetBlob(ctx context.Context, id string) (io.ReadSeekCloser, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[id]
	if !ok {
		return nil, 0, core.ErrNotFound
	}
	return blobReader{bytes.NewReader(data)}, int64(len(data)), nil
}

func (s *blobStore) DeleteBlob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	delete(s.types, id)
	return nil
}
