package core

import (
	"context"
	"io"
	"time"
)

type (
	// Movie is the metadata of an uploaded catalog item. The binary itself
	// lives in a BlobStore, keyed by the movie ID.
	Movie struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		ContentType string    `json:"contentType"`
		Size        int64     `json:"size"`
		UploadedBy  string    `json:"-"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// MovieStore defines the persistence layer for movie metadata.
	MovieStore interface {
		CreateMovie(ctx context.Context, movie *Movie) error
		FindMovieByID(ctx context.Context, id string) (*Movie, error)
		ListMovies(ctx context.Context) ([]*Movie, error)
	}

	// BlobStore holds movie binaries. Get must return a reader that supports
	// seeking when the backend allows it, so the stream handler can serve
	// byte ranges.
	BlobStore interface {
		PutBlob(ctx context.Context, id string, r io.Reader, size int64, contentType string) error
		GetBlob(ctx context.Context, id string) (io.ReadSeekCloser, int64, error)
		DeleteBlob(ctx context.Context, id string) error
	}
)
