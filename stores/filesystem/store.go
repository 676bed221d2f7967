package filesystem

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"watchparty/core"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a filesystem-backed blob store. Each movie binary is one
// file under basePath, named by the movie id.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) blobPath(id string) (string, error) {
	// Ids are ULIDs; anything that looks like a path is rejected to prevent
	// traversal.
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid blob id %q", id)
	}
	return filepath.Join(s.basePath, id), nil
}

func (s *fsStore) PutBlob(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	path, err := s.blobPath(id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{
		"blob_id":   id,
		"file_path": path,
	})

	f, err := os.Create(path)
	if err != nil {
		log.WithError(err).Error("Failed to create blob file")
		return err
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithError(err).Error("Failed to write blob file")
		os.Remove(path)
		return err
	}

	log.WithField("data_length", written).Info("Blob stored")
	return nil
}

func (s *fsStore) GetBlob(ctx context.Context, id string) (io.ReadSeekCloser, int64, error) {
	path, err := s.blobPath(id)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, core.ErrNotFound
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (s *fsStore) DeleteBlob(ctx context.Context, id string) error {
	path, err := s.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
