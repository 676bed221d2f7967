package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"watchparty/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// NewStore creates an S3-backed blob store for movie binaries.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

func (s *s3Store) PutBlob(ctx context.Context, id string, r io.Reader, size int64, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(id),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %v", id, err)
	}
	return nil
}

type blobReader struct {
	*bytes.Reader
}

func (blobReader) Close() error { return nil }

// GetBlob buffers the object so the caller gets a seekable reader for range
// requests. Fine for the catalog sizes this serves; very large assets belong
// behind presigned URLs instead.
func (s *s3Store) GetBlob(ctx context.Context, id string) (io.ReadSeekCloser, int64, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, 0, core.ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to get blob %s: %v", id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read blob data: %v", err)
	}
	return blobReader{bytes.NewReader(data)}, int64(len(data)), nil
}

func (s *s3Store) DeleteBlob(ctx context.Context, id string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob %s: %v", id, err)
	}
	return nil
}
