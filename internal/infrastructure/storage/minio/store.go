package minio

import (
	"bytes"
	"context"
	"net/http"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var ErrEmptyKey = errors.New(errors.ErrCodeValidation, "object key is empty")

// Object is one file of an export bundle.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// ReportStore writes export bundles into the configured bucket.
type ReportStore interface {
	Bucket() string
	Put(ctx context.Context, obj Object) error
	// Link returns a presigned GET URL valid for the configured expiry.
	Link(ctx context.Context, key string) (string, error)
	// RemovePrefix deletes every object under prefix and returns how many
	// were removed.
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

type bucketStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewReportStore(client *MinIOClient, log logging.Logger) ReportStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &bucketStore{client: client, logger: log}
}

func (s *bucketStore) Bucket() string { return s.client.Bucket() }

func (s *bucketStore) Put(ctx context.Context, obj Object) error {
	if obj.Key == "" {
		return ErrEmptyKey
	}
	ct := obj.ContentType
	if ct == "" {
		ct = http.DetectContentType(obj.Data)
	}
	info, err := s.client.API().PutObject(ctx, s.Bucket(), obj.Key, bytes.NewReader(obj.Data), int64(len(obj.Data)),
		minio.PutObjectOptions{ContentType: ct, UserMetadata: obj.Metadata})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "put object").WithDetail(obj.Key)
	}
	s.logger.Debug("object stored", logging.String("key", obj.Key), logging.String("type", ct), logging.Int64("size", info.Size))
	return nil
}

func (s *bucketStore) Link(ctx context.Context, key string) (string, error) {
	return s.client.Presign(ctx, key, 0)
}

func (s *bucketStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, ErrEmptyKey
	}
	api := s.client.API()
	removed := 0
	for obj := range api.ListObjects(ctx, s.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list objects").WithDetail(prefix)
		}
		if err := api.RemoveObject(ctx, s.Bucket(), obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeStorageError, "remove object").WithDetail(obj.Key)
		}
		removed++
	}
	return removed, nil
}

//Personal.AI order the ending
