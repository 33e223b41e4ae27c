package minio

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var ErrBucketNotFound = errors.New(errors.ErrCodeNotFound, "bucket not found")

// MinIOAPI is the part of *minio.Client in use.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// ExpiryRule deletes objects under Prefix Days after upload.
type ExpiryRule struct {
	Prefix string
	Days   int
}

// MinIOClient is bound to one bucket.
type MinIOClient struct {
	api           MinIOAPI
	bucket        string
	region        string
	presignExpiry time.Duration
	logger        logging.Logger
}

// NewMinIOClient dials the endpoint, creates the bucket when missing and
// installs rules as its lifecycle. Rules with no days are skipped.
func NewMinIOClient(cfg config.MinIOConfig, log logging.Logger, rules ...ExpiryRule) (*MinIOClient, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "minio client").WithDetail(cfg.Endpoint)
	}
	c := NewMinIOClientWithAPI(api, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.SetExpiry(ctx, rules...)

	c.logger.Info("minio connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", c.bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewMinIOClientWithAPI does no I/O.
func NewMinIOClientWithAPI(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *MinIOClient {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &MinIOClient{
		api:           api,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		presignExpiry: cfg.PresignExpiry,
		logger:        log,
	}
	if c.bucket == "" {
		c.bucket = config.DefaultMinIOBucket
	}
	if c.region == "" {
		c.region = "us-east-1"
	}
	if c.presignExpiry <= 0 {
		c.presignExpiry = time.Hour
	}
	return c
}

func (c *MinIOClient) API() MinIOAPI  { return c.api }
func (c *MinIOClient) Bucket() string { return c.bucket }

func (c *MinIOClient) EnsureBucket(ctx context.Context) error {
	err := c.Ping(ctx)
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		return err
	}
	if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create bucket").WithDetail(c.bucket)
	}
	c.logger.Info("bucket created", logging.String("bucket", c.bucket))
	return nil
}

// SetExpiry replaces the bucket lifecycle with rules. Stores that reject
// lifecycle configuration only get a warning.
func (c *MinIOClient) SetExpiry(ctx context.Context, rules ...ExpiryRule) {
	lc := lifecycle.NewConfiguration()
	for _, r := range rules {
		if r.Days <= 0 {
			continue
		}
		lc.Rules = append(lc.Rules, lifecycle.Rule{
			ID:         "expire-" + strconv.Itoa(len(lc.Rules)),
			Status:     "Enabled",
			RuleFilter: lifecycle.Filter{Prefix: r.Prefix},
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(r.Days)},
		})
	}
	if len(lc.Rules) == 0 {
		return
	}
	if err := c.api.SetBucketLifecycle(ctx, c.bucket, lc); err != nil {
		c.logger.Warn("bucket lifecycle not applied", logging.String("bucket", c.bucket), logging.Err(err))
	}
}

// Ping fails with ErrBucketNotFound when the endpoint answers but the
// bucket is gone.
func (c *MinIOClient) Ping(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	if !ok {
		return ErrBucketNotFound.WithDetail(c.bucket)
	}
	return nil
}

// Presign returns a GET URL for key. Zero expiry means the configured one.
func (c *MinIOClient) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = c.presignExpiry
	}
	u, err := c.api.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign").WithDetail(key)
	}
	return u.String(), nil
}

//Personal.AI order the ending
