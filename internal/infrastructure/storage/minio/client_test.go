package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/IsomerScope/internal/config"
	pkgerrors "github.com/turtacn/IsomerScope/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, cfg *lifecycle.Configuration) error {
	return m.Called(ctx, bucketName, cfg).Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName, opts).Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = NewMinIOClientWithAPI(s.api, config.MinIOConfig{Bucket: "exports"}, nil)
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestDefaults() {
	c := NewMinIOClientWithAPI(s.api, config.MinIOConfig{}, nil)
	s.Equal(config.DefaultMinIOBucket, c.Bucket())
	s.Equal("us-east-1", c.region)
	s.Equal(time.Hour, c.presignExpiry)
	s.Same(s.api, c.API())
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "exports").Return(true, nil).Once()
	s.NoError(s.client.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "exports").Return(false, nil).Once()
	s.api.On("MakeBucket", mock.Anything, "exports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
	s.NoError(s.client.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_CreateFails() {
	s.api.On("BucketExists", mock.Anything, "exports").Return(false, nil).Once()
	s.api.On("MakeBucket", mock.Anything, "exports", mock.Anything).Return(errors.New("access denied")).Once()
	err := s.client.EnsureBucket(context.Background())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestEnsureBucket_Unreachable() {
	s.api.On("BucketExists", mock.Anything, "exports").Return(false, errors.New("dial tcp")).Once()
	err := s.client.EnsureBucket(context.Background())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestSetExpiry() {
	s.api.On("SetBucketLifecycle", mock.Anything, "exports", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 &&
			c.Rules[0].RuleFilter.Prefix == "exports/" &&
			c.Rules[0].Expiration.Days == 30
	})).Return(errors.New("not supported")).Once()

	s.NotPanics(func() {
		s.client.SetExpiry(context.Background(), ExpiryRule{Prefix: "exports/", Days: 30}, ExpiryRule{Prefix: "tmp/"})
	})
}

func (s *ClientTestSuite) TestSetExpiry_NoRules() {
	s.client.SetExpiry(context.Background(), ExpiryRule{Prefix: "exports/", Days: 0})
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestPing() {
	s.api.On("BucketExists", mock.Anything, "exports").Return(false, nil).Once()
	err := s.client.Ping(context.Background())
	s.ErrorIs(err, ErrBucketNotFound)

	s.api.On("BucketExists", mock.Anything, "exports").Return(true, nil).Once()
	s.NoError(s.client.Ping(context.Background()))
}

func (s *ClientTestSuite) TestPresign_DefaultExpiry() {
	u, _ := url.Parse("http://minio:9000/exports/exports/abc/report.json?X-Amz-Signature=x")
	s.api.On("PresignedGetObject", mock.Anything, "exports", "exports/abc/report.json", time.Hour, url.Values(nil)).Return(u, nil).Once()

	got, err := s.client.Presign(context.Background(), "exports/abc/report.json", 0)
	s.NoError(err)
	s.Equal(u.String(), got)
}

func (s *ClientTestSuite) TestPresign_Error() {
	s.api.On("PresignedGetObject", mock.Anything, "exports", "k", 5*time.Minute, url.Values(nil)).Return(nil, errors.New("bad creds")).Once()
	_, err := s.client.Presign(context.Background(), "k", 5*time.Minute)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

//Personal.AI order the ending
