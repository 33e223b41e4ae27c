package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/IsomerScope/internal/config"
	pkgerrors "github.com/turtacn/IsomerScope/pkg/errors"
)

type StoreTestSuite struct {
	suite.Suite
	api   *MockMinIOAPI
	store ReportStore
}

func (s *StoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.store = NewReportStore(NewMinIOClientWithAPI(s.api, config.MinIOConfig{Bucket: "exports"}, nil), nil)
}

func (s *StoreTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func objectList(infos ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, i := range infos {
		ch <- i
	}
	close(ch)
	return ch
}

func (s *StoreTestSuite) TestPut_DetectsContentType() {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	s.api.On("PutObject", mock.Anything, "exports", "exports/id/isomer-1.png", mock.Anything, int64(len(png)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "image/png" })).
		Return(minio.UploadInfo{Size: int64(len(png))}, nil).Once()

	s.NoError(s.store.Put(context.Background(), Object{Key: "exports/id/isomer-1.png", Data: png}))
}

func (s *StoreTestSuite) TestPut_KeepsMetadata() {
	s.api.On("PutObject", mock.Anything, "exports", "r.json", mock.Anything, int64(2),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/json" && o.UserMetadata["analysis-id"] == "a1"
		})).
		Return(minio.UploadInfo{Size: 2}, nil).Once()

	s.NoError(s.store.Put(context.Background(), Object{
		Key: "r.json", Data: []byte("{}"), ContentType: "application/json", Metadata: map[string]string{"analysis-id": "a1"},
	}))
}

func (s *StoreTestSuite) TestPut_Errors() {
	s.ErrorIs(s.store.Put(context.Background(), Object{Data: []byte("x")}), ErrEmptyKey)

	s.api.On("PutObject", mock.Anything, "exports", "k", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("503")).Once()
	err := s.store.Put(context.Background(), Object{Key: "k", Data: []byte("x")})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *StoreTestSuite) TestRemovePrefix() {
	s.api.On("ListObjects", mock.Anything, "exports", minio.ListObjectsOptions{Prefix: "exports/a/", Recursive: true}).
		Return(objectList(minio.ObjectInfo{Key: "exports/a/report.json"}, minio.ObjectInfo{Key: "exports/a/isomer-1.png"})).Once()
	s.api.On("RemoveObject", mock.Anything, "exports", "exports/a/report.json", minio.RemoveObjectOptions{}).Return(nil).Once()
	s.api.On("RemoveObject", mock.Anything, "exports", "exports/a/isomer-1.png", minio.RemoveObjectOptions{}).Return(nil).Once()

	n, err := s.store.RemovePrefix(context.Background(), "exports/a/")
	s.NoError(err)
	s.Equal(2, n)
}

func (s *StoreTestSuite) TestRemovePrefix_Errors() {
	_, err := s.store.RemovePrefix(context.Background(), "")
	s.ErrorIs(err, ErrEmptyKey)

	s.api.On("ListObjects", mock.Anything, "exports", mock.Anything).
		Return(objectList(minio.ObjectInfo{Err: errors.New("denied")})).Once()
	n, err := s.store.RemovePrefix(context.Background(), "exports/b/")
	s.Zero(n)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *StoreTestSuite) TestBucket() {
	s.Equal("exports", s.store.Bucket())
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

//Personal.AI order the ending
