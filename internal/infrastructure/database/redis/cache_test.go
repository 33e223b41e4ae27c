package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/IsomerScope/pkg/errors"
)

type compound struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
}

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *Cache[compound]
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewCache[compound](NewClientFromUniversal(db, logging.NewNopLogger()), WithPrefix("test:"), WithJitter(0))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheTestSuite) TestGet_Hit() {
	raw, _ := json.Marshal(compound{Name: "ethanol", SMILES: "CCO"})
	s.mock.ExpectGet("test:ethanol").SetVal(string(raw))

	got, err := s.cache.Get(context.Background(), "ethanol")
	s.Require().NoError(err)
	s.Equal("CCO", got.SMILES)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:none").RedisNil()

	_, err := s.cache.Get(context.Background(), "none")
	s.ErrorIs(err, ErrCacheMiss)
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k").SetErr(errors.New("connection reset"))

	_, err := s.cache.Get(context.Background(), "k")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:k").SetVal("{not json")

	_, err := s.cache.Get(context.Background(), "k")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestSet_DefaultTTL() {
	raw, _ := json.Marshal(compound{Name: "benzene", SMILES: "c1ccccc1"})
	s.mock.ExpectSet("test:benzene", raw, DefaultCacheTTL).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "benzene", compound{Name: "benzene", SMILES: "c1ccccc1"}, 0))
}

func (s *CacheTestSuite) TestSet_BackendError() {
	raw, _ := json.Marshal(compound{})
	s.mock.ExpectSet("test:k", raw, time.Minute).SetErr(errors.New("OOM"))

	err := s.cache.Set(context.Background(), "k", compound{}, time.Minute)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)

	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCache_JitteredTTL(t *testing.T) {
	t.Parallel()
	mr, client := newMiniredisClient(t)
	c := NewCache[compound](client, WithTTL(time.Hour), WithJitter(0.2))

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Set(context.Background(), "k", compound{Name: "x"}, 0))
		ttl := mr.TTL(DefaultKeyPrefix + "k")
		assert.GreaterOrEqual(t, ttl, 48*time.Minute)
		assert.LessOrEqual(t, ttl, 72*time.Minute)
	}
}

func TestCache_RoundTripAgainstServer(t *testing.T) {
	t.Parallel()
	mr, client := newMiniredisClient(t)
	c := NewCache[compound](client, WithPrefix("iso:"))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ethanol", compound{Name: "ethanol", SMILES: "CCO"}, time.Minute))
	assert.True(t, mr.Exists("iso:ethanol"))

	got, err := c.Get(ctx, "ethanol")
	require.NoError(t, err)
	assert.Equal(t, compound{Name: "ethanol", SMILES: "CCO"}, got)

	require.NoError(t, c.Delete(ctx, "ethanol"))
	_, err = c.Get(ctx, "ethanol")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheOptions_IgnoreInvalid(t *testing.T) {
	t.Parallel()
	c := NewCache[compound](nil, WithTTL(-1), WithJitter(1.5))
	assert.Equal(t, DefaultCacheTTL, c.ttl)
	assert.Equal(t, DefaultJitter, c.jitter)
	assert.Equal(t, DefaultKeyPrefix, c.prefix)
}

//Personal.AI order the ending
