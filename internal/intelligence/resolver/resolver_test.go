package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/database/redis"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

const allene = "1,3-Dimethyl-3-phenylallene"

type mockSource struct {
	mock.Mock
	name string
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Lookup(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP clients
// ─────────────────────────────────────────────────────────────────────────────

func opsinServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/opsin/"+allene+".json", r.URL.Path)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOPSINClient_Lookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		errCode errors.ErrorCode
	}{
		{"success", 200, `{"status":"SUCCESS","smiles":"CC=C=C(C)c1ccccc1"}`, "CC=C=C(C)c1ccccc1", ""},
		{"not found", 404, `{"status":"FAILURE","message":"unparsable"}`, "", errors.ErrCodeDataSourceUnavailable},
		{"empty smiles", 200, `{"status":"FAILURE","message":"no structure"}`, "", errors.ErrCodeDataSourceParseError},
		{"bad json", 200, `<html>`, "", errors.ErrCodeDataSourceParseError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv, _ := opsinServer(t, tt.status, tt.body)
			c := NewOPSINClient(srv.URL+"/opsin/", 5*time.Second)

			got, err := c.Lookup(context.Background(), allene)
			if tt.errCode != "" {
				assert.True(t, errors.IsCode(err, tt.errCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOPSINClient_Timeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := NewOPSINClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := c.Lookup(context.Background(), "ethanol")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceUnavailable))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPubChemClient_Lookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		errCode errors.ErrorCode
	}{
		{"isomeric field", 200, `{"PropertyTable":{"Properties":[{"CID":1,"IsomericSMILES":"C[C@@H](N)C(=O)O"},{"CID":2,"IsomericSMILES":"X"}]}}`, "C[C@@H](N)C(=O)O", ""},
		{"renamed field", 200, `{"PropertyTable":{"Properties":[{"CID":1,"SMILES":"CCO"}]}}`, "CCO", ""},
		{"no records", 200, `{"PropertyTable":{"Properties":[]}}`, "", errors.ErrCodeDataSourceParseError},
		{"no smiles", 200, `{"PropertyTable":{"Properties":[{"CID":7}]}}`, "", errors.ErrCodeDataSourceParseError},
		{"fault", 404, `{"Fault":{"Code":"PUGREST.NotFound"}}`, "", errors.ErrCodeDataSourceUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rest/pug/compound/name/alanine/property/IsomericSMILES,SMILES/JSON", r.URL.Path)
				assert.Equal(t, "isoscope-test", r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(srv.Close)

			c := NewPubChemClient(srv.URL, 0, WithUserAgent("isoscope-test"), WithHTTPClient(srv.Client()))

			got, err := c.Lookup(context.Background(), "alanine")
			if tt.errCode != "" {
				assert.True(t, errors.IsCode(err, tt.errCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPubChemClient_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()
	c := NewPubChemClient("http://127.0.0.1:1", 1)
	require.NoError(t, c.pacer.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Lookup(ctx, "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDataSourceRateLimited))
}

func TestPacer_SpacesCalls(t *testing.T) {
	t.Parallel()
	p := newPacer(50)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPacer_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	p := newPacer(1)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolver policy
// ─────────────────────────────────────────────────────────────────────────────

func TestResolver_FallbackPolicy(t *testing.T) {
	t.Parallel()
	boom := errors.New(errors.ErrCodeDataSourceUnavailable, "down")
	tests := []struct {
		name       string
		opsin      []interface{}
		pubchem    []interface{}
		wantSource string
		wantSMILES string
		notFound   bool
	}{
		{"opsin wins", []interface{}{"CCO", nil}, nil, SourceOPSIN, "CCO", false},
		{"opsin fails", []interface{}{"", boom}, []interface{}{"CCN", nil}, SourcePubChem, "CCN", false},
		{"both fail", []interface{}{"", boom}, []interface{}{"", boom}, "", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			op := &mockSource{name: SourceOPSIN}
			pc := &mockSource{name: SourcePubChem}
			op.On("Lookup", mock.Anything, "ethanol").Return(tt.opsin...).Once()
			if tt.pubchem != nil {
				pc.On("Lookup", mock.Anything, "ethanol").Return(tt.pubchem...).Once()
			}

			r := NewResolver([]Source{op, pc}, nil, nil, nil)
			res, err := r.Resolve(context.Background(), "  ethanol ")
			if tt.notFound {
				assert.Nil(t, res)
				assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeNotFound))
				assert.Equal(t, NotFoundMessage, errors.Message(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantSource, res.Source)
				assert.Equal(t, tt.wantSMILES, res.SMILES)
				assert.Equal(t, "ethanol", res.Name)
			}
			op.AssertExpectations(t)
			pc.AssertExpectations(t)
			if tt.pubchem == nil {
				pc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestResolver_EndToEndOverHTTP(t *testing.T) {
	t.Parallel()
	opsin, opsinHits := opsinServer(t, http.StatusInternalServerError, "oops")
	var pubchemHits int32
	pubchem := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pubchemHits, 1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/rest/pug/compound/name/"+allene))
		fmt.Fprint(w, `{"PropertyTable":{"Properties":[{"CID":5,"IsomericSMILES":"CC=C=C(C)C1=CC=CC=C1"}]}}`)
	}))
	t.Cleanup(pubchem.Close)

	cfg := config.ResolverConfig{
		OPSINBaseURL:     opsin.URL + "/opsin",
		OPSINTimeout:     time.Second,
		PubChemBaseURL:   pubchem.URL,
		PubChemRateLimit: 5,
	}
	r := NewFromConfig(cfg, nil, nil, nil)
	res, err := r.Resolve(context.Background(), allene)
	require.NoError(t, err)
	assert.Equal(t, SourcePubChem, res.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(opsinHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&pubchemHits))
}

func TestResolver_EmptyName(t *testing.T) {
	t.Parallel()
	_, err := NewResolver(nil, nil, nil, nil).Resolve(context.Background(), " \t ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestResolver_CachesOnlySuccess(t *testing.T) {
	t.Parallel()
	src := &mockSource{name: SourceOPSIN}
	src.On("Lookup", mock.Anything, "ethanol").Return("CCO", nil).Once()
	src.On("Lookup", mock.Anything, "unobtainium").Return("", errors.New(errors.ErrCodeDataSourceUnavailable, "no")).Twice()

	cache := NewMemoryCache(time.Minute, time.Minute)
	r := NewResolver([]Source{src}, cache, nil, nil)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "ethanol")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	second, err := r.Resolve(ctx, "ｅｔｈａｎｏｌ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "CCO", second.SMILES)

	for i := 0; i < 2; i++ {
		_, err = r.Resolve(ctx, "unobtainium")
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeNotFound))
	}
	assert.Equal(t, 1, cache.Len())
	src.AssertExpectations(t)
}

func TestResolver_CollapsesConcurrentLookups(t *testing.T) {
	t.Parallel()
	var calls int32
	release := make(chan struct{})
	src := &funcSource{fn: func(ctx context.Context, name string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "c1ccccc1", nil
	}}
	r := NewResolver([]Source{src}, nil, nil, nil)

	var wg sync.WaitGroup
	results := make([]*Resolution, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), "benzene")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		assert.Equal(t, "c1ccccc1", res.SMILES)
	}
	results[0].SMILES = "mutated"
	assert.Equal(t, "c1ccccc1", results[1].SMILES)
}

func TestResolver_CallerLeavingDoesNotFailOthers(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	src := &funcSource{fn: func(ctx context.Context, name string) (string, error) {
		close(started)
		select {
		case <-release:
			return "CCO", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	r := NewResolver([]Source{src}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "ethanol")
		first <- err
	}()
	<-started

	second := make(chan *Resolution, 1)
	go func() {
		res, err := r.Resolve(context.Background(), "ethanol")
		assert.NoError(t, err)
		second <- res
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	err := <-first
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))

	close(release)
	select {
	case res := <-second:
		require.NotNil(t, res)
		assert.Equal(t, "CCO", res.SMILES)
	case <-time.After(time.Second):
		t.Fatal("waiting caller never got the shared result")
	}
}

type funcSource struct {
	fn func(ctx context.Context, name string) (string, error)
}

func (f *funcSource) Name() string { return "func" }
func (f *funcSource) Lookup(ctx context.Context, name string) (string, error) {
	return f.fn(ctx, name)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"  ethanol  ", "ethanol"},
		{"1,3-Dimethyl-3-phenylallene", "1,3-Dimethyl-3-phenylallene"},
		{"acetic\t\tacid", "acetic acid"},
		{"ｅｔｈａｎｏｌ", "ethanol"},
		{"D-alanine", "D-alanine"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Caches
// ─────────────────────────────────────────────────────────────────────────────

func TestMemoryCache_StoresCopy(t *testing.T) {
	t.Parallel()
	c := NewMemoryCache(time.Minute, time.Minute)
	res := &Resolution{Name: "ethanol", SMILES: "CCO", Source: SourceOPSIN}
	c.Set(context.Background(), "ethanol", res)
	res.SMILES = "changed"

	got, ok := c.Get(context.Background(), "ethanol")
	require.True(t, ok)
	assert.Equal(t, "CCO", got.SMILES)
	assert.Equal(t, "memory", c.Kind())
}

func TestRedisCache_RoundTrip(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, "isoscope:resolve:", time.Hour, nil)
	ctx := context.Background()

	_, ok := c.Get(ctx, "ethanol")
	assert.False(t, ok)

	c.Set(ctx, "ethanol", &Resolution{Name: "ethanol", SMILES: "CCO", Source: SourcePubChem})
	assert.True(t, mr.Exists("isoscope:resolve:ethanol"))

	got, ok := c.Get(ctx, "ethanol")
	require.True(t, ok)
	assert.Equal(t, "CCO", got.SMILES)
	assert.Equal(t, SourcePubChem, got.Source)
	assert.Equal(t, "redis", c.Kind())
}

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewCacheFromConfig(config.CacheConfig{Backend: "none"}, nil, nil))
	assert.Nil(t, NewCacheFromConfig(config.CacheConfig{Backend: "redis"}, nil, nil))
	assert.IsType(t, &MemoryCache{}, NewCacheFromConfig(config.CacheConfig{Backend: "memory", TTL: time.Minute}, nil, nil))
}

func TestNewCacheFromConfig_RedisKeyPrefix(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewCacheFromConfig(config.CacheConfig{Backend: "redis", TTL: time.Hour, KeyPrefix: "app:names:"}, client, nil)
	require.IsType(t, &RedisCache{}, c)
	c.Set(context.Background(), "benzene", &Resolution{Name: "benzene", SMILES: "c1ccccc1", Source: SourceOPSIN})
	assert.True(t, mr.Exists("app:names:benzene"))
	assert.Greater(t, mr.TTL("app:names:benzene"), 50*time.Minute)
}

//Personal.AI order the ending
