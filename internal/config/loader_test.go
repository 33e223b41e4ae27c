package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
log:
  level: debug
  format: console
resolver:
  opsin_timeout: 3s
  pubchem_rate_limit: 2
stereo:
  max_isomers: 64
  try_embedding: false
render:
  width: 600
  height: 600
cache:
  backend: redis
redis:
  addr: "cache:6379"
minio:
  enabled: true
  endpoint: "minio:9000"
  bucket: "reports"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Resolver.OPSINTimeout)
	assert.Equal(t, 2, cfg.Resolver.PubChemRateLimit)
	assert.Equal(t, 64, cfg.Stereo.MaxIsomers)
	assert.False(t, cfg.Stereo.TryEmbedding)
	assert.True(t, cfg.Stereo.OnlyUnassigned, "unset booleans keep their registered default")
	assert.Equal(t, 600, cfg.Render.Width)
	assert.Equal(t, 35.0, cfg.Render.BondLength)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.True(t, cfg.MinIO.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaRequestTopic, cfg.Kafka.RequestTopic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "stereo:\n  max_isomers: 99999\n"))
	assert.ErrorContains(t, err, "validation failed")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ISOSCOPE_SERVER_PORT", "7070")
	t.Setenv("ISOSCOPE_STEREO_RANDOM_SEED", "42")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, int64(42), cfg.Stereo.RandomSeed)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ISOSCOPE_RESOLVER_PUBCHEM_RATE_LIMIT", "9")
	t.Setenv("ISOSCOPE_CACHE_BACKEND", "none")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Resolver.PubChemRateLimit)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOrDefault_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOPSINBaseURL, cfg.Resolver.OPSINBaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ISOSCOPE_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ISOSCOPE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "loaded", os.Getenv("ISOSCOPE_TEST_DOTENV"))
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

//Personal.AI order the ending
