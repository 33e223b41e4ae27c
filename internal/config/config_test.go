package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_TagViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"opsin url invalid", func(c *Config) { c.Resolver.OPSINBaseURL = "not a url" }, "opsinbaseurl"},
		{"opsin timeout zero", func(c *Config) { c.Resolver.OPSINTimeout = 0 }, "opsintimeout"},
		{"max isomers zero", func(c *Config) { c.Stereo.MaxIsomers = 0 }, "maxisomers"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "backend"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "level"},
		{"tiny canvas", func(c *Config) { c.Render.Width = 10 }, "width"},
		{"unknown rate backend", func(c *Config) { c.Server.RateLimitBackend = "etcd" }, "ratelimitbackend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidate_CrossSectionRules(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "redis.addr")

	cfg = NewDefaultConfig()
	cfg.Server.RateLimitBackend = "redis"
	cfg.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "server.rate_limit_backend")

	cfg = NewDefaultConfig()
	cfg.MinIO.Enabled = true
	cfg.MinIO.Bucket = ""
	assert.ErrorContains(t, cfg.Validate(), "minio.bucket")

	cfg = NewDefaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.CompletedTopic = cfg.Kafka.RequestTopic
	assert.ErrorContains(t, cfg.Validate(), "must differ")

	cfg = NewDefaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.ErrorContains(t, cfg.Validate(), "kafka.brokers")
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:9090", ServerConfig{Host: "127.0.0.1", Port: 9090}.Addr())
}

//Personal.AI order the ending
