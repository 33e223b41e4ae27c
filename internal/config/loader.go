package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting, e.g.
// ISOSCOPE_RESOLVER_OPSIN_TIMEOUT or ISOSCOPE_STEREO_MAX_ISOMERS.
const envPrefix = "ISOSCOPE"

// newViper builds a Viper instance with YAML file type, ISOSCOPE_ env binding
// and "." -> "_" key mapping. Every key is registered with a default so that
// env-only deployments bind even when no file mentions the key.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

func registerDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.rate_limit_backend", d.Server.RateLimitBackend)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file.path", "")

	v.SetDefault("resolver.opsin_base_url", d.Resolver.OPSINBaseURL)
	v.SetDefault("resolver.opsin_timeout", d.Resolver.OPSINTimeout)
	v.SetDefault("resolver.pubchem_base_url", d.Resolver.PubChemBaseURL)
	v.SetDefault("resolver.pubchem_timeout", d.Resolver.PubChemTimeout)
	v.SetDefault("resolver.pubchem_rate_limit", d.Resolver.PubChemRateLimit)
	v.SetDefault("resolver.user_agent", d.Resolver.UserAgent)

	v.SetDefault("stereo.only_unassigned", d.Stereo.OnlyUnassigned)
	v.SetDefault("stereo.try_embedding", d.Stereo.TryEmbedding)
	v.SetDefault("stereo.max_isomers", d.Stereo.MaxIsomers)
	v.SetDefault("stereo.random_seed", d.Stereo.RandomSeed)
	v.SetDefault("stereo.embed_attempts", d.Stereo.EmbedAttempts)

	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("render.height", d.Render.Height)
	v.SetDefault("render.bond_length", d.Render.BondLength)
	v.SetDefault("render.line_width", d.Render.LineWidth)
	v.SetDefault("render.font_size", d.Render.FontSize)
	v.SetDefault("render.explicit_methyl", d.Render.ExplicitMethyl)
	v.SetDefault("render.annotate", d.Render.Annotate)
	v.SetDefault("render.viewer_width", d.Render.ViewerWidth)
	v.SetDefault("render.viewer_height", d.Render.ViewerHeight)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", d.MinIO.Endpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", d.MinIO.Bucket)
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.presign_expiry", d.MinIO.PresignExpiry)
	v.SetDefault("minio.retention_days", d.MinIO.RetentionDays)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.request_topic", d.Kafka.RequestTopic)
	v.SetDefault("kafka.completed_topic", d.Kafka.CompletedTopic)
	v.SetDefault("kafka.dlq_topic", d.Kafka.DLQTopic)
	v.SetDefault("kafka.max_retries", d.Kafka.MaxRetries)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
}

// Load reads the YAML file at configPath, merges ISOSCOPE_* overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from ISOSCOPE_* environment variables and
// defaults only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrDefault loads configPath when it is non-empty and falls back to the
// environment otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are ignored; existing variables are not
// overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("config: failed to load %s: %w", p, err)
		}
	}
	return nil
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch re-reads configPath on change and calls onChange with the new Config.
// Invalid revisions are skipped. Only log level and render settings are safe
// to apply at runtime.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is Load that panics on error. For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
