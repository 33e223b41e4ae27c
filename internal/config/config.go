// Package config defines the IsomerScope configuration structures. No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     int64         `mapstructure:"max_body_size" validate:"gte=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	// RateLimit is the per-client analysis rate in requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
	// RateLimitBackend is "memory" (per process) or "redis" (shared by
	// every replica).
	RateLimitBackend string `mapstructure:"rate_limit_backend" validate:"omitempty,oneof=memory redis"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResolverConfig configures the name-to-structure lookups.
type ResolverConfig struct {
	OPSINBaseURL string        `mapstructure:"opsin_base_url" validate:"required,url"`
	OPSINTimeout time.Duration `mapstructure:"opsin_timeout" validate:"gt=0"`

	PubChemBaseURL string `mapstructure:"pubchem_base_url" validate:"required,url"`
	// PubChemTimeout of zero leaves the call bounded only by the caller context.
	PubChemTimeout   time.Duration `mapstructure:"pubchem_timeout" validate:"gte=0"`
	PubChemRateLimit int           `mapstructure:"pubchem_rate_limit" validate:"gte=0"`

	UserAgent string `mapstructure:"user_agent"`
}

// StereoConfig configures stereoisomer enumeration and 3D embedding.
type StereoConfig struct {
	OnlyUnassigned bool  `mapstructure:"only_unassigned"`
	TryEmbedding   bool  `mapstructure:"try_embedding"`
	MaxIsomers     int   `mapstructure:"max_isomers" validate:"min=1,max=4096"`
	RandomSeed     int64 `mapstructure:"random_seed"`
	EmbedAttempts  int   `mapstructure:"embed_attempts" validate:"min=1,max=50"`
}

// RenderConfig configures 2D depiction and the 3D viewer payload.
type RenderConfig struct {
	Width          int     `mapstructure:"width" validate:"min=100,max=4000"`
	Height         int     `mapstructure:"height" validate:"min=100,max=4000"`
	BondLength     float64 `mapstructure:"bond_length" validate:"gt=0"`
	LineWidth      float64 `mapstructure:"line_width" validate:"gt=0"`
	FontSize       float64 `mapstructure:"font_size" validate:"gt=0"`
	ExplicitMethyl bool    `mapstructure:"explicit_methyl"`
	Annotate       bool    `mapstructure:"annotate"`
	ViewerWidth    int     `mapstructure:"viewer_width" validate:"min=50"`
	ViewerHeight   int     `mapstructure:"viewer_height" validate:"min=50"`
}

// CacheConfig selects the resolver cache backend.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=none memory redis"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig holds object-storage parameters for report export.
type MinIOConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry" validate:"gte=0"`
	// RetentionDays is how long exports are kept.
	RetentionDays int `mapstructure:"retention_days" validate:"gte=0"`
}

// KafkaConfig holds analysis event topics and broker parameters.
type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	RequestTopic   string   `mapstructure:"request_topic"`
	CompletedTopic string   `mapstructure:"completed_topic"`
	DLQTopic       string   `mapstructure:"dlq_topic"`
	MaxRetries     int      `mapstructure:"max_retries" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=256"`
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.LogConfig `mapstructure:"log"`
	Resolver ResolverConfig    `mapstructure:"resolver"`
	Stereo   StereoConfig      `mapstructure:"stereo"`
	Render   RenderConfig      `mapstructure:"render"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Redis    RedisConfig       `mapstructure:"redis"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Worker   WorkerConfig      `mapstructure:"worker"`
}

var validate = validator.New()

// Validate checks struct tags first and then the cross-section rules. It
// returns the first problem found; callers treat any error as fatal.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (value %v)", strings.ToLower(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}

	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when cache.backend is redis")
	}
	if c.Server.RateLimitBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when server.rate_limit_backend is redis")
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio is enabled")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		if c.Kafka.RequestTopic == c.Kafka.CompletedTopic {
			return fmt.Errorf("config: kafka.request_topic and kafka.completed_topic must differ")
		}
	}
	return nil
}

//Personal.AI order the ending
