package config

import "time"

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultRateLimit  = 2.0
	DefaultRateBurst  = 5

	DefaultRateLimitBackend = "memory"

	DefaultOPSINBaseURL     = "https://opsin.ch.cam.ac.uk/opsin"
	DefaultOPSINTimeout     = 5 * time.Second
	DefaultPubChemBaseURL   = "https://pubchem.ncbi.nlm.nih.gov"
	DefaultPubChemRateLimit = 5
	DefaultUserAgent        = "isoscope/1.0"

	DefaultMaxIsomers    = 1024
	DefaultEmbedAttempts = 5
	DefaultRandomSeed    = 0xf00d

	DefaultRenderSize    = 500
	DefaultBondLength    = 35.0
	DefaultLineWidth     = 4.0
	DefaultFontSize      = 14.0
	DefaultViewerWidth   = 400
	DefaultViewerHeight  = 300

	DefaultCacheBackend   = "memory"
	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheCleanup   = 10 * time.Minute
	DefaultCacheKeyPrefix = "isoscope:resolve:"

	DefaultRedisAddr = "localhost:6379"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "isomer-reports"
	DefaultPresignExpiry = 15 * time.Minute
	DefaultRetentionDays = 30

	DefaultKafkaBroker         = "localhost:9092"
	DefaultKafkaGroupID        = "isoscope-worker"
	DefaultKafkaRequestTopic   = "isomer.analysis.requested"
	DefaultKafkaCompletedTopic = "isomer.analysis.completed"
	DefaultKafkaDLQTopic       = "isomer.analysis.dlq"

	DefaultMetricsNamespace = "isoscope"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 4
)

// NewDefaultConfig returns a fully defaulted configuration that passes
// Validate without any file or environment input.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Stereo:  StereoConfig{OnlyUnassigned: true, TryEmbedding: true},
		Render:  RenderConfig{ExplicitMethyl: true, Annotate: true},
		Metrics: MetricsConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-value fields in cfg. Explicit values always win.
// Booleans cannot be defaulted here; the loader registers them with viper.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = DefaultRateLimit
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}
	if cfg.Server.RateLimitBackend == "" {
		cfg.Server.RateLimitBackend = DefaultRateLimitBackend
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Resolver.OPSINBaseURL == "" {
		cfg.Resolver.OPSINBaseURL = DefaultOPSINBaseURL
	}
	if cfg.Resolver.OPSINTimeout == 0 {
		cfg.Resolver.OPSINTimeout = DefaultOPSINTimeout
	}
	if cfg.Resolver.PubChemBaseURL == "" {
		cfg.Resolver.PubChemBaseURL = DefaultPubChemBaseURL
	}
	if cfg.Resolver.PubChemRateLimit == 0 {
		cfg.Resolver.PubChemRateLimit = DefaultPubChemRateLimit
	}
	if cfg.Resolver.UserAgent == "" {
		cfg.Resolver.UserAgent = DefaultUserAgent
	}

	if cfg.Stereo.MaxIsomers == 0 {
		cfg.Stereo.MaxIsomers = DefaultMaxIsomers
	}
	if cfg.Stereo.EmbedAttempts == 0 {
		cfg.Stereo.EmbedAttempts = DefaultEmbedAttempts
	}
	if cfg.Stereo.RandomSeed == 0 {
		cfg.Stereo.RandomSeed = DefaultRandomSeed
	}

	if cfg.Render.Width == 0 {
		cfg.Render.Width = DefaultRenderSize
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = DefaultRenderSize
	}
	if cfg.Render.BondLength == 0 {
		cfg.Render.BondLength = DefaultBondLength
	}
	if cfg.Render.LineWidth == 0 {
		cfg.Render.LineWidth = DefaultLineWidth
	}
	if cfg.Render.FontSize == 0 {
		cfg.Render.FontSize = DefaultFontSize
	}
	if cfg.Render.ViewerWidth == 0 {
		cfg.Render.ViewerWidth = DefaultViewerWidth
	}
	if cfg.Render.ViewerHeight == 0 {
		cfg.Render.ViewerHeight = DefaultViewerHeight
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = DefaultCacheCleanup
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = DefaultPresignExpiry
	}
	if cfg.MinIO.RetentionDays == 0 {
		cfg.MinIO.RetentionDays = DefaultRetentionDays
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.CompletedTopic == "" {
		cfg.Kafka.CompletedTopic = DefaultKafkaCompletedTopic
	}
	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = DefaultKafkaDLQTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
}

//Personal.AI order the ending
