package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Billing  BillingConfig  `mapstructure:"billing" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
// JWTSecret signs owner access tokens; WorkerKeyHash is the bcrypt hash of
// the static key workers present on the result callback endpoint.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=0"`
	WorkerKeyHash        string `mapstructure:"worker_key_hash"        validate:"required"`
}

// QueueConfig contains the Redis-backed task queue settings.
type QueueConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"       validate:"gte=0"`
	Stream        string `mapstructure:"stream"         validate:"required"`
	Group         string `mapstructure:"group"          validate:"required"`
	DeadLetter    string `mapstructure:"dead_letter"    validate:"required"`
}

// BillingConfig contains prediction pricing and the registered model set.
type BillingConfig struct {
	PredictionCost int64    `mapstructure:"prediction_cost" validate:"required,gt=0"`
	Models         []string `mapstructure:"models"          validate:"required,min=1"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"  validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// WorkerConfig contains settings for the worker process.
type WorkerConfig struct {
	ID                  string `mapstructure:"id"`
	MaxRetries          int    `mapstructure:"max_retries"           validate:"gte=0"`
	RetryDelayMillis    int    `mapstructure:"retry_delay_millis"    validate:"gte=0"`
	ReconnectDelaySecs  int    `mapstructure:"reconnect_delay_secs"  validate:"gte=0"`
	ResultEndpoint      string `mapstructure:"result_endpoint"       validate:"required"`
	WorkerKey           string `mapstructure:"worker_key"`
	ReportTimeoutSecs   int    `mapstructure:"report_timeout_secs"   validate:"gte=0"`
	BlockTimeoutSeconds int    `mapstructure:"block_timeout_seconds" validate:"gte=0"`
}
