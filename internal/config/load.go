package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory; absence is not an error.
	v.SetConfigName("predictq")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: PREDICTQ_SERVER_PORT, PREDICTQ_DATABASE_URL, ...
	v.SetEnvPrefix("PREDICTQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound explicitly.
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"auth.worker_key_hash",
		"llm.gemini_api_key",
		"queue.redis_password",
		"worker.worker_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for settings that have sensible ones.
// Required secrets (database URL, JWT secret, API keys) have no defaults and
// must come from the environment or a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.stream", "prediction_tasks")
	v.SetDefault("queue.group", "prediction_workers")
	v.SetDefault("queue.dead_letter", "prediction_tasks_dead")

	v.SetDefault("billing.prediction_cost", 10)
	v.SetDefault("billing.models", []string{"gemini-2.0-flash"})

	v.SetDefault("llm.timeout_seconds", 30)

	v.SetDefault("worker.id", "worker-1")
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.retry_delay_millis", 500)
	v.SetDefault("worker.reconnect_delay_secs", 5)
	v.SetDefault("worker.result_endpoint", "http://localhost:8080/api/internal/results")
	v.SetDefault("worker.report_timeout_secs", 10)
	v.SetDefault("worker.block_timeout_seconds", 5)
}
