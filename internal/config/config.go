package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Sentry    SentryConfig  `mapstructure:"sentry"`
	Redis     RedisConfig
	AI        AIConfig
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Ultravox  UltravoxConfig  `mapstructure:"ultravox"`
	Email     EmailConfig     `mapstructure:"email"`
	Web3      Web3Config      `mapstructure:"web3"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Runtime flags, set from the command line rather than the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// AIConfig points at an OpenAI-compatible chat completion API (OpenRouter / DeepSeek).
type AIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type OpenAIConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIKey             string `mapstructure:"api_key"`
	TranscriptionModel string `mapstructure:"transcription_model"`
}

type UltravoxConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Voice   string `mapstructure:"voice"`
	Model   string `mapstructure:"model"`
}

type EmailConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

type Web3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	RPCURL          string `mapstructure:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id"`
	ChainName       string `mapstructure:"chain_name"`
	StakingContract string `mapstructure:"staking_contract"`
	TokenContract   string `mapstructure:"token_contract"`
	TokenSymbol     string `mapstructure:"token_symbol"`
	AdminPrivateKey string `mapstructure:"admin_private_key"`
	// PriorityFeeBumpPercent is added to the suggested tip for every retry after the first.
	PriorityFeeBumpPercent int           `mapstructure:"priority_fee_bump_percent"`
	PayoutTimeout          time.Duration `mapstructure:"payout_timeout_seconds"`
	ConfirmationPoll       time.Duration `mapstructure:"confirmation_poll_seconds"`
}

type SweepConfig struct {
	// Interval enables the in-process sweep ticker when greater than zero (minutes).
	Interval   time.Duration `mapstructure:"interval_minutes"`
	CronSecret string        `mapstructure:"cron_secret"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	// Path is used by the sqlite driver.
	Path string
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "lingo_stake.db")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "deepseek/deepseek-chat")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("ultravox.base_url", "https://api.ultravox.ai/api")
	v.SetDefault("ultravox.model", "fixie-ai/ultravox")
	v.SetDefault("email.base_url", "https://api.sendgrid.com")
	v.SetDefault("web3.chain_name", "base")
	v.SetDefault("web3.token_symbol", "USDC")
	v.SetDefault("web3.priority_fee_bump_percent", 20)
	v.SetDefault("web3.payout_timeout_seconds", 90)
	v.SetDefault("web3.confirmation_poll_seconds", 2)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LINGO_STAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// AI providers
	v.BindEnv("ai.base_url", "OPENROUTER_BASE_URL")
	v.BindEnv("ai.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("ai.model", "OPENROUTER_MODEL")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("ultravox.api_key", "ULTRAVOX_API_KEY")

	// Email
	v.BindEnv("email.api_key", "SENDGRID_API_KEY")
	v.BindEnv("email.from_email", "SENDGRID_FROM_EMAIL")

	// Web3
	v.BindEnv("web3.rpc_url", "WEB3_RPC_URL")
	v.BindEnv("web3.staking_contract", "STAKING_CONTRACT_ADDRESS")
	v.BindEnv("web3.token_contract", "TOKEN_CONTRACT_ADDRESS")
	v.BindEnv("web3.admin_private_key", "ADMIN_PRIVATE_KEY")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing / error reporting
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
	v.BindEnv("sentry.dsn", "SENTRY_DSN")

	// Sweep
	v.BindEnv("sweep.cron_secret", "CRON_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// normalize converts the integer units used in the file into durations and
// validates settings that would otherwise fail late.
func (cfg *Config) normalize() error {
	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Web3.PayoutTimeout = cfg.Web3.PayoutTimeout * time.Second
	cfg.Web3.ConfirmationPoll = cfg.Web3.ConfirmationPoll * time.Second
	cfg.Sweep.Interval = cfg.Sweep.Interval * time.Minute

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Web3.Enabled {
		if cfg.Web3.RPCURL == "" || cfg.Web3.StakingContract == "" || cfg.Web3.TokenContract == "" {
			return fmt.Errorf("web3 is enabled but rpc_url, staking_contract or token_contract is missing")
		}
	}

	return nil
}
