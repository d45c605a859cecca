package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Processor   ProcessorConfig `mapstructure:"processor"`
	Fees        FeesConfig      `mapstructure:"fees"`
	Webhook     WebhookConfig   `mapstructure:"webhook"`
	Email       EmailConfig     `mapstructure:"email"`
	Snapshot    SnapshotConfig  `mapstructure:"snapshot"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ProcessorConfig configures the payment-intent metadata endpoint
type ProcessorConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
	// MemoTTL is how long successful metadata lookups stay memoized, in seconds
	MemoTTL int `mapstructure:"memo_ttl"`
}

// FeesConfig carries the fee policy: processor fee rates, the
// fee-stripping cutover instant, the default fee table, and batch limits.
// The cutover is policy, not code: paid_at before it means the gross
// amount is used as-is because no reliable processor metadata exists.
type FeesConfig struct {
	StrippingCutover    string          `mapstructure:"stripping_cutover"` // RFC3339
	InstantRailFeePct   float64         `mapstructure:"instant_rail_fee_pct"`
	CardRailFeePct      float64         `mapstructure:"card_rail_fee_pct"`
	CardRailFixedFee    float64         `mapstructure:"card_rail_fixed_fee"`
	DependentsSurcharge float64         `mapstructure:"dependents_surcharge"`
	MaxDependents       int             `mapstructure:"max_dependents"`
	BatchChunkSize      int             `mapstructure:"batch_chunk_size"`
	CohortConcurrency   int             `mapstructure:"cohort_concurrency"`
	Defaults            DefaultFeeTable `mapstructure:"defaults"`
}

// DefaultFeeTable holds per-variant base amounts for each category
type DefaultFeeTable struct {
	SelectionLegacy       float64 `mapstructure:"selection_legacy"`
	SelectionSimplified   float64 `mapstructure:"selection_simplified"`
	ScholarshipLegacy     float64 `mapstructure:"scholarship_legacy"`
	ScholarshipSimplified float64 `mapstructure:"scholarship_simplified"`
	I20ControlLegacy      float64 `mapstructure:"i20_control_legacy"`
	I20ControlSimplified  float64 `mapstructure:"i20_control_simplified"`
	ApplicationBase       float64 `mapstructure:"application_base"`
	ApplicationPerDep     float64 `mapstructure:"application_per_dependent"`
}

// CutoverTime parses the configured stripping cutover instant
func (f FeesConfig) CutoverTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, f.StrippingCutover)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid fees.stripping_cutover %q: %w", f.StrippingCutover, err)
	}
	return t, nil
}

// WebhookConfig configures the fire-and-forget seller-alert sink
type WebhookConfig struct {
	SellerAlertURL string `mapstructure:"seller_alert_url"`
	Timeout        int    `mapstructure:"timeout"`
}

type EmailConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

// SnapshotConfig configures the daily revenue snapshot worker
type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // cron expression
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "referral_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("processor.timeout", 30)
	viper.SetDefault("processor.max_retries", 3)
	viper.SetDefault("processor.memo_ttl", 300) // 5 minutes

	// Fee policy. The cutover is the instant processor-side fee
	// transparency became available; charges before it keep their gross.
	viper.SetDefault("fees.stripping_cutover", "2023-06-01T00:00:00Z")
	viper.SetDefault("fees.instant_rail_fee_pct", 0.018)
	viper.SetDefault("fees.card_rail_fee_pct", 0.039)
	viper.SetDefault("fees.card_rail_fixed_fee", 0.30)
	viper.SetDefault("fees.dependents_surcharge", 150)
	viper.SetDefault("fees.max_dependents", 5)
	viper.SetDefault("fees.batch_chunk_size", 1000)
	viper.SetDefault("fees.cohort_concurrency", 16)

	viper.SetDefault("fees.defaults.selection_legacy", 400)
	viper.SetDefault("fees.defaults.selection_simplified", 350)
	viper.SetDefault("fees.defaults.scholarship_legacy", 850)
	viper.SetDefault("fees.defaults.scholarship_simplified", 850)
	viper.SetDefault("fees.defaults.i20_control_legacy", 900)
	viper.SetDefault("fees.defaults.i20_control_simplified", 900)
	viper.SetDefault("fees.defaults.application_base", 100)
	viper.SetDefault("fees.defaults.application_per_dependent", 100)

	viper.SetDefault("webhook.timeout", 10)

	viper.SetDefault("email.from_email", "no-reply@referralservice.com")
	viper.SetDefault("email.from_name", "Referral Service")

	viper.SetDefault("snapshot.enabled", true)
	viper.SetDefault("snapshot.schedule", "0 5 * * *")
	viper.SetDefault("snapshot.cache_ttl", 86400)
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if redisURL := os.Getenv("REDIS_HOST"); redisURL != "" {
		viper.Set("redis.host", redisURL)
	}

	if processorKey := os.Getenv("PROCESSOR_API_KEY"); processorKey != "" {
		viper.Set("processor.api_key", processorKey)
	}
	if processorURL := os.Getenv("PROCESSOR_BASE_URL"); processorURL != "" {
		viper.Set("processor.base_url", processorURL)
	}

	if cutover := os.Getenv("FEE_STRIPPING_CUTOVER"); cutover != "" {
		viper.Set("fees.stripping_cutover", cutover)
	}

	if webhookURL := os.Getenv("SELLER_ALERT_WEBHOOK_URL"); webhookURL != "" {
		viper.Set("webhook.seller_alert_url", webhookURL)
	}

	if sendgridKey := os.Getenv("SENDGRID_API_KEY"); sendgridKey != "" {
		viper.Set("email.api_key", sendgridKey)
	}
	if fromEmail := os.Getenv("EMAIL_FROM_EMAIL"); fromEmail != "" {
		viper.Set("email.from_email", fromEmail)
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if config.Processor.BaseURL == "" {
		return fmt.Errorf("processor base URL is required")
	}

	if _, err := config.Fees.CutoverTime(); err != nil {
		return err
	}

	if config.Fees.BatchChunkSize <= 0 {
		return fmt.Errorf("fees.batch_chunk_size must be positive")
	}

	return nil
}
