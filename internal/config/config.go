package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Cron         CronConfig         `mapstructure:"cron"`
	Allegro      AllegroConfig      `mapstructure:"allegro"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	FailedOrders FailedOrdersConfig `mapstructure:"failed_orders"`
	Cleanup      CleanupConfig      `mapstructure:"cleanup"`
	Alerts       AlertsConfig       `mapstructure:"alerts"`
	Credentials  CredentialsConfig  `mapstructure:"credentials"`

	// Tokens maps a source token id to a static upstream access token.
	// Used when no external credential service is configured.
	Tokens map[string]string `mapstructure:"tokens"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding" validate:"omitempty,oneof=json console"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Disabled  bool          `mapstructure:"disabled"`
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required_if=Disabled false"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type CronConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IncrementalSync string `mapstructure:"incremental_sync"`
	FailedOrders    string `mapstructure:"failed_orders"`
	Cleanup         string `mapstructure:"cleanup"`
	QualityReport   string `mapstructure:"quality_report"`
}

type AllegroConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	ListTimeout    time.Duration `mapstructure:"list_timeout"`
	DetailTimeout  time.Duration `mapstructure:"detail_timeout"`
	EventPageLimit int           `mapstructure:"event_page_limit" validate:"min=1,max=1000"`
	BulkPageLimit  int           `mapstructure:"bulk_page_limit" validate:"min=1,max=100"`
	MaxOffset      int           `mapstructure:"max_offset"`
}

type SyncConfig struct {
	Workers             int           `mapstructure:"workers" validate:"min=1"`
	QueueSize           int           `mapstructure:"queue_size" validate:"min=1"`
	MaxPages            int           `mapstructure:"max_pages"`
	DetailRetryAttempts int           `mapstructure:"detail_retry_attempts" validate:"min=1"`
	DetailRetryBase     time.Duration `mapstructure:"detail_retry_base"`
	FullSyncDays        int           `mapstructure:"full_sync_days"`
	EnableMonitoring    bool          `mapstructure:"enable_monitoring"`
	JobStatusTTL        time.Duration `mapstructure:"job_status_ttl"`
}

type MonitoringConfig struct {
	WindowHours        int     `mapstructure:"window_hours"`
	CriticalMissing    float64 `mapstructure:"critical_missing"`
	WarningMissing     float64 `mapstructure:"warning_missing"`
	CriticalRegression float64 `mapstructure:"critical_regression"`
	WarningRegression  float64 `mapstructure:"warning_regression"`
	ExpectedMinOrders  int     `mapstructure:"expected_min_orders"`
	AlertThreshold     float64 `mapstructure:"alert_threshold"`
}

type FailedOrdersConfig struct {
	MaxRetries int `mapstructure:"max_retries" validate:"min=1"`
	BatchLimit int `mapstructure:"batch_limit" validate:"min=1"`
}

type CleanupConfig struct {
	SyncHistoryDays int `mapstructure:"sync_history_days"`
	DuplicateDays   int `mapstructure:"duplicate_days"`
	// EventDays bounds the audit log; 0 keeps events forever.
	EventDays int `mapstructure:"event_days" validate:"gte=0"`
}

type AlertsConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CredentialsConfig keys the sealing of access tokens stored through the
// settings API. Without an encryption key only Tokens are used.
type CredentialsConfig struct {
	EncryptionKey string        `mapstructure:"encryption_key"`
	PreviousKey   string        `mapstructure:"previous_key"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERBACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.slow_query", "500ms")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "orderbackup")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.incremental_sync", "0 */5 * * * *")
	v.SetDefault("cron.failed_orders", "0 * * * * *")
	v.SetDefault("cron.cleanup", "0 30 3 * * *")
	v.SetDefault("cron.quality_report", "0 0 6 * * *")
	v.SetDefault("allegro.base_url", "https://api.allegro.pl")
	v.SetDefault("allegro.list_timeout", "30s")
	v.SetDefault("allegro.detail_timeout", "15s")
	v.SetDefault("allegro.event_page_limit", 1000)
	v.SetDefault("allegro.bulk_page_limit", 100)
	v.SetDefault("allegro.max_offset", 10000)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.queue_size", 64)
	v.SetDefault("sync.max_pages", 100)
	v.SetDefault("sync.detail_retry_attempts", 3)
	v.SetDefault("sync.detail_retry_base", "1s")
	v.SetDefault("sync.full_sync_days", 365)
	v.SetDefault("sync.enable_monitoring", true)
	v.SetDefault("sync.job_status_ttl", "24h")
	v.SetDefault("monitoring.window_hours", 24)
	v.SetDefault("monitoring.critical_missing", 0.20)
	v.SetDefault("monitoring.warning_missing", 0.10)
	v.SetDefault("monitoring.critical_regression", 0.15)
	v.SetDefault("monitoring.warning_regression", 0.05)
	v.SetDefault("monitoring.expected_min_orders", 10)
	v.SetDefault("monitoring.alert_threshold", 0.8)
	v.SetDefault("failed_orders.max_retries", 5)
	v.SetDefault("failed_orders.batch_limit", 50)
	v.SetDefault("cleanup.sync_history_days", 90)
	v.SetDefault("cleanup.duplicate_days", 30)
	v.SetDefault("cleanup.event_days", 0)
	v.SetDefault("alerts.webhook_url", "")
	v.SetDefault("alerts.timeout", "5s")
	v.SetDefault("credentials.encryption_key", "")
	v.SetDefault("credentials.previous_key", "")
	v.SetDefault("credentials.cache_ttl", "10m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required keys and value ranges after Load.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
