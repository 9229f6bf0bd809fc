package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Carrier   CarrierConfig
	Commerce  CommerceConfig
	Engine    EngineConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds the order document store settings.
// Driver selects the backend: "memory", "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

// PostgresDSN builds the connection string for the postgres driver
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings for the status cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CarrierConfig holds the shipment carrier API settings
type CarrierConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
	MaxConcurrency int // concurrent per-id calls during a batch status fetch
}

// CommerceConfig holds the commerce platform API settings
type CommerceConfig struct {
	ShopDomain     string
	AccessToken    string
	APIVersion     string
	TimeoutSeconds int
	PageSize       int
}

// EngineConfig holds reconciliation engine tunables
type EngineConfig struct {
	LockTimeout    time.Duration // per-identifier lock acquisition bound
	StatusCacheTTL time.Duration // carrier status cache TTL
}

// SchedulerConfig holds the periodic sync job configuration
type SchedulerConfig struct {
	Enabled      bool
	SyncInterval time.Duration
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest): ORDERDESK_-prefixed environment variables,
// config.toml, built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply
	}

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Database: DatabaseConfig{
			Driver:     v.GetString("database.driver"),
			SQLitePath: v.GetString("database.sqlite_path"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DBName:     v.GetString("database.dbname"),
			SSLMode:    v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Carrier: CarrierConfig{
			BaseURL:        v.GetString("carrier.base_url"),
			APIKey:         v.GetString("carrier.api_key"),
			TimeoutSeconds: v.GetInt("carrier.timeout_seconds"),
			MaxConcurrency: v.GetInt("carrier.max_concurrency"),
		},
		Commerce: CommerceConfig{
			ShopDomain:     v.GetString("commerce.shop_domain"),
			AccessToken:    v.GetString("commerce.access_token"),
			APIVersion:     v.GetString("commerce.api_version"),
			TimeoutSeconds: v.GetInt("commerce.timeout_seconds"),
			PageSize:       v.GetInt("commerce.page_size"),
		},
		Engine: EngineConfig{
			LockTimeout:    v.GetDuration("engine.lock_timeout"),
			StatusCacheTTL: v.GetDuration("engine.status_cache_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			SyncInterval: v.GetDuration("scheduler.sync_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "orderdesk")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", time.Minute)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.sqlite_path", "orderdesk.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("carrier.timeout_seconds", 15)
	v.SetDefault("carrier.max_concurrency", 8)

	v.SetDefault("commerce.api_version", "2024-10")
	v.SetDefault("commerce.timeout_seconds", 30)
	v.SetDefault("commerce.page_size", 250)

	v.SetDefault("engine.lock_timeout", 5*time.Second)
	v.SetDefault("engine.status_cache_ttl", 2*time.Minute)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.sync_interval", 15*time.Minute)
}

// Validate catches configuration combinations that cannot work
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q (want memory, sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
	}
	if c.Engine.LockTimeout <= 0 {
		return fmt.Errorf("engine.lock_timeout must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.SyncInterval <= 0 {
		return fmt.Errorf("scheduler.sync_interval must be positive when the scheduler is enabled")
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
