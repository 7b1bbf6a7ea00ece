package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/billingcore/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	TaxService TaxServiceConfig `mapstructure:"tax_service"`
	Worker     WorkerConfig     `validate:"required"`
	Cache      CacheConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type BillingConfig struct {
	// DefaultTimezone is used for tenants without a configured timezone
	DefaultTimezone string `mapstructure:"default_timezone" validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type TaxServiceConfig struct {
	Enabled    bool
	BaseURL    string        `mapstructure:"base_url" validate:"required_if=Enabled true"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type WorkerConfig struct {
	// RenewalSchedule is a cron spec, seconds field optional
	RenewalSchedule string `mapstructure:"renewal_schedule" validate:"required"`
	Concurrency     int    `mapstructure:"concurrency" validate:"min=1"`
	MetricsAddress  string `mapstructure:"metrics_address"`
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration `mapstructure:"ttl"`
}

type SentryConfig struct {
	Enabled     bool
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/billingcore")

	v.SetEnvPrefix("BILLINGCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override it even
// when the config file does not mention it
func setDefaults(v *viper.Viper) {
	def := GetDefaultConfig()
	v.SetDefault("deployment.mode", def.Deployment.Mode)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("billing.default_timezone", def.Billing.DefaultTimezone)
	v.SetDefault("postgres.host", def.Postgres.Host)
	v.SetDefault("postgres.port", def.Postgres.Port)
	v.SetDefault("postgres.user", def.Postgres.User)
	v.SetDefault("postgres.password", def.Postgres.Password)
	v.SetDefault("postgres.dbname", def.Postgres.DBName)
	v.SetDefault("postgres.sslmode", def.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", def.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", def.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", def.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("tax_service.enabled", def.TaxService.Enabled)
	v.SetDefault("tax_service.base_url", def.TaxService.BaseURL)
	v.SetDefault("tax_service.api_key", def.TaxService.APIKey)
	v.SetDefault("tax_service.timeout", def.TaxService.Timeout)
	v.SetDefault("tax_service.max_retries", def.TaxService.MaxRetries)
	v.SetDefault("worker.renewal_schedule", def.Worker.RenewalSchedule)
	v.SetDefault("worker.concurrency", def.Worker.Concurrency)
	v.SetDefault("worker.metrics_address", def.Worker.MetricsAddress)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("sentry.enabled", def.Sentry.Enabled)
	v.SetDefault("sentry.dsn", def.Sentry.DSN)
	v.SetDefault("sentry.environment", def.Sentry.Environment)
	v.SetDefault("sentry.sample_rate", def.Sentry.SampleRate)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-worker applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing:    BillingConfig{DefaultTimezone: "UTC"},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "billingcore",
			Password:               "billingcore",
			DBName:                 "billingcore",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		TaxService: TaxServiceConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Worker: WorkerConfig{
			RenewalSchedule: "*/5 * * * *",
			Concurrency:     4,
			MetricsAddress:  ":9090",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Sentry: SentryConfig{
			Environment: "local",
			SampleRate:  1.0,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// Location resolves the default billing timezone
func (c BillingConfig) Location() (*time.Location, error) {
	if c.DefaultTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.DefaultTimezone)
}
