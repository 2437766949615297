package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the service.
const EnvPrefix = "RESERVATION"

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds operator token settings.
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// KafkaConfig holds broker settings. No brokers disables event publishing
// and the payment consumer.
type KafkaConfig struct {
	Brokers       []string
	GroupPrefix   string
	EventsTopic   string
	PaymentsTopic string
}

// LogConfig holds optional file logging settings.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// PolicyConfig holds the reservation rules that vary per property.
type PolicyConfig struct {
	HoldTTL          time.Duration
	HoldRetention    time.Duration
	SweepInterval    time.Duration
	BulkFloor        int
	BulkCeiling      int
	BulkBaseFee      int64
	BaseTier         string
	CutoffMonth      int
	CutoffDay        int
	CutoffYearOffset int
	Timezone         string
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	StoreDriver string
	CatalogPath string
	CORSOrigins []string
	Log         LogConfig
	DBConfig    DatabaseConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	Policy      PolicyConfig
}

// Load reads configuration from, in increasing priority: defaults, the YAML
// file named by --config, a .env file, environment variables, and flags.
func Load(args []string) (*ServiceConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("service-reservation", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	flags.String("port", "", "HTTP listen address, e.g. :8080")
	flags.String("store", "", "store driver: postgres or memory")
	flags.String("catalog", "", "path to the property catalog YAML")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"service.port": "port",
		"store.driver": "store",
		"catalog.path": "catalog",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", ":8080")
	v.SetDefault("app.env", "production")
	v.SetDefault("store.driver", StorePostgres)
	v.SetDefault("catalog.path", "catalog.yaml")
	v.SetDefault("cors.origins", "")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "reservation")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.token_ttl", "1h")
	v.SetDefault("jwt.issuer", "service-reservation")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.group_prefix", "lodge-")
	v.SetDefault("kafka.events_topic", "reservation.events")
	v.SetDefault("kafka.payments_topic", "payment.events")

	v.SetDefault("policy.hold_ttl", "15m")
	v.SetDefault("policy.hold_retention", "1h")
	v.SetDefault("policy.sweep_interval", "1m")
	v.SetDefault("policy.bulk_floor", 0)
	v.SetDefault("policy.bulk_ceiling", 0)
	v.SetDefault("policy.bulk_base_fee", 0)
	v.SetDefault("policy.base_tier", "cheapest")
	v.SetDefault("policy.cutoff_month", 10)
	v.SetDefault("policy.cutoff_day", 1)
	v.SetDefault("policy.cutoff_year_offset", -1)
	v.SetDefault("policy.timezone", "UTC")
}

func fromViper(v *viper.Viper) *ServiceConfig {
	return &ServiceConfig{
		Port:        v.GetString("service.port"),
		AppEnv:      v.GetString("app.env"),
		StoreDriver: strings.ToLower(v.GetString("store.driver")),
		CatalogPath: v.GetString("catalog.path"),
		CORSOrigins: splitList(v.GetString("cors.origins")),
		Log: LogConfig{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		DBConfig: DatabaseConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		JWTConfig: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			TokenTTL: v.GetDuration("jwt.token_ttl"),
			Issuer:   v.GetString("jwt.issuer"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:       splitList(v.GetString("kafka.brokers")),
			GroupPrefix:   v.GetString("kafka.group_prefix"),
			EventsTopic:   v.GetString("kafka.events_topic"),
			PaymentsTopic: v.GetString("kafka.payments_topic"),
		},
		Policy: PolicyConfig{
			HoldTTL:          v.GetDuration("policy.hold_ttl"),
			HoldRetention:    v.GetDuration("policy.hold_retention"),
			SweepInterval:    v.GetDuration("policy.sweep_interval"),
			BulkFloor:        v.GetInt("policy.bulk_floor"),
			BulkCeiling:      v.GetInt("policy.bulk_ceiling"),
			BulkBaseFee:      v.GetInt64("policy.bulk_base_fee"),
			BaseTier:         strings.ToLower(v.GetString("policy.base_tier")),
			CutoffMonth:      v.GetInt("policy.cutoff_month"),
			CutoffDay:        v.GetInt("policy.cutoff_day"),
			CutoffYearOffset: v.GetInt("policy.cutoff_year_offset"),
			Timezone:         v.GetString("policy.timezone"),
		},
	}
}

// Validate checks cross-field constraints.
func (c *ServiceConfig) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", StorePostgres, StoreMemory, c.StoreDriver))
	}
	if c.Policy.HoldTTL <= 0 {
		errs = append(errs, errors.New("policy.hold_ttl must be positive"))
	}
	if c.Policy.HoldRetention < 0 {
		errs = append(errs, errors.New("policy.hold_retention cannot be negative"))
	}
	if c.Policy.SweepInterval <= 0 {
		errs = append(errs, errors.New("policy.sweep_interval must be positive"))
	}
	if c.Policy.BulkFloor < 0 || c.Policy.BulkCeiling < 0 {
		errs = append(errs, errors.New("policy bulk limits cannot be negative"))
	}
	if c.Policy.BulkCeiling > 0 && c.Policy.BulkFloor > c.Policy.BulkCeiling {
		errs = append(errs, fmt.Errorf("policy.bulk_floor %d exceeds policy.bulk_ceiling %d", c.Policy.BulkFloor, c.Policy.BulkCeiling))
	}
	if c.Policy.BulkBaseFee < 0 {
		errs = append(errs, errors.New("policy.bulk_base_fee cannot be negative"))
	}
	switch c.Policy.BaseTier {
	case "cheapest", "internal", "external":
	default:
		errs = append(errs, fmt.Errorf("policy.base_tier must be cheapest, internal or external, got %q", c.Policy.BaseTier))
	}
	if c.Policy.CutoffMonth < 1 || c.Policy.CutoffMonth > 12 {
		errs = append(errs, fmt.Errorf("policy.cutoff_month out of range: %d", c.Policy.CutoffMonth))
	}
	if c.Policy.CutoffDay < 1 || c.Policy.CutoffDay > 31 {
		errs = append(errs, fmt.Errorf("policy.cutoff_day out of range: %d", c.Policy.CutoffDay))
	}
	if _, err := time.LoadLocation(c.Policy.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("policy.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the property's time zone.
func (c *ServiceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Policy.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
