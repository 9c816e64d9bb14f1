// Package config loads server settings from defaults, an optional YAML file
// and GIGBOARD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GIGBOARD_DB_DRIVER.
const EnvPrefix = "GIGBOARD"

// FileEnv names the variable holding the config file path.
const FileEnv = EnvPrefix + "_CONFIG"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`

	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Stripe StripeConfig `mapstructure:"stripe"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is text (colored) or json.
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `mapstructure:"path"`
	// DSN is the Postgres connection string.
	DSN string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type StripeConfig struct {
	SecretKey          string `mapstructure:"secret_key"`
	CheckoutSuccessURL string `mapstructure:"checkout_success_url"`
	CheckoutCancelURL  string `mapstructure:"checkout_cancel_url"`
	PortalReturnURL    string `mapstructure:"portal_return_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("secure_cookies", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "./data/gigboard.db")
	v.SetDefault("db.dsn", "")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.token_ttl", 24*time.Hour)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.checkout_success_url", "http://localhost:8080/billing?checkout=success")
	v.SetDefault("stripe.checkout_cancel_url", "http://localhost:8080/billing?checkout=cancel")
	v.SetDefault("stripe.portal_return_url", "http://localhost:8080/billing")
}

// Load reads the configuration. configFile may be empty, in which case the
// path in GIGBOARD_CONFIG is used if set. The result is not validated.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(FileEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required (GIGBOARD_JWT_SECRET)"))
	}
	if c.JWT.TokenTTL <= 0 {
		errs = append(errs, errors.New("jwt.token_ttl must be positive"))
	}

	if err := c.DB.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q (want text or json)", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Validate checks the store settings on their own, for tools that only
// need the database.
func (c DBConfig) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("db.path is required for sqlite")
		}
	case DriverPostgres:
		if c.DSN == "" {
			return errors.New("db.dsn is required for postgres (GIGBOARD_DB_DSN)")
		}
	default:
		return fmt.Errorf("unknown db.driver %q (want %s or %s)", c.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
