package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DatabaseURL     string         `mapstructure:"database_url"`
	Port            string         `mapstructure:"port"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
	Store           StoreConfig    `mapstructure:"store"`
	Log             LogConfig      `mapstructure:"log"`
	Business        BusinessConfig `mapstructure:"business"`
	Query           QueryConfig    `mapstructure:"query"`
	Resolver        ResolverConfig `mapstructure:"resolver"`
}

// StoreConfig selects where saved views live. Entity records are always
// read from DatabaseURL.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	Level    string            `mapstructure:"level"`
	JSON     bool              `mapstructure:"json"`
	NoColor  bool              `mapstructure:"no_color"`
	File     string            `mapstructure:"file"`
	Rotation LogRotationConfig `mapstructure:"rotation"`
}

type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type BusinessConfig struct {
	UTCOffset time.Duration `mapstructure:"utc_offset"`
}

type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type ResolverConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var envFiles = []string{".env", ".env.local"}

// Load reads .env files, the optional config file at path and CRM_*
// environment variables into v, then decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		for _, f := range envFiles {
			_ = godotenv.Load(filepath.Join(filepath.Dir(path), f))
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/crm")
	}

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database_url", "CRM_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("port", "CRM_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return errors.Newf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Query.DefaultLimit < 1 || c.Query.MaxLimit < c.Query.DefaultLimit {
		return errors.Newf("query limits out of range: default %d, max %d", c.Query.DefaultLimit, c.Query.MaxLimit)
	}
	if c.Resolver.Concurrency < 1 {
		return errors.Newf("resolver.concurrency must be positive, got %d", c.Resolver.Concurrency)
	}
	return nil
}
