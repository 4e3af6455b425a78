// Package config loads pipeline settings from defaults, an optional config file,
// a .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source names accepted by SOURCE.
const (
	SourceCSV        = "csv"
	SourceTwelveData = "twelvedata"
)

// Config holds every pipeline setting. Field tags name the config-file keys;
// the same names in upper case are read from the environment.
type Config struct {
	DBPath           string        `mapstructure:"db_path"`
	DBConnectTimeout time.Duration `mapstructure:"db_connect_timeout"`
	Prune            bool          `mapstructure:"prune"`

	Source             string        `mapstructure:"source"`
	DataDir            string        `mapstructure:"data_dir"`
	TwelveDataAPIKey   string        `mapstructure:"twelve_data_api_key"`
	TwelveDataBaseURL  string        `mapstructure:"twelve_data_base_url"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	ServerPort int `mapstructure:"server_port"`
	// AllowedLocations lists storage locations an HTTP request may name besides DB_PATH.
	AllowedLocations []string `mapstructure:"allowed_locations"`
	// CORSAllowedOrigins lists browser origins allowed to call the server; empty disables CORS.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var keys = []string{
	"db_path", "db_connect_timeout", "prune",
	"source", "data_dir", "twelve_data_api_key", "twelve_data_base_url", "http_timeout", "rate_limit_per_minute",
	"redis_addr", "redis_password", "redis_db", "cache_ttl",
	"server_port", "allowed_locations", "cors_allowed_origins",
	"log_level", "log_format",
}

// Load reads the configuration. configFile may be empty, in which case
// ./pipeline.yaml is used when it exists.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pipeline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.AllowedLocations = cleanList(cfg.AllowedLocations)
	cfg.CORSAllowedOrigins = cleanList(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required for the csv source")
		}
	case SourceTwelveData:
		if c.TwelveDataAPIKey == "" {
			return errors.New("TWELVE_DATA_API_KEY is required for the twelvedata source")
		}
	default:
		return fmt.Errorf("unknown SOURCE %q (use %s or %s)", c.Source, SourceCSV, SourceTwelveData)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative: %v", c.CacheTTL)
	}
	for _, o := range c.CORSAllowedOrigins {
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS entry %q must start with http:// or https://", o)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "mini_pipeline.db")
	v.SetDefault("db_connect_timeout", "30s")
	v.SetDefault("prune", true)

	v.SetDefault("source", SourceCSV)
	v.SetDefault("data_dir", "data")
	v.SetDefault("twelve_data_api_key", "")
	v.SetDefault("twelve_data_base_url", "https://api.twelvedata.com")
	v.SetDefault("http_timeout", "10s")
	// Twelve Data free tier
	v.SetDefault("rate_limit_per_minute", 8)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", "0s")

	v.SetDefault("server_port", 8080)
	v.SetDefault("allowed_locations", []string{})
	v.SetDefault("cors_allowed_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// cleanList trims entries and drops empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
