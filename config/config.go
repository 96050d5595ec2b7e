package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment
type Config struct {
	Port            int           `mapstructure:"tray_port"`
	OpenMeteoURL    string        `mapstructure:"open_meteo_url"`
	IPAPIURL        string        `mapstructure:"ip_api_url"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	RedisURL        string        `mapstructure:"redis_url"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	KafkaBrokers    []string      `mapstructure:"kafka_brokers"`
	KafkaTopic      string        `mapstructure:"kafka_topic"`
	SettingsPath    string        `mapstructure:"settings_path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LogLevel        string        `mapstructure:"log_level"`
	AppEnv          string        `mapstructure:"app_env"`
}

// Load reads .env (when present) and then the environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("tray_port", 8787)
	v.SetDefault("open_meteo_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("ip_api_url", "http://ip-api.com")
	v.SetDefault("http_timeout", 10*time.Second)
	// Open-Meteo asks for fewer than 600 calls a minute
	v.SetDefault("rate_limit_rps", 1.0)
	v.SetDefault("rate_limit_burst", 3)
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "weather-updates")
	v.SetDefault("settings_path", defaultSettingsPath())
	v.SetDefault("refresh_interval", time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("app_env", "development")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}
	if cfg.SettingsPath == "" {
		return fmt.Errorf("settings path cannot be empty")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return fmt.Errorf("kafka topic cannot be empty when brokers are set")
	}
	return nil
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(dir, "tray-weather", "settings.json")
}
