package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env            string   `mapstructure:"env"`             // current application environment (local, dev, prod etc)
	Port           string   `mapstructure:"port"`            // HTTP listen port
	DataDir        string   `mapstructure:"data_dir"`        // directory holding modules.json and per-module bank files
	BankBaseURL    string   `mapstructure:"bank_base_url"`   // upstream static host for banks; empty means serve from data_dir
	AllowedOrigins []string `mapstructure:"allowed_origins"` // CORS allow-list for the browser frontend
	DatabaseURL    string   `mapstructure:"-"`               // Postgres connection string; empty selects the in-memory session store
	SessionSecret  string   `mapstructure:"-"`               // HMAC key for session cookies, loaded from environment
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("env", "local")
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("data_dir", "DATA_DIR")
	_ = v.BindEnv("bank_base_url", "BANK_BASE_URL")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("session_secret", "SESSION_SECRET")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.DatabaseURL = v.GetString("database_url")
	cfg.SessionSecret = v.GetString("session_secret")

	return &cfg, nil
}
