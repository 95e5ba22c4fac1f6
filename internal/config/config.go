package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Questrade Questrade `mapstructure:"questrade"`
	Storage   Storage   `mapstructure:"storage"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Questrade holds the configuration for the Questrade API.
type Questrade struct {
	RefreshToken   string  `mapstructure:"refresh_token"`
	AccountID      string  `mapstructure:"account_id"`
	LoginURL       string  `mapstructure:"login_url"`
	TokenFile      string  `mapstructure:"token_file"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Storage holds the paths of the local snapshot files.
type Storage struct {
	SymbolCache    string `mapstructure:"symbol_cache"`
	OrdersFile     string `mapstructure:"orders_file"`
	ExecutionsFile string `mapstructure:"executions_file"`
	ExportFile     string `mapstructure:"export_file"`
}

// Server holds the configuration for the journal web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the journal database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config.yml is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	// Best effort, real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	for _, p := range []*string{
		&config.Questrade.TokenFile,
		&config.Storage.SymbolCache,
		&config.Storage.OrdersFile,
		&config.Storage.ExecutionsFile,
		&config.Storage.ExportFile,
		&config.Logger.File,
		&config.Database.DSN,
	} {
		if *p, err = ExpandHome(*p); err != nil {
			return
		}
	}
	return
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv can override it on Unmarshal.
	v.SetDefault("questrade.refresh_token", "")
	v.SetDefault("questrade.account_id", "")
	v.SetDefault("questrade.login_url", "https://login.questrade.com")
	v.SetDefault("questrade.token_file", "~/.questrade.json")
	v.SetDefault("questrade.rate_limit", 0) // 0 means unlimited
	v.SetDefault("questrade.rate_limit_burst", 1)

	v.SetDefault("storage.symbol_cache", "~/.questrade_syms.json")
	v.SetDefault("storage.orders_file", "orders.json")
	v.SetDefault("storage.executions_file", "executions.json")
	v.SetDefault("storage.export_file", "orders.csv")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 10) // megabytes
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28) // days

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "journal.db")
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
