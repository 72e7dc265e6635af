package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "popcorn"
	envPrefix = "POPCORN"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Browser BrowserConfig `mapstructure:"browser"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds movie catalog API configuration
type ServerConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	WebURL       string        `mapstructure:"web_url"`  // movie pages opened in the browser
	Token        string        `mapstructure:"token"`    // v4 read access token
	APIKey       string        `mapstructure:"api_key"`  // v3 key, used when no token is set
	Language     string        `mapstructure:"language"` // e.g. "en-US"
	Timeout      time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir        string        `mapstructure:"dir"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	PageSize   int           `mapstructure:"page_size"`
}

// BrowserConfig holds the command used to open movie pages
type BrowserConfig struct {
	Command string   `mapstructure:"command"` // empty for the system default
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			WebURL:       "https://www.themoviedb.org",
			Language:     "en-US",
			Timeout:      30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:        defaultCachePath(),
			StaleAfter: time.Hour,
			PageSize:   20,
		},
		Browser: BrowserConfig{
			Args: []string{},
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName, appName+".log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, appName+".log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper(), defaultConfigPath(), ".")
}

// loadConfig reads config.yaml from the first dir that has one, then applies
// POPCORN_* environment overrides (e.g. POPCORN_SERVER_TOKEN).
func loadConfig(v *viper.Viper, dirs ...string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Cache.Dir = expandHome(cfg.Cache.Dir)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// missing from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range configValues(cfg) {
		v.SetDefault(key, value)
	}
}

// configValues flattens cfg into snake_case viper keys
func configValues(cfg *Config) map[string]any {
	return map[string]any{
		"server.base_url":       cfg.Server.BaseURL,
		"server.image_base_url": cfg.Server.ImageBaseURL,
		"server.web_url":        cfg.Server.WebURL,
		"server.token":          cfg.Server.Token,
		"server.api_key":        cfg.Server.APIKey,
		"server.language":       cfg.Server.Language,
		"server.timeout":        cfg.Server.Timeout.String(),

		"cache.dir":         cfg.Cache.Dir,
		"cache.stale_after": cfg.Cache.StaleAfter.String(),
		"cache.page_size":   cfg.Cache.PageSize,

		"browser.command": cfg.Browser.Command,
		"browser.args":    cfg.Browser.Args,

		"logging.file":  cfg.Logging.File,
		"logging.level": cfg.Logging.Level,
	}
}

// SaveConfig saves the configuration to the default config file
func SaveConfig(cfg *Config) error {
	return saveConfig(viper.GetViper(), defaultConfigPath(), cfg)
}

func saveConfig(v *viper.Viper, dir string, cfg *Config) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	for key, value := range configValues(cfg) {
		v.Set(key, value)
	}

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if API credentials are set
func (c *Config) IsConfigured() bool {
	return c.Server.Token != "" || c.Server.APIKey != ""
}

// ConfigPath returns the config directory path
func ConfigPath() string {
	return defaultConfigPath()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
