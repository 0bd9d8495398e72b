package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// qBittorrent (search service and download client)
	QBittorrentURL      string
	QBittorrentUsername string
	QBittorrentPassword string

	// Search protocol
	SearchPlugins     string
	SearchCategory    string
	SearchResultLimit int
	SearchSettleDelay time.Duration // Wait after starting a search job before polling
	SearchPollDelay   time.Duration
	SearchMaxPolls    int
	SearchStablePolls int // Identical non-zero totals in a row treated as done

	// TVmaze (catalog service)
	TVMazeURL string

	// Download
	DownloadPath     string // Storage volume checked by admission control, also the save path
	DownloadCategory string
	MinFreeBytes     uint64

	// Scheduling
	CheckInterval      time.Duration
	AutoCheck          bool
	SeasonRangeDelay   time.Duration // Pause between successful submissions in a season range
	SeasonRangeTimeout time.Duration
	GrabRetentionDays  int

	// Server
	ServerPort string

	// Paths
	BlacklistFile string // $CONFIG_DIR/blacklist.txt
	DatabaseFile  string // $CONFIG_DIR/tvarr.db

	// Logging / tracing
	LogLevel       string
	TracingEnabled bool
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	viper.SetDefault("SEARCH_PLUGINS", "all")
	viper.SetDefault("SEARCH_CATEGORY", "tv")
	viper.SetDefault("SEARCH_RESULT_LIMIT", 50)
	viper.SetDefault("SEARCH_SETTLE_SECONDS", 10)
	viper.SetDefault("SEARCH_POLL_SECONDS", 3)
	viper.SetDefault("SEARCH_MAX_POLLS", 10)
	viper.SetDefault("SEARCH_STABLE_POLLS", 3)
	viper.SetDefault("TVMAZE_URL", "https://api.tvmaze.com")
	viper.SetDefault("DOWNLOAD_PATH", "/downloads")
	viper.SetDefault("DOWNLOAD_CATEGORY", "tvarr")
	viper.SetDefault("MIN_FREE_GB", 5)
	viper.SetDefault("CHECK_INTERVAL", "2h")
	viper.SetDefault("AUTO_CHECK", true)
	viper.SetDefault("SEASON_RANGE_DELAY_SECONDS", 5)
	viper.SetDefault("SEASON_RANGE_TIMEOUT_MINUTES", 60)
	viper.SetDefault("GRAB_RETENTION_DAYS", 30)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_ENABLED", false)

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "tvarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		QBittorrentURL:      viper.GetString("QBITTORRENT_URL"),
		QBittorrentUsername: viper.GetString("QBITTORRENT_USERNAME"),
		QBittorrentPassword: viper.GetString("QBITTORRENT_PASSWORD"),

		SearchPlugins:     viper.GetString("SEARCH_PLUGINS"),
		SearchCategory:    viper.GetString("SEARCH_CATEGORY"),
		SearchResultLimit: viper.GetInt("SEARCH_RESULT_LIMIT"),
		SearchSettleDelay: time.Duration(viper.GetInt("SEARCH_SETTLE_SECONDS")) * time.Second,
		SearchPollDelay:   time.Duration(viper.GetInt("SEARCH_POLL_SECONDS")) * time.Second,
		SearchMaxPolls:    viper.GetInt("SEARCH_MAX_POLLS"),
		SearchStablePolls: viper.GetInt("SEARCH_STABLE_POLLS"),

		TVMazeURL: viper.GetString("TVMAZE_URL"),

		DownloadPath:     viper.GetString("DOWNLOAD_PATH"),
		DownloadCategory: viper.GetString("DOWNLOAD_CATEGORY"),
		MinFreeBytes:     uint64(viper.GetInt64("MIN_FREE_GB")) << 30,

		CheckInterval:      viper.GetDuration("CHECK_INTERVAL"),
		AutoCheck:          viper.GetBool("AUTO_CHECK"),
		SeasonRangeDelay:   time.Duration(viper.GetInt("SEASON_RANGE_DELAY_SECONDS")) * time.Second,
		SeasonRangeTimeout: time.Duration(viper.GetInt("SEASON_RANGE_TIMEOUT_MINUTES")) * time.Minute,
		GrabRetentionDays:  viper.GetInt("GRAB_RETENTION_DAYS"),

		ServerPort: viper.GetString("SERVER_PORT"),

		BlacklistFile: filepath.Join(configDir, "blacklist.txt"),
		DatabaseFile:  filepath.Join(configDir, "tvarr.db"),

		LogLevel:       viper.GetString("LOG_LEVEL"),
		TracingEnabled: viper.GetBool("TRACING_ENABLED"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.QBittorrentURL == "" {
		return fmt.Errorf("QBITTORRENT_URL is required")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be a positive duration")
	}
	if c.SearchMaxPolls < 1 {
		return fmt.Errorf("SEARCH_MAX_POLLS must be at least 1")
	}
	if c.SearchResultLimit < 1 {
		return fmt.Errorf("SEARCH_RESULT_LIMIT must be at least 1")
	}
	if c.SeasonRangeTimeout <= 0 {
		return fmt.Errorf("SEASON_RANGE_TIMEOUT_MINUTES must be positive")
	}
	return nil
}
