package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "CODECLIMB"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "codeclimb.db"
	defaultLogLevel     = "info"

	defaultGitHubBaseURL     = "https://api.github.com"
	defaultLeetCodeBaseURL   = "https://leetcode.com"
	defaultHackerRankBaseURL = "https://www.hackerrank.com"

	defaultFetchTimeoutSeconds = 15
	defaultSyncIntervalMinutes = 24 * 60
	defaultRankIntervalMinutes = 60
)

// AppConfig captures runtime configuration for the API server and the
// background jobs.
type AppConfig struct {
	HTTPAddress  string
	DatabasePath string
	LogLevel     string

	GitHubToken       string
	GitHubBaseURL     string
	LeetCodeBaseURL   string
	HackerRankBaseURL string

	FetchTimeout     time.Duration
	SyncInterval     time.Duration
	RankInterval     time.Duration
	SchedulerEnabled bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)

	configViper.SetDefault("github.token", "")
	configViper.SetDefault("github.base_url", defaultGitHubBaseURL)
	configViper.SetDefault("leetcode.base_url", defaultLeetCodeBaseURL)
	configViper.SetDefault("hackerrank.base_url", defaultHackerRankBaseURL)

	configViper.SetDefault("fetch.timeout_seconds", defaultFetchTimeoutSeconds)
	configViper.SetDefault("sync.interval_minutes", defaultSyncIntervalMinutes)
	configViper.SetDefault("rank.interval_minutes", defaultRankIntervalMinutes)
	configViper.SetDefault("scheduler.enabled", true)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:  configViper.GetString("http.address"),
		DatabasePath: configViper.GetString("database.path"),
		LogLevel:     configViper.GetString("log.level"),

		GitHubToken:       configViper.GetString("github.token"),
		GitHubBaseURL:     configViper.GetString("github.base_url"),
		LeetCodeBaseURL:   configViper.GetString("leetcode.base_url"),
		HackerRankBaseURL: configViper.GetString("hackerrank.base_url"),

		FetchTimeout:     time.Duration(configViper.GetInt("fetch.timeout_seconds")) * time.Second,
		SyncInterval:     time.Duration(configViper.GetInt("sync.interval_minutes")) * time.Minute,
		RankInterval:     time.Duration(configViper.GetInt("rank.interval_minutes")) * time.Minute,
		SchedulerEnabled: configViper.GetBool("scheduler.enabled"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync.interval_minutes must be positive")
	}
	if c.RankInterval <= 0 {
		return fmt.Errorf("rank.interval_minutes must be positive")
	}
	return nil
}
