package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chrome instance the driver controls.
type BrowserConfig struct {
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// UserDataDir is the root for browser state; profiles (cookies, login
	// sessions) live under it. Empty means ~/.playpi.
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	// Profile names the sub-profile whose cookies carry authentication.
	Profile           string        `mapstructure:"profile" yaml:"profile"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ProviderConfig tunes the chat UI interaction heuristics. The values mirror
// the empirically stable timings of the target UI; they are configuration,
// not contract.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`

	// AuthDeadlineCap bounds the login wait independently of the overall
	// request budget.
	AuthDeadlineCap  time.Duration `mapstructure:"auth_deadline_cap" yaml:"auth_deadline_cap"`
	AuthPollInterval time.Duration `mapstructure:"auth_poll_interval" yaml:"auth_poll_interval"`

	// CandidateTimeout is the per-candidate visibility wait during selector
	// resolution.
	CandidateTimeout time.Duration `mapstructure:"candidate_timeout" yaml:"candidate_timeout"`
	// MenuSettle is the pause after opening the tools menu or toggling a mode.
	MenuSettle time.Duration `mapstructure:"menu_settle" yaml:"menu_settle"`
	// ConfirmationWait bounds the optional confirm-parameters dialog wait.
	ConfirmationWait time.Duration `mapstructure:"confirmation_wait" yaml:"confirmation_wait"`

	// Completion detection.
	DeepPollInterval time.Duration `mapstructure:"deep_poll_interval" yaml:"deep_poll_interval"`
	AskPollInterval  time.Duration `mapstructure:"ask_poll_interval" yaml:"ask_poll_interval"`
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval"`
	StabilityRecheck time.Duration `mapstructure:"stability_recheck" yaml:"stability_recheck"`
	MinStableChars   int           `mapstructure:"min_stable_chars" yaml:"min_stable_chars"`
	// ResearchMinContentLength is the page-size oracle for deep research when
	// every indicator selector has rotted.
	ResearchMinContentLength int `mapstructure:"research_min_content_length" yaml:"research_min_content_length"`
	// RenderGrace is the pause after completion before extraction so the last
	// tokens finish rendering.
	RenderGrace time.Duration `mapstructure:"render_grace" yaml:"render_grace"`

	// DownloadSettle is how long image downloads are given to land on disk.
	DownloadSettle time.Duration `mapstructure:"download_settle" yaml:"download_settle"`

	// MaxConcurrent caps simultaneous in-flight requests in batch mode.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "playpi")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.args", platformBrowserArgs())
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.profile", "default")
	v.SetDefault("browser.concurrency", 3)
	v.SetDefault("browser.navigation_timeout", "30s")

	// -- Provider --
	v.SetDefault("provider.base_url", "https://gemini.google.com/app")
	v.SetDefault("provider.default_timeout", "600s")
	v.SetDefault("provider.auth_deadline_cap", "60s")
	v.SetDefault("provider.auth_poll_interval", "1s")
	v.SetDefault("provider.candidate_timeout", "5s")
	v.SetDefault("provider.menu_settle", "2s")
	v.SetDefault("provider.confirmation_wait", "20s")
	v.SetDefault("provider.deep_poll_interval", "5s")
	v.SetDefault("provider.ask_poll_interval", "500ms")
	v.SetDefault("provider.progress_interval", "30s")
	v.SetDefault("provider.stability_recheck", "2s")
	v.SetDefault("provider.min_stable_chars", 50)
	v.SetDefault("provider.research_min_content_length", 50000)
	v.SetDefault("provider.render_grace", "5s")
	v.SetDefault("provider.download_settle", "5s")
	v.SetDefault("provider.max_concurrent", 3)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.Provider.MaxConcurrent <= 0 {
		return fmt.Errorf("provider.max_concurrent must be a positive integer")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.DefaultTimeout <= 0 {
		return fmt.Errorf("provider.default_timeout must be positive")
	}
	if c.Provider.MinStableChars <= 0 || c.Provider.ResearchMinContentLength <= 0 {
		return fmt.Errorf("provider content thresholds must be positive")
	}
	return nil
}

// UserDataDir resolves the browser state root, defaulting to ~/.playpi.
func (c *Config) UserDataDir() (string, error) {
	if c.Browser.UserDataDir != "" {
		return c.Browser.UserDataDir, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".playpi"), nil
}

// WithProfile returns a copy of the config with the browser profile
// replaced. An empty name keeps the configured profile.
func (c *Config) WithProfile(profile string) *Config {
	out := *c
	if profile != "" {
		out.Browser.Profile = profile
	}
	return &out
}

// ProfileDir resolves the directory of the named browser profile.
func (c *Config) ProfileDir(profile string) (string, error) {
	if profile == "" {
		profile = c.Browser.Profile
	}
	root, err := c.UserDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "profiles", profile), nil
}

// platformBrowserArgs returns Chrome flags appropriate for the host OS.
func platformBrowserArgs() []string {
	args := []string{
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-features=TranslateUI",
		"--disable-ipc-flooding-protection",
	}
	switch runtime.GOOS {
	case "darwin":
		args = append(args, "--disable-gpu-sandbox", "--disable-software-rasterizer")
	case "windows":
		args = append(args, "--disable-gpu", "--window-size=1920,1080")
	default:
		args = append(args, "--disable-gpu", "--disable-dev-shm-usage", "--no-sandbox")
	}
	return args
}
