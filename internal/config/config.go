package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	SourceDir  string `toml:"source_dir"`
	GroupedDir string `toml:"grouped_dir"`
}

// Instagram contains Graph API credentials for the business account.
type Instagram struct {
	AppID             string `toml:"app_id"`
	AppSecret         string `toml:"app_secret"`
	AccessToken       string `toml:"access_token"`
	BusinessAccountID string `toml:"business_account_id"`
	GraphBaseURL      string `toml:"graph_base_url"`
	APIVersion        string `toml:"api_version"`
	RequestTimeout    int    `toml:"request_timeout"`
	// ContainerPollSeconds is the delay between media container status checks.
	ContainerPollSeconds int `toml:"container_poll_seconds"`
	// ContainerPollAttempts bounds how long publishing waits for a container.
	ContainerPollAttempts int `toml:"container_poll_attempts"`
}

// X contains OAuth 1.0a user-context credentials for X (Twitter).
type X struct {
	APIKey            string `toml:"api_key"`
	APIKeySecret      string `toml:"api_key_secret"`
	AccessToken       string `toml:"access_token"`
	AccessTokenSecret string `toml:"access_token_secret"`
	APIBaseURL        string `toml:"api_base_url"`
	UploadBaseURL     string `toml:"upload_base_url"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// R2 contains Cloudflare R2 (S3-compatible) storage configuration.
type R2 struct {
	AccountID       string `toml:"account_id"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Bucket          string `toml:"bucket"`
	// Endpoint overrides the account-derived endpoint (MinIO, tests).
	Endpoint       string `toml:"endpoint"`
	PublicURL      string `toml:"public_url"`
	PresignMinutes int    `toml:"presign_minutes"`
}

// Grouping contains photo grouping settings.
type Grouping struct {
	ThresholdMinutes int `toml:"threshold_minutes"`
}

// Posting contains caption defaults and pacing between platform calls.
type Posting struct {
	DefaultTags      string `toml:"default_tags"`
	PostDelaySeconds int    `toml:"post_delay_seconds"`
	MediaDelayMillis int    `toml:"media_delay_millis"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Posts          bool   `toml:"posts"`
	Runs           bool   `toml:"runs"`
	Errors         bool   `toml:"errors"`
}

// Mail contains SMTP settings for student notification mails.
type Mail struct {
	SMTPHost         string `toml:"smtp_host"`
	SMTPPort         int    `toml:"smtp_port"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	From             string `toml:"from"`
	Subject          string `toml:"subject"`
	SendDelaySeconds int    `toml:"send_delay_seconds"`
}

// Gallery contains gallery export settings.
type Gallery struct {
	ThumbWidth int `toml:"thumb_width"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autopost.
//
// Configuration sections by subsystem:
//   - Paths: data, log, photo source and grouping output directories
//   - Instagram: Graph API credentials and container polling
//   - X: OAuth 1.0a credentials
//   - R2: temporary image hosting, token and gallery storage
//   - Grouping: capture-time threshold for photo grouping
//   - Posting: default tags and pacing
//   - Notifications: ntfy operator alerts
//   - Mail: SMTP delivery of student notifications
//   - Gallery: thumbnail sizing
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Instagram     Instagram     `toml:"instagram"`
	X             X             `toml:"x"`
	R2            R2            `toml:"r2"`
	Grouping      Grouping      `toml:"grouping"`
	Posting       Posting       `toml:"posting"`
	Notifications Notifications `toml:"notifications"`
	Mail          Mail          `toml:"mail"`
	Gallery       Gallery       `toml:"gallery"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autopost.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads a .env file next to the configuration file into the
// process environment so credentials can live outside the TOML file.
// Variables already present in the environment are left untouched.
func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("load env file %s: %w", envPath, err)
	}
	return nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the post table database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "posts.db")
}

// LockPath returns the lock file guarding concurrent posting runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "autopost.lock")
}

// GroupingThreshold converts the configured minutes into a duration.
func (c *Config) GroupingThreshold() time.Duration {
	return time.Duration(c.Grouping.ThresholdMinutes) * time.Minute
}

// PostDelay is the pause between processed post rows.
func (c *Config) PostDelay() time.Duration {
	return time.Duration(c.Posting.PostDelaySeconds) * time.Second
}

// MediaDelay is the pause between consecutive media uploads to X.
func (c *Config) MediaDelay() time.Duration {
	return time.Duration(c.Posting.MediaDelayMillis) * time.Millisecond
}

// R2Endpoint returns the S3 endpoint for the configured account.
func (c *Config) R2Endpoint() string {
	if c.R2.Endpoint != "" {
		return c.R2.Endpoint
	}
	if c.R2.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
