package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInstagram()
	c.normalizeX()
	c.normalizeR2()
	c.normalizePosting()
	c.normalizeNotifications()
	c.normalizeMail()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SourceDir, err = expandPath(strings.TrimSpace(c.Paths.SourceDir)); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.GroupedDir, err = expandPath(strings.TrimSpace(c.Paths.GroupedDir)); err != nil {
		return fmt.Errorf("paths.grouped_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInstagram() {
	envFallback(&c.Instagram.AppID, "INSTAGRAM_APP_ID")
	envFallback(&c.Instagram.AppSecret, "INSTAGRAM_APP_SECRET")
	envFallback(&c.Instagram.AccessToken, "INSTAGRAM_ACCESS_TOKEN")
	envFallback(&c.Instagram.BusinessAccountID, "INSTAGRAM_BUSINESS_ACCOUNT_ID")
	if c.Instagram.BusinessAccountID == "" {
		c.Instagram.BusinessAccountID = defaultBusinessAccountID
	}
	c.Instagram.GraphBaseURL = strings.TrimRight(strings.TrimSpace(c.Instagram.GraphBaseURL), "/")
	if c.Instagram.GraphBaseURL == "" {
		c.Instagram.GraphBaseURL = defaultGraphBaseURL
	}
	c.Instagram.APIVersion = strings.Trim(strings.TrimSpace(c.Instagram.APIVersion), "/")
	if c.Instagram.APIVersion == "" {
		c.Instagram.APIVersion = defaultGraphAPIVersion
	}
	if c.Instagram.ContainerPollAttempts <= 0 {
		c.Instagram.ContainerPollAttempts = defaultContainerPollAttempts
	}
}

func (c *Config) normalizeX() {
	envFallback(&c.X.APIKey, "X_API_KEY")
	envFallback(&c.X.APIKeySecret, "X_API_KEY_SECRET")
	envFallback(&c.X.AccessToken, "X_ACCESS_TOKEN")
	envFallback(&c.X.AccessTokenSecret, "X_ACCESS_TOKEN_SECRET")
	c.X.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.X.APIBaseURL), "/")
	if c.X.APIBaseURL == "" {
		c.X.APIBaseURL = defaultXAPIBaseURL
	}
	c.X.UploadBaseURL = strings.TrimRight(strings.TrimSpace(c.X.UploadBaseURL), "/")
	if c.X.UploadBaseURL == "" {
		c.X.UploadBaseURL = defaultXUploadBaseURL
	}
}

func (c *Config) normalizeR2() {
	envFallback(&c.R2.AccountID, "R2_ACCOUNT_ID")
	envFallback(&c.R2.AccessKeyID, "R2_ACCESS_KEY_ID")
	envFallback(&c.R2.SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	envFallback(&c.R2.Bucket, "R2_BUCKET_NAME")
	envFallback(&c.R2.PublicURL, "R2_PUBLIC_URL")
	if c.R2.Bucket == "" {
		c.R2.Bucket = defaultR2Bucket
	}
	c.R2.Endpoint = strings.TrimRight(strings.TrimSpace(c.R2.Endpoint), "/")
	c.R2.PublicURL = strings.TrimRight(c.R2.PublicURL, "/")
	if c.R2.PresignMinutes <= 0 {
		c.R2.PresignMinutes = defaultPresignMinutes
	}
}

func (c *Config) normalizePosting() {
	c.Posting.DefaultTags = strings.TrimSpace(c.Posting.DefaultTags)
	if c.Posting.DefaultTags == "" {
		if value, ok := os.LookupEnv("DEFAULT_TAGS"); ok && strings.TrimSpace(value) != "" {
			c.Posting.DefaultTags = strings.TrimSpace(value)
		} else {
			c.Posting.DefaultTags = defaultTags
		}
	}
}

func (c *Config) normalizeNotifications() {
	envFallback(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
}

func (c *Config) normalizeMail() {
	envFallback(&c.Mail.SMTPHost, "SMTP_HOST")
	envFallback(&c.Mail.Username, "SMTP_USERNAME")
	envFallback(&c.Mail.Password, "SMTP_PASSWORD")
	envFallback(&c.Mail.From, "NOTIFICATION_EMAIL")
	c.Mail.Subject = strings.TrimSpace(c.Mail.Subject)
	if c.Mail.Subject == "" {
		c.Mail.Subject = defaultMailSubject
	}
	if c.Mail.SMTPPort == 0 {
		c.Mail.SMTPPort = defaultSMTPPort
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envFallback trims *field and fills it from the environment when empty.
func envFallback(field *string, key string) {
	*field = strings.TrimSpace(*field)
	if *field != "" {
		return
	}
	if value, ok := os.LookupEnv(key); ok {
		*field = strings.TrimSpace(value)
	}
}
