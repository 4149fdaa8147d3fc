package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable. Platform credentials are
// checked separately by the Require* helpers.
func (c *Config) Validate() error {
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validatePosting(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if c.Gallery.ThumbWidth <= 0 {
		return errors.New("gallery.thumb_width must be positive")
	}
	return nil
}

func (c *Config) validateGrouping() error {
	if c.Grouping.ThresholdMinutes <= 0 {
		return errors.New("grouping.threshold_minutes must be positive")
	}
	return nil
}

func (c *Config) validatePosting() error {
	if c.Posting.PostDelaySeconds < 0 {
		return errors.New("posting.post_delay_seconds must be >= 0")
	}
	if c.Posting.MediaDelayMillis < 0 {
		return errors.New("posting.media_delay_millis must be >= 0")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	values := map[string]int{
		"instagram.request_timeout":     c.Instagram.RequestTimeout,
		"x.request_timeout":             c.X.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.Instagram.ContainerPollSeconds < 0 {
		return errors.New("instagram.container_poll_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.SMTPPort <= 0 || c.Mail.SMTPPort > 65535 {
		return errors.New("mail.smtp_port must be between 1 and 65535")
	}
	if c.Mail.SendDelaySeconds < 0 {
		return errors.New("mail.send_delay_seconds must be >= 0")
	}
	return nil
}

// RequireInstagram reports missing Instagram Graph API credentials.
func (c *Config) RequireInstagram() error {
	return requireFields("instagram", map[string]string{
		"access_token (or INSTAGRAM_ACCESS_TOKEN)": c.Instagram.AccessToken,
		"business_account_id":                      c.Instagram.BusinessAccountID,
	})
}

// RequireInstagramApp reports missing app credentials needed for token refresh.
func (c *Config) RequireInstagramApp() error {
	return requireFields("instagram", map[string]string{
		"app_id (or INSTAGRAM_APP_ID)":         c.Instagram.AppID,
		"app_secret (or INSTAGRAM_APP_SECRET)": c.Instagram.AppSecret,
	})
}

// RequireX reports missing X OAuth credentials.
func (c *Config) RequireX() error {
	return requireFields("x", map[string]string{
		"api_key (or X_API_KEY)":                         c.X.APIKey,
		"api_key_secret (or X_API_KEY_SECRET)":           c.X.APIKeySecret,
		"access_token (or X_ACCESS_TOKEN)":               c.X.AccessToken,
		"access_token_secret (or X_ACCESS_TOKEN_SECRET)": c.X.AccessTokenSecret,
	})
}

// RequireR2 reports missing R2 storage settings.
func (c *Config) RequireR2() error {
	if err := requireFields("r2", map[string]string{
		"access_key_id (or R2_ACCESS_KEY_ID)":         c.R2.AccessKeyID,
		"secret_access_key (or R2_SECRET_ACCESS_KEY)": c.R2.SecretAccessKey,
		"bucket":                                      c.R2.Bucket,
	}); err != nil {
		return err
	}
	if c.R2Endpoint() == "" {
		return errors.New("r2.account_id (or R2_ACCOUNT_ID) or r2.endpoint must be set")
	}
	return nil
}

// RequireMail reports missing SMTP settings.
func (c *Config) RequireMail() error {
	return requireFields("mail", map[string]string{
		"smtp_host (or SMTP_HOST)":     c.Mail.SMTPHost,
		"from (or NOTIFICATION_EMAIL)": c.Mail.From,
	})
}

func requireFields(section string, fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, section+"."+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
}
