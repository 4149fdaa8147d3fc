package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/notifications"
	"autopost/internal/poster"
	"autopost/internal/services/instagram"
	"autopost/internal/services/xapi"
	"autopost/internal/storage/r2"
	"autopost/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger once. A broken log file falls back
// to stdout only so a command never fails because of logging.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		}
		if logger == nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cfg, st)
}

func (c *commandContext) r2Client(ctx context.Context) (*r2.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return r2.New(ctx, cfg, r2.WithLogger(c.ensureLogger()))
}

func (c *commandContext) notifier() notifications.Service {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.NewNoop()
	}
	return notifications.NewService(cfg)
}

// tokenManager returns the Instagram token manager, persisting to R2 when R2
// is configured.
func (c *commandContext) tokenManager(ctx context.Context) (*instagram.TokenManager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	var tokenStore instagram.TokenStore
	if cfg.RequireR2() == nil {
		client, err := c.r2Client(ctx)
		if err != nil {
			return nil, err
		}
		tokenStore = client
	} else {
		logging.WarnWithContext(logger, "r2 not configured, instagram token is not persisted", "token_store_missing",
			logging.String(logging.FieldImpact, "refreshed tokens are lost after this run"))
	}
	return instagram.NewTokenManager(cfg, tokenStore, instagram.WithTokenLogger(logger)), nil
}

// buildPoster wires every platform that is configured. Missing platforms are
// logged and turn into per-row configuration errors.
func (c *commandContext) buildPoster(ctx context.Context, st poster.PostStore) (*poster.Poster, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()
	opts := []poster.Option{
		poster.WithLogger(logger),
		poster.WithNotifier(c.notifier()),
	}

	if cfg.RequireR2() == nil && cfg.RequireInstagram() == nil {
		host, err := c.r2Client(ctx)
		if err != nil {
			return nil, err
		}
		tokens := instagram.NewTokenManager(cfg, host, instagram.WithTokenLogger(logger))
		opts = append(opts,
			poster.WithImageHost(host),
			poster.WithInstagram(instagram.NewClient(cfg, tokens, instagram.WithLogger(logger))))
	} else {
		logging.WarnWithContext(logger, "instagram disabled", "instagram_not_configured",
			logging.String(logging.FieldErrorHint, "set instagram.access_token and the r2 credentials"),
			logging.String(logging.FieldImpact, "instagram posts will fail"))
	}

	if xClient, err := xapi.NewClient(cfg, xapi.WithLogger(logger)); err == nil {
		opts = append(opts, poster.WithX(xClient))
	} else {
		logging.WarnWithContext(logger, "x disabled", "x_not_configured",
			logging.Error(err),
			logging.String(logging.FieldImpact, "x posts will fail"))
	}

	return poster.New(cfg, st, opts...), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// parseDate reads a YYYY-MM-DD flag value in local time, defaulting to today.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	date, err := time.ParseInLocation(store.DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return date, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
