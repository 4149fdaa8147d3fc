package testsupport

import (
	"path/filepath"
	"testing"

	"autopost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Delays are zeroed so posting loops run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SourceDir = filepath.Join(base, "works")
	cfgVal.Paths.GroupedDir = filepath.Join(base, "grouped")
	cfgVal.Posting.PostDelaySeconds = 0
	cfgVal.Posting.MediaDelayMillis = 0
	cfgVal.Mail.SendDelaySeconds = 0
	cfgVal.Instagram.ContainerPollSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithInstagram fills Instagram credentials and points the Graph API at baseURL.
func WithInstagram(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Instagram.AccessToken = "test-token"
		b.cfg.Instagram.AppID = "app"
		b.cfg.Instagram.AppSecret = "secret"
		if baseURL != "" {
			b.cfg.Instagram.GraphBaseURL = baseURL
		}
	}
}

// WithX fills X OAuth credentials and points both API hosts at baseURL.
func WithX(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.X.APIKey = "key"
		b.cfg.X.APIKeySecret = "key-secret"
		b.cfg.X.AccessToken = "token"
		b.cfg.X.AccessTokenSecret = "token-secret"
		if baseURL != "" {
			b.cfg.X.APIBaseURL = baseURL
			b.cfg.X.UploadBaseURL = baseURL
		}
	}
}

// WithR2 fills R2 credentials against a custom endpoint.
func WithR2(endpoint, publicURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.R2.AccessKeyID = "access"
		b.cfg.R2.SecretAccessKey = "secret"
		b.cfg.R2.Endpoint = endpoint
		b.cfg.R2.PublicURL = publicURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
