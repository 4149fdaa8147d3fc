package r2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/services"
)

// TempPrefix holds images that only live for the duration of one publish.
const TempPrefix = "temp"

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner signs GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client uploads, signs and removes objects in one bucket.
type Client struct {
	api        ObjectAPI
	presigner  Presigner
	bucket     string
	publicURL  string
	presignTTL time.Duration
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.NewComponentLogger(logger, "r2") }
}

// WithClock overrides the time source used for temp key dates.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithIDGenerator overrides the random part of temp keys.
func WithIDGenerator(newID func() string) Option {
	return func(c *Client) { c.newID = newID }
}

// New builds a Client from configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.RequireR2(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "r2", "configure", "", err)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2.AccessKeyID,
			cfg.R2.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "r2", "load aws config", "", err)
	}
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint())
		o.UsePathStyle = true
	})
	return NewWithAPI(api, s3.NewPresignClient(api), cfg.R2.Bucket, cfg.R2.PublicURL,
		time.Duration(cfg.R2.PresignMinutes)*time.Minute, opts...), nil
}

// NewWithAPI builds a Client around explicit S3 collaborators.
func NewWithAPI(api ObjectAPI, presigner Presigner, bucket, publicURL string, presignTTL time.Duration, opts ...Option) *Client {
	c := &Client{
		api:        api,
		presigner:  presigner,
		bucket:     bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
		presignTTL: presignTTL,
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.presignTTL <= 0 {
		c.presignTTL = time.Hour
	}
	return c
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Upload stores data under key.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "r2", "put object", key, err)
	}
	c.logger.Debug("object uploaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// TempKey returns a unique temp/YYYY/MM/DD/<uuid><ext> key for filename.
func (c *Client) TempKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join(TempPrefix, c.now().Format("2006/01/02"), c.newID()+ext)
}

// UploadAndPresign uploads data to a temp key and returns the key with a
// presigned GET URL valid for the configured duration.
func (c *Client) UploadAndPresign(ctx context.Context, data []byte, filename, contentType string) (string, string, error) {
	key := c.TempKey(filename)
	if err := c.Upload(ctx, key, data, contentType); err != nil {
		return "", "", err
	}
	url, err := c.PresignGet(ctx, key)
	if err != nil {
		return key, "", err
	}
	return key, url, nil
}

// PresignGet returns a signed GET URL for key.
func (c *Client) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.presignTTL))
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "r2", "presign get", key, err)
	}
	return req.URL, nil
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return services.Wrap(services.ErrExternalService, "r2", "delete object", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, services.Wrap(services.ErrExternalService, "r2", "head object", key, err)
}

// GetJSON decodes the object at key into v. A missing object returns false
// without error.
func (c *Client) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, services.Wrap(services.ErrExternalService, "r2", "get object", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "r2", "read object", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, services.Wrap(services.ErrValidation, "r2", "decode json", key, err)
	}
	return true, nil
}

// PutJSON stores v as indented JSON under key.
func (c *Client) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Upload(ctx, key, data, "application/json")
}

// PublicURL returns the public address of key, or "" without a public URL.
func (c *Client) PublicURL(key string) string {
	if c.publicURL == "" {
		return ""
	}
	return c.publicURL + "/" + strings.TrimLeft(key, "/")
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}
