package r2_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"autopost/internal/services"
	"autopost/internal/storage/r2"
	"autopost/internal/testsupport"
)

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	putErr   error
	deleted  []string
	headFail error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ct := ""
	if in.ContentType != nil {
		ct = *in.ContentType
	}
	f.objects[*in.Key] = fakeObject{data: data, contentType: ct}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headFail != nil {
		return nil, f.headFail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *in.Bucket + "/" + *in.Key}, nil
}

func newClient(api *fakeS3, presigner *fakePresigner) *r2.Client {
	fixed := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	return r2.NewWithAPI(api, presigner, "bucket", "https://cdn.example/", 30*time.Minute,
		r2.WithClock(func() time.Time { return fixed }),
		r2.WithIDGenerator(func() string { return "fixed-id" }),
	)
}

func TestUploadAndPresign(t *testing.T) {
	api := newFakeS3()
	presigner := &fakePresigner{}
	client := newClient(api, presigner)

	key, signed, err := client.UploadAndPresign(context.Background(), []byte("jpeg"), "01_Front.JPG", "image/jpeg")
	if err != nil {
		t.Fatalf("UploadAndPresign: %v", err)
	}
	if key != "temp/2024/03/09/fixed-id.jpg" {
		t.Fatalf("unexpected key %q", key)
	}
	if signed != "https://signed.example/bucket/"+key {
		t.Fatalf("unexpected url %q", signed)
	}
	if presigner.expires != 30*time.Minute {
		t.Fatalf("unexpected presign expiry %s", presigner.expires)
	}
	obj := api.objects[key]
	if string(obj.data) != "jpeg" || obj.contentType != "image/jpeg" {
		t.Fatalf("unexpected stored object: %#v", obj)
	}

	if err := client.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := api.objects[key]; ok {
		t.Fatal("object should be deleted")
	}
}

func TestUploadWrapsErrors(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("boom")
	client := newClient(api, &fakePresigner{})

	_, _, err := client.UploadAndPresign(context.Background(), []byte("x"), "a.png", "image/png")
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestJSONRoundTripAndMissing(t *testing.T) {
	api := newFakeS3()
	client := newClient(api, &fakePresigner{})
	ctx := context.Background()

	var missing map[string]string
	found, err := client.GetJSON(ctx, "config/none.json", &missing)
	if err != nil || found {
		t.Fatalf("expected missing object without error, got %v %v", found, err)
	}

	if err := client.PutJSON(ctx, "config/token.json", map[string]string{"access_token": "abc"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var got map[string]string
	found, err = client.GetJSON(ctx, "config/token.json", &got)
	if err != nil || !found || got["access_token"] != "abc" {
		t.Fatalf("unexpected json read: %v %v %v", got, found, err)
	}
	if api.objects["config/token.json"].contentType != "application/json" {
		t.Fatal("expected json content type")
	}

	api.objects["bad.json"] = fakeObject{data: []byte("{")}
	if _, err := client.GetJSON(ctx, "bad.json", &got); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExists(t *testing.T) {
	api := newFakeS3()
	client := newClient(api, &fakePresigner{})
	ctx := context.Background()

	ok, err := client.Exists(ctx, "thumbs/1.jpg")
	if err != nil || ok {
		t.Fatalf("expected absent, got %v %v", ok, err)
	}
	api.objects["thumbs/1.jpg"] = fakeObject{data: []byte("x")}
	ok, err = client.Exists(ctx, "thumbs/1.jpg")
	if err != nil || !ok {
		t.Fatalf("expected present, got %v %v", ok, err)
	}

	api.headFail = &smithy.GenericAPIError{Code: "AccessDenied"}
	if _, err := client.Exists(ctx, "thumbs/1.jpg"); err == nil {
		t.Fatal("expected error for access denied")
	}
}

func TestPublicURL(t *testing.T) {
	client := newClient(newFakeS3(), &fakePresigner{})
	if got := client.PublicURL("/thumbs/3.jpg"); got != "https://cdn.example/thumbs/3.jpg" {
		t.Fatalf("unexpected public url %q", got)
	}
	bare := r2.NewWithAPI(newFakeS3(), &fakePresigner{}, "bucket", "", 0)
	if got := bare.PublicURL("x"); got != "" {
		t.Fatalf("expected empty public url, got %q", got)
	}
}

func TestNewSignsAgainstConfiguredEndpoint(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	cfg := testsupport.NewConfig(t, testsupport.WithR2("http://127.0.0.1:9000", ""))

	client, err := r2.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	signed, err := client.PresignGet(context.Background(), "temp/a.jpg")
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if parsed.Host != "127.0.0.1:9000" {
		t.Fatalf("unexpected host %q", parsed.Host)
	}
	if !strings.HasPrefix(parsed.Path, "/"+cfg.R2.Bucket+"/temp/a.jpg") {
		t.Fatalf("expected path-style url, got %q", parsed.Path)
	}
	if parsed.Query().Get("X-Amz-Signature") == "" {
		t.Fatalf("expected signature in %q", signed)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := r2.New(context.Background(), cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
