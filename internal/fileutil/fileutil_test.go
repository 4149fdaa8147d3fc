package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Fatalf("expected mtime %s, got %s", stamp, info.ModTime())
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestIsImageAndContentType(t *testing.T) {
	cases := []struct {
		name string
		img  bool
		ct   string
	}{
		{"a.JPG", true, "image/jpeg"},
		{"b.png", true, "image/png"},
		{"c.heic", true, "image/heic"},
		{"d.json", false, "application/octet-stream"},
		{"noext", false, "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := IsImage(tc.name); got != tc.img {
			t.Fatalf("IsImage(%q) = %v", tc.name, got)
		}
		if got := ContentType(tc.name); got != tc.ct {
			t.Fatalf("ContentType(%q) = %q", tc.name, got)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"02_b.jpg", "01_a.png", "notes.txt", ".hidden.jpg", "meta.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListImages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 images, got %v", files)
	}
	if filepath.Base(files[0]) != "01_a.png" || filepath.Base(files[1]) != "02_b.jpg" {
		t.Fatalf("unexpected order: %v", files)
	}
}

func TestCreationTimeReturnsValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := CreationTime(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsZero() {
		t.Fatal("expected non-zero creation time")
	}
	if _, err := CreationTime(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
