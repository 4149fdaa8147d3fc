package photos_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"autopost/internal/photos"
)

func TestNumericPrefix(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		ok     bool
	}{
		{"01_front.jpg", "01", true},
		{"2-side.jpg", "2", true},
		{"10 back.jpg", "10", true},
		{"０３＿full.jpg", "03", true},
		{"04　wide-space.jpg", "04", true},
		{"IMG_0001.jpg", "", false},
		{"123.jpg", "", false},
		{"12", "", false},
	}
	for _, tc := range cases {
		prefix, ok := photos.NumericPrefix(tc.name)
		if ok != tc.ok || prefix != tc.prefix {
			t.Fatalf("NumericPrefix(%q) = %q, %v; want %q, %v", tc.name, prefix, ok, tc.prefix, tc.ok)
		}
	}
}

func TestSortListingNumericPrefixes(t *testing.T) {
	now := time.Now()
	files := []photos.ListedFile{
		{Name: "10_c.jpg", Created: now},
		{Name: "2_b.jpg", Created: now.Add(time.Hour)},
		{Name: "01_a.jpg", Created: now.Add(2 * time.Hour)},
	}
	got := photos.SortListing(files)
	want := []string{"01_a.jpg", "2_b.jpg", "10_c.jpg"}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i].Name, want[i])
		}
	}
	if files[0].Name != "10_c.jpg" {
		t.Fatal("input must not be modified")
	}
}

func TestSortListingFallsBackToCreationTime(t *testing.T) {
	now := time.Now()
	files := []photos.ListedFile{
		{Name: "IMG_3.jpg", Created: now.Add(3 * time.Minute)},
		{Name: "IMG_1.jpg", Created: now.Add(1 * time.Minute)},
		{Name: "IMG_2.jpg", Created: now.Add(2 * time.Minute)},
	}
	got := photos.SortListing(files)
	for i, want := range []string{"IMG_1.jpg", "IMG_2.jpg", "IMG_3.jpg"} {
		if got[i].Name != want {
			t.Fatalf("position %d: got %s want %s", i, got[i].Name, want)
		}
	}
}

func TestSortListingMixedComparesByCreationTime(t *testing.T) {
	now := time.Now()
	files := []photos.ListedFile{
		{Name: "01_first.jpg", Created: now.Add(time.Hour)},
		{Name: "cover.jpg", Created: now},
	}
	got := photos.SortListing(files)
	if got[0].Name != "cover.jpg" {
		t.Fatalf("unprefixed pair should compare by creation time, got %s first", got[0].Name)
	}
}

func TestListFolderOrdersByPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10_z.jpg", "02_y.jpg", "01_x.png", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := photos.ListFolder(dir)
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 images, got %d", len(files))
	}
	for i, want := range []string{"01_x.png", "02_y.jpg", "10_z.jpg"} {
		if files[i].Name != want {
			t.Fatalf("position %d: got %s want %s", i, files[i].Name, want)
		}
	}
}

func TestChunk(t *testing.T) {
	files := make([]photos.ListedFile, 12)
	for i := range files {
		files[i] = photos.ListedFile{Name: string(rune('a' + i))}
	}
	cases := []struct {
		index, size, wantLen int
		wantFirst            string
	}{
		{1, 10, 10, "a"},
		{2, 10, 2, "k"},
		{0, 10, 10, "a"},
		{3, 10, 0, ""},
		{1, 0, 0, ""},
	}
	for _, tc := range cases {
		got := photos.Chunk(files, tc.index, tc.size)
		if len(got) != tc.wantLen {
			t.Fatalf("Chunk(%d, %d) len = %d, want %d", tc.index, tc.size, len(got), tc.wantLen)
		}
		if tc.wantLen > 0 && got[0].Name != tc.wantFirst {
			t.Fatalf("Chunk(%d, %d) first = %q, want %q", tc.index, tc.size, got[0].Name, tc.wantFirst)
		}
	}
}
