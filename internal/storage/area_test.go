package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "uploads")

	area, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(area.Root()); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	if !filepath.IsAbs(area.Root()) {
		t.Errorf("Root() = %s, want absolute", area.Root())
	}
}

func TestNewRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(file); err == nil {
		t.Error("expected error when root is a regular file")
	}
}

func TestSaveUpload(t *testing.T) {
	area := newTestArea(t)
	payload := make([]byte, 64*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}

	saved, err := area.SaveUpload("vid1", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}

	if saved.Path != area.UploadPath("vid1") {
		t.Errorf("Path = %s, want %s", saved.Path, area.UploadPath("vid1"))
	}
	if saved.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", saved.Size, len(payload))
	}
	sum := blake2b.Sum256(payload)
	if saved.Digest != hex.EncodeToString(sum[:]) {
		t.Errorf("Digest = %s, want %s", saved.Digest, hex.EncodeToString(sum[:]))
	}

	got, err := os.ReadFile(saved.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Error("stored bytes differ from upload")
	}
}

func TestSaveUploadFailureLeavesNothing(t *testing.T) {
	area := newTestArea(t)

	_, err := area.SaveUpload("vid2", io.MultiReader(strings.NewReader("partial"), failingReader{}))
	if err == nil {
		t.Fatal("expected error from failing reader")
	}

	entries, err := os.ReadDir(area.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("storage area should be empty after failed upload, found %v", names)
	}
}

func TestExists(t *testing.T) {
	area := newTestArea(t)
	path := area.UploadPath("present")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !area.Exists(path) {
		t.Error("Exists() = false for present file")
	}
	if area.Exists(area.UploadPath("absent")) {
		t.Error("Exists() = true for absent file")
	}
}

func TestMissing(t *testing.T) {
	area := newTestArea(t)
	for _, name := range []string{"a.mp4", "c.mp4"} {
		if err := os.WriteFile(filepath.Join(area.Root(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	missing, err := area.Missing([]string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"})
	if err != nil {
		t.Fatalf("Missing() error = %v", err)
	}
	if strings.Join(missing, ",") != "b.mp4,d.mp4" {
		t.Errorf("Missing() = %v, want [b.mp4 d.mp4]", missing)
	}

	var pathErr *PathError
	if _, err := area.Missing([]string{"a.mp4", "../../etc/passwd"}); !errors.As(err, &pathErr) {
		t.Errorf("Missing with traversal error = %v, want *PathError", err)
	}
}

func TestRemove(t *testing.T) {
	area := newTestArea(t)
	path := area.OutputPath("gone")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := area.Remove(filepath.Base(path)); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after Remove")
	}

	if err := area.Remove(filepath.Base(path)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove() error = %v, want not-exist", err)
	}

	var pathErr *PathError
	if err := area.Remove("../escape.mp4"); !errors.As(err, &pathErr) {
		t.Errorf("Remove with traversal error = %v, want *PathError", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		kind string
	}{
		{"abc.mp4", "upload"},
		{"abc.srt", "caption"},
		{"output_abc.mp4", "output"},
		{"combined_job.mp4", "combined"},
		{"concat_job.txt", "manifest"},
		{"poster_output_abc.jpg", "poster"},
		{".upload-123", "other"},
		{"notes.txt", "other"},
	}

	for _, tt := range tests {
		if got := Classify(tt.name); got != tt.kind {
			t.Errorf("Classify(%q) = %q, want %q", tt.name, got, tt.kind)
		}
	}
}

func TestGetStats(t *testing.T) {
	area := newTestArea(t)
	files := map[string]string{
		"a.mp4":          "1234",
		"a.srt":          "12",
		"output_a.mp4":   "123456",
		"concat_j.txt":   "1",
		"combined_j.mp4": "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(area.Root(), name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(area.Root(), "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	stats, err := area.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalBytes != 13 {
		t.Errorf("TotalBytes = %d, want 13", stats.TotalBytes)
	}
	for kind, want := range map[string]int{"upload": 1, "caption": 1, "output": 1, "manifest": 1, "combined": 1} {
		if stats.Files[kind] != want {
			t.Errorf("Files[%s] = %d, want %d", kind, stats.Files[kind], want)
		}
	}
}
