package storage_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spec-kit/maintenance-service/internal/storage"
)

func TestSaveDeduplicatesByContent(t *testing.T) {
	dir := t.TempDir()
	u, err := storage.NewUploads(dir)
	if err != nil {
		t.Fatal(err)
	}

	first, err := u.Save(strings.NewReader("pixels"), "Before.JPG")
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^/uploads/[0-9a-f]{32}\.jpg$`).MatchString(first) {
		t.Fatalf("path = %s", first)
	}
	second, err := u.Save(strings.NewReader("pixels"), "copy.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same content stored twice: %s vs %s", first, second)
	}
	other, _ := u.Save(strings.NewReader("other"), "x.jpg")
	if other == first {
		t.Error("different content shares a name")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("dir has %d entries, want 2", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(first, "/uploads/")))
	if err != nil || string(data) != "pixels" {
		t.Errorf("stored content = %q, %v", data, err)
	}
}
