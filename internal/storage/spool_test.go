package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpoolWriteAndCleanup(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	if err != nil {
		t.Fatalf("new spool: %v", err)
	}

	path, cleanup, err := s.Write("resume.pdf", strings.NewReader("dummy bytes"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Ext(path) != ".pdf" {
		t.Fatalf("expected .pdf extension on spool file, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read spool file: %v", err)
	}
	if string(data) != "dummy bytes" {
		t.Fatalf("spool content mismatch: %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected spool file removed, stat err = %v", err)
	}
	// A second cleanup call is harmless.
	cleanup()
}

func TestSpoolSanitizesFilename(t *testing.T) {
	s, err := NewSpool(t.TempDir())
	if err != nil {
		t.Fatalf("new spool: %v", err)
	}
	path, cleanup, err := s.Write("../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	defer cleanup()
	if strings.Contains(path, "..") {
		t.Fatalf("spool path must not contain traversal: %q", path)
	}
}
