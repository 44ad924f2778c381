package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Spool writes uploaded documents to short-lived files under a base
// directory. Files exist only for the duration of one analysis request;
// the returned cleanup func must run on every exit path.
type Spool struct {
	basePath string
}

// NewSpool creates the base directory if missing.
func NewSpool(basePath string) (*Spool, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = os.TempDir()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{basePath: basePath}, nil
}

// Write stores the reader contents in a temp file that keeps the upload's
// extension (the extractors dispatch on it as a fallback). cleanup removes
// the file and is safe to call even when Write partially failed.
func (s *Spool) Write(filename string, r io.Reader) (string, func(), error) {
	ext := filepath.Ext(safeFilename(filename))
	tmp, err := os.CreateTemp(s.basePath, "resume-*"+ext)
	if err != nil {
		return "", func() {}, fmt.Errorf("create spool file: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close spool file: %w", err)
	}
	return path, cleanup, nil
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "resume"
	}
	return name
}
