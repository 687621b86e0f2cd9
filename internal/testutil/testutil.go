// Package testutil provides shared test helpers for building vault fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFiles writes each relative path → content pair under dir, creating
// parent directories as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TempVault creates a temporary vault directory populated with files.
func TempVault(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// TempDBPath returns a path for a throwaway SQLite file that is removed
// when the test ends.
func TempDBPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "obvault-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}
