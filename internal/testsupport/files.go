package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with size bytes of deterministic content, making
// parent directories as needed. A size <= 0 writes a single byte. Tests use
// this to stand in for downloaded or transcoded media artifacts.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	// A short repeating alphabet keeps the content recognizable in hexdumps
	// without being compressible down to nothing.
	pattern := []byte("clipsync")
	data := bytes.Repeat(pattern, int(size/int64(len(pattern)))+1)[:size]
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
