package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"github.com/shaftpkg/shaft-meta/internal/common/logger"
)

func newTestHasher(server *httptest.Server, fs afero.Fs) *Hasher {
	h := NewHasher(newTestClient(server, 0), fs, "/tmp")
	h.SetLogger(logger.New(io.Discard, logger.LevelDebug))
	return h
}

// assertNoTempFiles fails if any download is left behind in /tmp
func assertNoTempFiles(t *testing.T, fs afero.Fs) {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/tmp")
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		t.Errorf("Temporary file left behind: %s", e.Name())
	}
}

func TestHashOf(t *testing.T) {
	payload := []byte("installer bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	digest, err := newTestHasher(server, fs).HashOf(context.Background(), server.URL+"/releases/fzf-0.56.3-windows_amd64.zip")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sum := sha256.Sum256(payload)
	if digest != hex.EncodeToString(sum[:]) {
		t.Errorf("Unexpected digest %s", digest)
	}
	assertNoTempFiles(t, fs)
}

func TestHashOfRedownloads(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("same"))
	}))
	defer server.Close()

	h := newTestHasher(server, afero.NewMemMapFs())
	for i := 0; i < 2; i++ {
		if _, err := h.HashOf(context.Background(), server.URL+"/a.zip"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if requests != 2 {
		t.Errorf("Expected every call to download, got %d requests", requests)
	}
}

func TestHashOfDownloadErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	h := newTestHasher(server, fs)

	if _, err := h.HashOf(context.Background(), server.URL+"/missing.zip"); !errors.Is(err, ErrDownload) {
		t.Errorf("Expected ErrDownload for 404, got %v", err)
	}
	if _, err := h.HashOf(context.Background(), "http://127.0.0.1:1/unreachable.zip"); !errors.Is(err, ErrDownload) {
		t.Errorf("Expected ErrDownload for transport failure, got %v", err)
	}
	assertNoTempFiles(t, fs)
}

func TestArtifactName(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://example.com/dl/jq-windows-amd64.exe", "jq-windows-amd64.exe"},
		{"https://example.com/", "artifact"},
		{"https://example.com/a/b*c.zip?x=1", "b_c.zip"},
	}

	for _, tt := range tests {
		if got := artifactName(tt.url); got != tt.expected {
			t.Errorf("artifactName(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}
