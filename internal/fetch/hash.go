package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/afero"

	"github.com/shaftpkg/shaft-meta/internal/common/logger"
)

// ErrDownload is returned when an artifact cannot be downloaded
var ErrDownload = errors.New("download failed")

// Hasher computes checksums of remote artifacts.
// Each call downloads into its own temporary file, which is removed before
// returning. Results are never cached.
type Hasher struct {
	client *Client
	fs     afero.Fs
	dir    string
	log    *logger.Logger
}

// NewHasher creates a hasher storing downloads in dir on fs.
// An empty dir uses the system temporary directory.
func NewHasher(client *Client, fs afero.Fs, dir string) *Hasher {
	return &Hasher{
		client: client,
		fs:     fs,
		dir:    dir,
		log:    logger.Default(),
	}
}

// SetLogger replaces the logger used for download progress.
func (h *Hasher) SetLogger(log *logger.Logger) {
	h.log = log
}

// HashOf downloads rawURL and returns its SHA-256 digest as lowercase hex.
func (h *Hasher) HashOf(ctx context.Context, rawURL string) (string, error) {
	h.log.Debug("downloading %s", rawURL)

	resp, err := h.client.Get(ctx, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDownload, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: status %d", ErrDownload, rawURL, resp.StatusCode)
	}

	f, err := afero.TempFile(h.fs, h.dir, "shaft-meta-*-"+artifactName(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		f.Close()
		h.fs.Remove(f.Name())
	}()

	size, err := io.Copy(f, resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDownload, rawURL, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", f.Name(), err)
	}

	digest := hex.EncodeToString(sum.Sum(nil))
	h.log.Debug("hashed %s (%s): %s", rawURL, units.HumanSize(float64(size)), digest)
	return digest, nil
}

// artifactName derives a file name from the last path element of the URL
func artifactName(rawURL string) string {
	name := "artifact"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			name = base
		}
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
}
