package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

// newGitHubServer serves a fake GitHub API and raw file host for jqlang/jq
// and junegunn/fzf
func newGitHubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/repos/junegunn/fzf/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"tag_name": "v0.56.3",
			"assets": []map[string]interface{}{
				{"name": "fzf-0.56.3-windows_amd64.zip", "browser_download_url": "https://dl/fzf-amd64.zip", "size": 1024},
				{"name": "fzf-0.56.3-linux_amd64.tar.gz", "browser_download_url": "https://dl/fzf-linux.tgz"},
			},
		})
	})
	mux.HandleFunc("/repos/jqlang/jq/tags", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{
			{"name": "jq-1.7rc2"}, {"name": "jq-1.7.1"}, {"name": "jq-1.6"}, {"name": "nightly"},
		})
	})
	mux.HandleFunc("/repos/jqlang/jq/releases/tags/jq-1.7.1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"tag_name": "jq-1.7.1",
			"assets":   []map[string]string{{"name": "jq-windows-amd64.exe", "browser_download_url": "https://dl/jq.exe"}},
		})
	})
	mux.HandleFunc("/repos/Pistonite/shellutils/branches/main", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeJSON(w, map[string]interface{}{
			"name":   "main",
			"commit": map[string]string{"sha": strings.Repeat("ab", 20)},
		})
	})
	mux.HandleFunc("/raw/Pistonite/shellutils/"+strings.Repeat("ab", 20)+"/viopen/Cargo.toml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[package]\nname = \"viopen\"\nversion = \"0.3.1\"\n"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestGitHub(server *httptest.Server, token string) *GitHub {
	gh := NewGitHub(newTestClient(server, 0), token)
	gh.APIBase = server.URL
	gh.RawBase = server.URL + "/raw"
	return gh
}

func TestLatestRelease(t *testing.T) {
	gh := newTestGitHub(newGitHubServer(t), "")

	rel, err := gh.LatestRelease(context.Background(), "junegunn/fzf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rel.Version() != "0.56.3" || rel.Repo != "junegunn/fzf" {
		t.Errorf("Unexpected release %+v", rel)
	}

	asset, err := rel.Asset("fzf-0.56.3-windows_amd64.zip")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if asset.URL != "https://dl/fzf-amd64.zip" || asset.Size != 1024 {
		t.Errorf("Unexpected asset %+v", asset)
	}

	if _, err := rel.Asset("fzf-0.56.3-windows_arm64.zip"); !errors.Is(err, ErrMissingAsset) {
		t.Errorf("Expected ErrMissingAsset, got %v", err)
	}
	if names := rel.AssetNames(); len(names) != 2 {
		t.Errorf("Expected 2 asset names, got %v", names)
	}
}

func TestReleaseWithTagPattern(t *testing.T) {
	gh := newTestGitHub(newGitHubServer(t), "")

	facts, err := gh.Release(context.Background(), ReleaseQuery{
		Repo: "jqlang/jq",
		Tags: TagPattern(`^jq-(\d+\.\d+(?:\.\d+)?(?:rc\d+)?)$`),
		Map: func(_ context.Context, r *Release) (*manifest.Facts, error) {
			asset, err := r.Asset("jq-windows-amd64.exe")
			if err != nil {
				return nil, err
			}
			return manifest.FactsOf("VERSION", strings.TrimPrefix(r.Tag, "jq-"), "URL", asset.URL), nil
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if v, _ := facts.Get("VERSION"); v != "1.7.1" {
		t.Errorf("Expected VERSION 1.7.1, got %q", v)
	}
	if u, _ := facts.Get("URL"); u != "https://dl/jq.exe" {
		t.Errorf("Expected asset URL, got %q", u)
	}
}

func TestReleaseErrors(t *testing.T) {
	gh := newTestGitHub(newGitHubServer(t), "")
	ctx := context.Background()
	identity := func(_ context.Context, r *Release) (*manifest.Facts, error) {
		return manifest.FactsOf("VERSION", r.Version()), nil
	}

	_, err := gh.Release(ctx, ReleaseQuery{Repo: "jqlang/jq", Tags: TagPattern(`^v(\d+)$`), Map: identity})
	if !errors.Is(err, ErrMalformedTag) {
		t.Errorf("Expected ErrMalformedTag, got %v", err)
	}

	_, err = gh.Release(ctx, ReleaseQuery{Repo: "nobody/nothing", Map: identity})
	if !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("Expected ErrHTTPStatus for unknown repo, got %v", err)
	}

	_, err = gh.Release(ctx, ReleaseQuery{Repo: "junegunn/fzf"})
	if !errors.Is(err, ErrNoMapping) {
		t.Errorf("Expected ErrNoMapping, got %v", err)
	}
}

func TestTagPatternPanicsWithoutGroup(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for a pattern without a capture group")
		}
	}()
	TagPattern(`^v\d+$`)
}

func TestBranchHeadUsesToken(t *testing.T) {
	server := newGitHubServer(t)

	_, err := newTestGitHub(server, "").BranchHead(context.Background(), "Pistonite/shellutils", "main")
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("Expected ErrRateLimit without token, got %v", err)
	}

	sha, err := newTestGitHub(server, "secret").BranchHead(context.Background(), "Pistonite/shellutils", "main")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sha != strings.Repeat("ab", 20) {
		t.Errorf("Unexpected commit %q", sha)
	}
}

func TestCargoVersionAt(t *testing.T) {
	gh := newTestGitHub(newGitHubServer(t), "")

	v, err := gh.CargoVersionAt(context.Background(), "Pistonite/shellutils", strings.Repeat("ab", 20), "viopen/Cargo.toml")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v != "0.3.1" {
		t.Errorf("Expected 0.3.1, got %q", v)
	}

	_, err = gh.CargoVersionAt(context.Background(), "Pistonite/shellutils", "main", "missing/Cargo.toml")
	if !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("Expected ErrHTTPStatus for missing file, got %v", err)
	}
}

func TestCargoVersion(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
		err      error
	}{
		{"package", "[package]\nname = \"n\"\nversion = \"1.2.3\"\n", "1.2.3", nil},
		{"workspace", "[workspace]\nmembers = [\"a\"]\n\n[workspace.package]\nversion = \"0.8.0\"\n", "0.8.0", nil},
		{"inherited", "[package]\nname = \"n\"\nversion.workspace = true\n\n[workspace.package]\nversion = \"0.9.0\"\n", "0.9.0", nil},
		{"inherited only", "[package]\nname = \"n\"\nversion.workspace = true\n", "", ErrMissingVersion},
		{"missing", "[dependencies]\nserde = \"1\"\n", "", ErrMissingVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CargoVersion(tt.text)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("Expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil || got != tt.expected {
				t.Errorf("Expected %q, got %q (%v)", tt.expected, got, err)
			}
		})
	}

	if _, err := CargoVersion("[package\n"); err == nil || errors.Is(err, ErrMissingVersion) {
		t.Errorf("Expected a parse error, got %v", err)
	}
}
