package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

const (
	// DefaultGitHubAPI is the GitHub REST API root
	DefaultGitHubAPI = "https://api.github.com"
	// DefaultGitHubRaw serves raw repository files
	DefaultGitHubRaw = "https://raw.githubusercontent.com"
)

var (
	// ErrMissingAsset is returned when a release lacks an expected artifact
	ErrMissingAsset = errors.New("release asset not found")
	// ErrMalformedTag is returned when no tag matches the expected shape
	ErrMalformedTag = errors.New("no tag matches the expected pattern")
	// ErrNoMapping is returned when a release query has no fact mapping
	ErrNoMapping = errors.New("release query has no fact mapping")
)

// GitHub queries releases, tags, branches and raw files of GitHub repositories.
type GitHub struct {
	client  *Client
	token   string
	APIBase string
	RawBase string
}

// NewGitHub creates a GitHub source. The token is optional and raises the
// API rate limit.
func NewGitHub(client *Client, token string) *GitHub {
	return &GitHub{
		client:  client,
		token:   token,
		APIBase: DefaultGitHubAPI,
		RawBase: DefaultGitHubRaw,
	}
}

// Asset is a downloadable file attached to a release
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int64  `json:"size"`
}

// Release is a published GitHub release
type Release struct {
	Repo       string  `json:"-"`
	Tag        string  `json:"tag_name"`
	Name       string  `json:"name"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Version returns the tag without a leading "v".
func (r *Release) Version() string {
	return strings.TrimPrefix(r.Tag, "v")
}

// Asset returns the asset with the exact given name.
func (r *Release) Asset(name string) (*Asset, error) {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no %q in %s", ErrMissingAsset, r.Repo, name, r.Tag)
}

// AssetNames lists the names of all assets in release order.
func (r *Release) AssetNames() []string {
	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}
	return names
}

// TagSelector picks one tag out of a repository's tag list.
type TagSelector func(tags []string) (string, error)

// TagPattern selects the tag whose first capture group is the highest version.
// It panics if expr does not compile or has no capture group.
func TagPattern(expr string) TagSelector {
	re, err := compileCapture(expr)
	if err != nil {
		panic(err)
	}
	return func(tags []string) (string, error) {
		best, bestVersion := "", ""
		for _, tag := range tags {
			m := re.FindStringSubmatch(tag)
			if m == nil || m[1] == "" {
				continue
			}
			if best == "" || CompareVersions(m[1], bestVersion) > 0 {
				best, bestVersion = tag, m[1]
			}
		}
		if best == "" {
			return "", fmt.Errorf("%w: %s", ErrMalformedTag, re)
		}
		return best, nil
	}
}

// ReleaseQuery describes which release to read and how to turn it into facts.
type ReleaseQuery struct {
	Repo string
	// Tags selects a tag from the full tag list; nil takes the newest release
	Tags TagSelector
	Map  func(ctx context.Context, r *Release) (*manifest.Facts, error)
}

// Release resolves the release described by q and maps it to facts.
func (g *GitHub) Release(ctx context.Context, q ReleaseQuery) (*manifest.Facts, error) {
	if q.Map == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, q.Repo)
	}

	var (
		rel *Release
		err error
	)
	if q.Tags == nil {
		rel, err = g.LatestRelease(ctx, q.Repo)
	} else {
		var tags []string
		if tags, err = g.Tags(ctx, q.Repo); err != nil {
			return nil, err
		}
		var tag string
		if tag, err = q.Tags(tags); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Repo, err)
		}
		rel, err = g.ReleaseByTag(ctx, q.Repo, tag)
	}
	if err != nil {
		return nil, err
	}

	return q.Map(ctx, rel)
}

// LatestRelease returns the newest non-prerelease release of repo.
func (g *GitHub) LatestRelease(ctx context.Context, repo string) (*Release, error) {
	return g.release(ctx, repo, fmt.Sprintf("%s/repos/%s/releases/latest", g.APIBase, repo))
}

// ReleaseByTag returns the release published for tag.
func (g *GitHub) ReleaseByTag(ctx context.Context, repo, tag string) (*Release, error) {
	return g.release(ctx, repo, fmt.Sprintf("%s/repos/%s/releases/tags/%s", g.APIBase, repo, tag))
}

func (g *GitHub) release(ctx context.Context, repo, url string) (*Release, error) {
	var rel Release
	if err := g.getJSON(ctx, url, &rel); err != nil {
		return nil, err
	}
	if rel.Tag == "" {
		return nil, fmt.Errorf("%w: %s release has no tag", ErrMalformedTag, repo)
	}
	rel.Repo = repo
	return &rel, nil
}

// Tags lists the most recent tags of repo (one page of 100).
func (g *GitHub) Tags(ctx context.Context, repo string) ([]string, error) {
	var entries []struct {
		Name string `json:"name"`
	}
	if err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/tags?per_page=100", g.APIBase, repo), &entries); err != nil {
		return nil, err
	}

	tags := make([]string, len(entries))
	for i, e := range entries {
		tags[i] = e.Name
	}
	return tags, nil
}

// BranchHead returns the commit hash at the tip of branch.
func (g *GitHub) BranchHead(ctx context.Context, repo, branch string) (string, error) {
	var result struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/branches/%s", g.APIBase, repo, branch), &result); err != nil {
		return "", err
	}
	if !commitRegex.MatchString(result.Commit.SHA) {
		return "", fmt.Errorf("%w: %s@%s has no commit hash", ErrNoVersionFound, repo, branch)
	}
	return result.Commit.SHA, nil
}

var commitRegex = regexp.MustCompile(`^[0-9a-f]{40}$`)

func (g *GitHub) getJSON(ctx context.Context, url string, v interface{}) error {
	body, err := g.client.Fetch(ctx, url, g.headers())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse GitHub response from %s: %w", url, err)
	}
	return nil
}

func (g *GitHub) headers() map[string]string {
	h := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if g.token != "" {
		h["Authorization"] = "Bearer " + g.token
	}
	return h
}
