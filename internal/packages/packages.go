// Package packages registers the update strategy of every package tracked in
// the installer manifest.
package packages

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shaftpkg/shaft-meta/internal/common/logger"
	"github.com/shaftpkg/shaft-meta/internal/fetch"
	"github.com/shaftpkg/shaft-meta/internal/manifest"
	"github.com/shaftpkg/shaft-meta/internal/update"
)

const (
	// DefaultSevenZipBase is the 7-Zip website root
	DefaultSevenZipBase = "https://www.7-zip.org"
	// DefaultWgetBase lists the Windows builds of wget
	DefaultWgetBase = "https://eternallybored.org/misc/wget"
)

// ErrBadRepo is returned when a REPO value is not a GitHub repository
var ErrBadRepo = errors.New("not a GitHub repository")

// Sources bundles the upstreams queried by the strategies.
type Sources struct {
	GitHub       *fetch.GitHub
	Crates       *fetch.Crates
	Arch         *fetch.Arch
	Page         *fetch.Page
	Hasher       *fetch.Hasher
	SevenZipBase string
	WgetBase     string
	Log          *logger.Logger
}

// NewSources creates sources sharing one HTTP client.
func NewSources(client *fetch.Client, githubToken string, hasher *fetch.Hasher) *Sources {
	return &Sources{
		GitHub:       fetch.NewGitHub(client, githubToken),
		Crates:       fetch.NewCrates(client),
		Arch:         fetch.NewArch(client),
		Page:         fetch.NewPage(client),
		Hasher:       hasher,
		SevenZipBase: DefaultSevenZipBase,
		WgetBase:     DefaultWgetBase,
		Log:          logger.Default(),
	}
}

// NewRegistry returns a registry holding every package strategy.
func NewRegistry(src *Sources) *update.Registry {
	reg := update.NewRegistry()
	Register(reg, src)
	return reg
}

// Register adds every package strategy to reg.
func Register(reg *update.Registry, src *Sources) {
	reg.Register("git", src.archVersion("git"))
	reg.Register("cmake", src.cmake)
	reg.Register("fzf", src.fzf)
	reg.Register("jq", src.jq)
	reg.Register("hack_font", src.hackFont)
	reg.Register("coreutils", update.Merge(
		src.crateVersion("coreutils", "UUTILS_VERSION"),
		src.crateVersion("eza", "EZA_VERSION"),
		src.archKey("diffutils", "DIFFUTILS_VERSION"),
	))
	reg.Register("shellutils", src.shellutils)
	reg.Register("perl", src.archVersion("perl"))
	reg.Register("7z", src.sevenZip)
	reg.Register("wget", src.wget)
	reg.Register("bat", src.crateVersion("bat", "VERSION"))
	reg.Register("dust", src.crateVersion("du-dust", "VERSION"))
	reg.Register("fd", src.crateVersion("fd-find", "VERSION"))
	reg.Register("websocat", src.crateVersion("websocat", "VERSION"))
	reg.Register("zoxide", src.crateVersion("zoxide", "VERSION"))
}

func (s *Sources) archVersion(name string) update.Strategy {
	return s.archKey(name, "VERSION")
}

func (s *Sources) archKey(name, key string) update.Strategy {
	return func(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
		version, release, err := s.Arch.Lookup(ctx, name)
		if err != nil {
			return nil, err
		}
		s.Log.Debug("arch %s: %s-%s", name, version, release)
		return manifest.FactsOf(key, version), nil
	}
}

func (s *Sources) crateVersion(name, key string) update.Strategy {
	return func(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
		return s.Crates.Facts(ctx, name, func(version string) *manifest.Facts {
			s.Log.Debug("crate %s: %s", name, version)
			return manifest.FactsOf(key, version)
		})
	}
}

func (s *Sources) cmake(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
	return s.GitHub.Release(ctx, fetch.ReleaseQuery{
		Repo: "Kitware/CMake",
		Map: func(ctx context.Context, r *fetch.Release) (*manifest.Facts, error) {
			v := r.Version()
			return s.withChecksums(ctx, r, manifest.FactsOf("VERSION", v),
				checksum{"SHA", "cmake-" + v + "-windows-x86_64.zip"},
				checksum{"SHA_ARM64", "cmake-" + v + "-windows-arm64.zip"},
			)
		},
	})
}

func (s *Sources) fzf(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
	return s.GitHub.Release(ctx, fetch.ReleaseQuery{
		Repo: "junegunn/fzf",
		Map: func(ctx context.Context, r *fetch.Release) (*manifest.Facts, error) {
			v := r.Version()
			return s.withChecksums(ctx, r, manifest.FactsOf("VERSION", v),
				checksum{"SHA", "fzf-" + v + "-windows_amd64.zip"},
				checksum{"SHA_ARM64", "fzf-" + v + "-windows_arm64.zip"},
				checksum{"SHA_LINUX", "fzf-" + v + "-linux_amd64.tar.gz"},
			)
		},
	})
}

func (s *Sources) jq(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
	return s.GitHub.Release(ctx, fetch.ReleaseQuery{
		Repo: "jqlang/jq",
		Tags: fetch.TagPattern(`^jq-(\d+\.\d+(?:\.\d+)?)$`),
		Map: func(ctx context.Context, r *fetch.Release) (*manifest.Facts, error) {
			return s.withChecksums(ctx, r, manifest.FactsOf("VERSION", strings.TrimPrefix(r.Tag, "jq-")),
				checksum{"SHA", "jq-windows-amd64.exe"},
			)
		},
	})
}

func (s *Sources) hackFont(ctx context.Context, prior *manifest.Section) (*manifest.Facts, error) {
	repo, err := priorRepo(prior)
	if err != nil {
		return nil, err
	}
	return s.GitHub.Release(ctx, fetch.ReleaseQuery{
		Repo: repo,
		Map: func(ctx context.Context, r *fetch.Release) (*manifest.Facts, error) {
			return s.withChecksums(ctx, r, manifest.FactsOf("VERSION", r.Version()),
				checksum{"SHA", "Hack.zip"},
			)
		},
	})
}

// shellutilsCrates maps each crate of the shellutils repository to the key
// holding its version
var shellutilsCrates = []struct {
	path string
	key  string
}{
	{"viopen/Cargo.toml", "VIOPEN_VERSION"},
	{"n/Cargo.toml", "N_VERSION"},
	{"wsclip/Cargo.toml", "WSCLIP_VERSION"},
	{"vipath/Cargo.toml", "VIPATH_VERSION"},
	{"which/Cargo.toml", "WHICH_VERSION"},
}

func (s *Sources) shellutils(ctx context.Context, prior *manifest.Section) (*manifest.Facts, error) {
	repo, err := priorRepo(prior)
	if err != nil {
		return nil, err
	}
	commit, err := s.GitHub.BranchHead(ctx, repo, "main")
	if err != nil {
		return nil, err
	}

	crates := make([]update.Strategy, len(shellutilsCrates))
	for i, c := range shellutilsCrates {
		crates[i] = func(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
			version, err := s.GitHub.CargoVersionAt(ctx, repo, commit, c.path)
			if err != nil {
				return nil, err
			}
			return manifest.FactsOf(c.key, version), nil
		}
	}
	versions, err := update.Merge(crates...)(ctx, prior)
	if err != nil {
		return nil, fmt.Errorf("%s@%s: %w", repo, commit, err)
	}

	facts := manifest.FactsOf("COMMIT", commit)
	facts.Merge(versions)
	return facts, nil
}

var sevenZipParser = fetch.MustHTMLParser("",
	`//b[starts-with(normalize-space(.), 'Download 7-Zip')]`,
	`7-Zip (\d+\.\d+)`)

func (s *Sources) sevenZip(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
	version, err := s.Page.Version(ctx, s.SevenZipBase+"/download.html", sevenZipParser)
	if err != nil {
		return nil, err
	}
	installer := fmt.Sprintf("%s/a/7z%s-x64.exe", s.SevenZipBase, strings.ReplaceAll(version, ".", ""))
	sha, err := s.Hasher.HashOf(ctx, installer)
	if err != nil {
		return nil, err
	}
	return manifest.FactsOf("VERSION", version, "SHA", sha), nil
}

var (
	wgetLinks   = &fetch.HTMLParser{Selector: `a[href$="-win64.zip"]`, Attr: "href"}
	wgetVersion = fetch.MustRegexParser(`wget-(\d+(?:\.\d+)+)-win64\.zip$`)
)

// wget picks the newest 64-bit build listed on the download page
func (s *Sources) wget(ctx context.Context, _ *manifest.Section) (*manifest.Facts, error) {
	page := s.WgetBase + "/"
	links, err := s.Page.Links(ctx, page, wgetLinks)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]string)
	var versions []string
	for _, link := range links {
		v, err := wgetVersion.Parse([]byte(link))
		if err != nil {
			continue
		}
		if _, ok := byVersion[v]; !ok {
			byVersion[v] = link
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no wget build on %s", fetch.ErrNoVersionFound, page)
	}

	link := byVersion[fetch.HighestVersion(versions)]
	sha, err := s.Hasher.HashOf(ctx, link)
	if err != nil {
		return nil, err
	}
	return manifest.FactsOf("URL", link, "SHA", sha), nil
}

// checksum names the key receiving the digest of a release asset
type checksum struct {
	key   string
	asset string
}

// withChecksums adds the digest of each wanted asset to facts. Every asset
// name is checked before anything is downloaded.
func (s *Sources) withChecksums(ctx context.Context, r *fetch.Release, facts *manifest.Facts, want ...checksum) (*manifest.Facts, error) {
	urls := make([]string, len(want))
	for i, c := range want {
		asset, err := r.Asset(c.asset)
		if err != nil {
			return nil, err
		}
		urls[i] = asset.URL
	}

	digests := make([]string, len(want))
	errs := make([]error, len(want))
	var g errgroup.Group
	for i := range want {
		g.Go(func() error {
			digests[i], errs[i] = s.Hasher.HashOf(ctx, urls[i])
			return nil
		})
	}
	g.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Repo, r.Tag, err)
	}

	for i, c := range want {
		facts.Set(c.key, digests[i])
	}
	return facts, nil
}

// priorRepo reads the section's REPO as an owner/name pair
func priorRepo(prior *manifest.Section) (string, error) {
	raw, err := prior.Value("REPO")
	if err != nil {
		return "", err
	}
	return repoSlug(raw)
}

// repoSlug accepts "owner/name" or a github.com URL
func repoSlug(raw string) (string, error) {
	p := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host != "github.com" {
			return "", fmt.Errorf("%w: %q", ErrBadRepo, raw)
		}
		p = u.Path
	}
	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")

	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrBadRepo, raw)
	}
	return p, nil
}
