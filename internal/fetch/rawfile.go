package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ErrMissingVersion is returned when an upstream document has no version field
var ErrMissingVersion = errors.New("version field not found")

// RawFile returns the text of path in repo at ref (a commit, branch or tag).
func (g *GitHub) RawFile(ctx context.Context, repo, ref, path string) (string, error) {
	body, err := g.client.Fetch(ctx, fmt.Sprintf("%s/%s/%s/%s", g.RawBase, repo, ref, path), nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CargoVersionAt reads the crate version from a Cargo.toml in a repository.
func (g *GitHub) CargoVersionAt(ctx context.Context, repo, ref, path string) (string, error) {
	text, err := g.RawFile(ctx, repo, ref, path)
	if err != nil {
		return "", err
	}
	version, err := CargoVersion(text)
	if err != nil {
		return "", fmt.Errorf("%s@%s:%s: %w", repo, ref, path, err)
	}
	return version, nil
}

// cargoManifest holds the two places a Cargo.toml may declare its version.
// Versions decode as interface{} since "version.workspace = true" is a table.
type cargoManifest struct {
	Package struct {
		Version interface{} `toml:"version"`
	} `toml:"package"`
	Workspace struct {
		Package struct {
			Version interface{} `toml:"version"`
		} `toml:"package"`
	} `toml:"workspace"`
}

// CargoVersion returns package.version, falling back to
// workspace.package.version. A version inherited from the workspace does
// not count as declared.
func CargoVersion(text string) (string, error) {
	var m cargoManifest
	if _, err := toml.Decode(text, &m); err != nil {
		return "", fmt.Errorf("failed to parse Cargo.toml: %w", err)
	}

	for _, v := range []interface{}{m.Package.Version, m.Workspace.Package.Version} {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", ErrMissingVersion
}
