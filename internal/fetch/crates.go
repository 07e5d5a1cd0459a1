package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

// DefaultCratesAPI is the crates.io API root
const DefaultCratesAPI = "https://crates.io/api/v1"

// Crates looks up published versions on crates.io.
type Crates struct {
	client  *Client
	BaseURL string
}

// NewCrates creates a crates.io source.
func NewCrates(client *Client) *Crates {
	return &Crates{client: client, BaseURL: DefaultCratesAPI}
}

var maxVersionPath = &JSONParser{Path: "crate.max_version"}

// Latest returns the newest published version of the crate.
func (c *Crates) Latest(ctx context.Context, name string) (string, error) {
	body, err := c.client.Fetch(ctx, fmt.Sprintf("%s/crates/%s", c.BaseURL, name), nil)
	if err != nil {
		return "", err
	}

	version, err := maxVersionPath.Parse(body)
	if errors.Is(err, ErrJSONPathNotFound) || (err == nil && version == "") {
		return "", fmt.Errorf("%w: crate %s", ErrMissingVersion, name)
	}
	if err != nil {
		return "", fmt.Errorf("crate %s: %w", name, err)
	}
	return version, nil
}

// Facts maps the newest version of the crate to facts. A nil mapFn yields
// a single VERSION fact.
func (c *Crates) Facts(ctx context.Context, name string, mapFn func(version string) *manifest.Facts) (*manifest.Facts, error) {
	version, err := c.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if mapFn == nil {
		return manifest.FactsOf("VERSION", version), nil
	}
	return mapFn(version), nil
}
