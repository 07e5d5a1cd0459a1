package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// DefaultArchAPI is the Arch Linux website root
const DefaultArchAPI = "https://archlinux.org"

// ErrNoExactMatch is returned when a search has no result with the exact name
var ErrNoExactMatch = errors.New("no package with exactly that name")

// Arch looks up packages in the Arch Linux repositories.
type Arch struct {
	client  *Client
	BaseURL string
}

// NewArch creates an Arch Linux source.
func NewArch(client *Client) *Arch {
	return &Arch{client: client, BaseURL: DefaultArchAPI}
}

type archSearch struct {
	Results []struct {
		Name    string `json:"pkgname"`
		Version string `json:"pkgver"`
		Release string `json:"pkgrel"`
		Repo    string `json:"repo"`
	} `json:"results"`
}

// Lookup returns the upstream version and package release of name.
// The first result whose name matches exactly wins.
func (a *Arch) Lookup(ctx context.Context, name string) (version, release string, err error) {
	endpoint := fmt.Sprintf("%s/packages/search/json/?name=%s", a.BaseURL, url.QueryEscape(name))
	body, err := a.client.Fetch(ctx, endpoint, nil)
	if err != nil {
		return "", "", err
	}

	var search archSearch
	if err := json.Unmarshal(body, &search); err != nil {
		return "", "", fmt.Errorf("failed to parse Arch search for %s: %w", name, err)
	}

	for _, r := range search.Results {
		if r.Name == name {
			if r.Version == "" {
				return "", "", fmt.Errorf("%w: arch package %s", ErrMissingVersion, name)
			}
			return r.Version, r.Release, nil
		}
	}
	return "", "", fmt.Errorf("%w: arch package %s", ErrNoExactMatch, name)
}
