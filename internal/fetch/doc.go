// Package fetch provides the upstream sources that package strategies query
// to discover new versions and artifact checksums.
//
// The package implements:
//   - A shared HTTP client with optional retries and request pacing
//   - GitHub releases, tags, branch heads and raw repository files
//   - crates.io and Arch Linux package lookups
//   - Version scraping from HTML download pages
//   - SHA-256 checksums of downloaded artifacts
//
// Every source takes a context and returns plain strings; mapping them to
// manifest keys is left to the caller.
//
// Usage:
//
//	client := fetch.NewClient(fetch.DefaultOptions())
//	gh := fetch.NewGitHub(client, os.Getenv("GITHUB_TOKEN"))
//	rel, err := gh.LatestRelease(ctx, "junegunn/fzf")
package fetch
