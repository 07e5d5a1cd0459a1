package update

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

// Strategy discovers the current facts for one package. prior is a snapshot
// of the package's section as it is in the manifest before the run.
type Strategy func(ctx context.Context, prior *manifest.Section) (*manifest.Facts, error)

// Registry maps package names to their strategies.
type Registry struct {
	strategies map[string]Strategy
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy. Registering a name twice or a nil strategy panics.
func (r *Registry) Register(name string, s Strategy) {
	if s == nil {
		panic(fmt.Sprintf("update: nil strategy for %q", name))
	}
	if _, dup := r.strategies[name]; dup {
		panic(fmt.Sprintf("update: strategy for %q registered twice", name))
	}
	r.strategies[name] = s
	r.order = append(r.order, name)
}

// Lookup returns the strategy registered for name.
func (r *Registry) Lookup(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns registered package names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Merge combines sub-source strategies into one. Every sub-source runs to
// completion; if any fails the merged strategy fails with all their errors.
// Otherwise results are merged in argument order, later sources overriding
// earlier ones on a shared key.
func Merge(strategies ...Strategy) Strategy {
	return func(ctx context.Context, prior *manifest.Section) (*manifest.Facts, error) {
		results := make([]*manifest.Facts, len(strategies))
		errs := make([]error, len(strategies))

		var g errgroup.Group
		for i, s := range strategies {
			g.Go(func() error {
				results[i], errs[i] = s(ctx, prior)
				return nil
			})
		}
		g.Wait()

		if err := errors.Join(errs...); err != nil {
			return nil, err
		}

		merged := manifest.NewFacts()
		for _, f := range results {
			merged.Merge(f)
		}
		return merged, nil
	}
}
