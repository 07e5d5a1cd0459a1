package update

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shaftpkg/shaft-meta/internal/common/logger"
	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

// Result describes a completed run.
type Result struct {
	// Packages are the packages fetched, in manifest order
	Packages []string
	// Skipped are sections without a registered strategy
	Skipped []string
	// Changes are the rewritten keys, in the order they were applied
	Changes []manifest.Change
	// Saved is true when the manifest was written
	Saved bool
	// DryRun is true when writing was disabled
	DryRun bool
}

// Changed reports whether any key differed from its fetched value.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// Updater runs strategies for manifest sections and writes the results back.
type Updater struct {
	registry    *Registry
	store       *manifest.Store
	log         *logger.Logger
	dryRun      bool
	concurrency int
}

// Option is a functional option for configuring Updater
type Option func(*Updater)

// WithLogger sets the logger for progress and failures
func WithLogger(log *logger.Logger) Option {
	return func(u *Updater) {
		u.log = log
	}
}

// WithStore sets where manifests are loaded from and saved to
func WithStore(store *manifest.Store) Option {
	return func(u *Updater) {
		u.store = store
	}
}

// WithDryRun computes and logs changes without saving them
func WithDryRun(dryRun bool) Option {
	return func(u *Updater) {
		u.dryRun = dryRun
	}
}

// WithConcurrency caps simultaneous fetches; n <= 0 means no cap
func WithConcurrency(n int) Option {
	return func(u *Updater) {
		u.concurrency = n
	}
}

// New creates an updater over the given registry.
func New(registry *Registry, opts ...Option) *Updater {
	u := &Updater{
		registry: registry,
		store:    manifest.NewOsStore(),
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// target is one package scheduled for fetching
type target struct {
	name     string
	strategy Strategy
	prior    *manifest.Section
}

// Run updates the manifest at path. An empty only updates every section
// that has a strategy; otherwise only the named section is updated.
//
// All fetches settle before anything is applied. If any fetch fails the
// run returns a *BatchFetchError and the manifest is not written.
func (u *Updater) Run(ctx context.Context, path, only string) (*Result, error) {
	doc, err := u.store.Load(path)
	if err != nil {
		return nil, err
	}

	targets, skipped, err := u.plan(doc, only)
	if err != nil {
		return nil, err
	}

	result := &Result{Skipped: skipped, DryRun: u.dryRun}
	for _, t := range targets {
		result.Packages = append(result.Packages, t.name)
	}

	updates, err := u.fetchAll(ctx, targets)
	if err != nil {
		return nil, err
	}

	for i, t := range targets {
		changes, err := doc.Apply(t.name, updates[i])
		for _, c := range changes {
			u.log.Info("%s", c)
		}
		result.Changes = append(result.Changes, changes...)
		if err != nil {
			return nil, err
		}
	}

	if !result.Changed() {
		u.log.Debug("no changes to %s", path)
		return result, nil
	}
	if u.dryRun {
		u.log.Info("dry run: %d change(s) not written to %s", len(result.Changes), path)
		return result, nil
	}

	if err := u.store.Save(path, doc); err != nil {
		return nil, err
	}
	result.Saved = true
	return result, nil
}

// plan selects the packages to fetch and snapshots their sections
func (u *Updater) plan(doc *manifest.Document, only string) ([]target, []string, error) {
	names := doc.Sections()
	if only != "" {
		if !doc.HasSection(only) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPackage, only)
		}
		if _, ok := u.registry.Lookup(only); !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoStrategy, only)
		}
		names = []string{only}
	}

	var (
		targets []target
		skipped []string
		seen    = make(map[string]bool)
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		s, ok := u.registry.Lookup(name)
		if !ok {
			u.log.Debug("skipping %s: no update strategy", name)
			skipped = append(skipped, name)
			continue
		}
		prior, err := doc.Section(name)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, target{name: name, strategy: s, prior: prior})
	}
	return targets, skipped, nil
}

// fetchAll runs every strategy concurrently and waits for all of them.
// Siblings are never cancelled by a failure.
func (u *Updater) fetchAll(ctx context.Context, targets []target) ([]*manifest.Facts, error) {
	results := make([]*manifest.Facts, len(targets))
	errs := make([]*FetchError, len(targets))

	var g errgroup.Group
	if u.concurrency > 0 {
		g.SetLimit(u.concurrency)
	}
	for i, t := range targets {
		g.Go(func() error {
			u.log.Info("fetching %s", t.name)
			facts, err := t.strategy(ctx, t.prior)
			if err != nil {
				errs[i] = &FetchError{Package: t.name, Err: err}
				u.log.Error("%s", errs[i])
				return nil
			}
			results[i] = manifest.NewFacts()
			results[i].Merge(facts)
			u.log.Info("resolved %s: %s", t.name, describe(results[i]))
			return nil
		})
	}
	g.Wait()

	var batch BatchFetchError
	for _, fe := range errs {
		if fe != nil {
			batch.Failures = append(batch.Failures, fe)
		}
	}
	if len(batch.Failures) > 0 {
		return nil, &batch
	}
	return results, nil
}

// describe renders facts as "KEY=value, ..." for logging
func describe(f *manifest.Facts) string {
	keys := f.Keys()
	if len(keys) == 0 {
		return "(no facts)"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := f.Get(k)
		parts[i] = k + "=" + v
	}
	return strings.Join(parts, ", ")
}
