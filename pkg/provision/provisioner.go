// Package provision resolves logical folder paths (school/year/month/date)
// to concrete file-store folder identifiers, creating only the segments that
// do not already exist. Resolution is idempotent: re-resolving a path after
// partial creation converges on the same identifiers instead of creating
// duplicates.
package provision

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldvisit/pkg/store"
)

// Option customises a Provisioner.
type Option func(*Provisioner)

// WithLogger injects a structured logger; duplicate-folder warnings are the
// main thing it reports.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRetry overrides the transient-failure retry budget.
func WithRetry(attempts int, base, max time.Duration) Option {
	return func(p *Provisioner) {
		if attempts > 0 {
			p.retry.attempts = attempts
		}
		if base > 0 {
			p.retry.base = base
		}
		if max > 0 {
			p.retry.max = max
		}
	}
}

// Provisioner maps path segments to remote folder ids via get-or-create. A
// per-session cache avoids repeat lookups; cached ids are re-validated when
// the store later rejects one as not found, so the cache can never pin a
// deleted folder.
//
// Concurrent sessions resolving the same path are tolerated by re-checking
// existence immediately before every create. A narrow race window remains
// (two creates between each other's checks); the store's own consistency
// model bounds it and no distributed lock is assumed.
type Provisioner struct {
	files  store.Files
	logger *zap.Logger
	retry  retryPolicy

	mu    sync.Mutex
	cache map[string]string
}

// NewProvisioner constructs a Provisioner over the given file store.
func NewProvisioner(files store.Files, options ...Option) (*Provisioner, error) {
	if files == nil {
		return nil, fmt.Errorf("provision: file store is required")
	}
	p := &Provisioner{
		files:  files,
		logger: zap.NewNop(),
		retry:  defaultRetryPolicy(),
		cache:  make(map[string]string),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p, nil
}

// DatePath builds the conventional visit folder path for a school and date:
// school, four-digit year, month name, ISO date.
func DatePath(school string, visited time.Time) []string {
	return []string{
		school,
		visited.Format("2006"),
		visited.Format("January"),
		visited.Format("2006-01-02"),
	}
}

// Resolve walks the segments left to right under rootID, returning the
// folder id of every level in order. A not-found error on the root itself is
// fatal; a not-found caused by a stale cached id invalidates that cache
// entry and re-resolves the level once.
func (p *Provisioner) Resolve(ctx context.Context, rootID string, segments ...string) ([]string, error) {
	if strings.TrimSpace(rootID) == "" {
		return nil, fmt.Errorf("provision: root folder id is required")
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("provision: at least one path segment is required")
	}
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, fmt.Errorf("provision: empty path segment in %q", strings.Join(segments, "/"))
		}
	}

	ids := make([]string, len(segments))
	parents := make([]string, len(segments)+1)
	parents[0] = rootID
	revalidated := make(map[int]bool)

	for i := 0; i < len(segments); {
		parent := parents[i]
		seg := segments[i]

		if id, ok := p.cached(parent, seg); ok {
			ids[i] = id
			parents[i+1] = id
			i++
			continue
		}

		id, err := p.getOrCreate(ctx, parent, seg)
		if err != nil {
			if store.IsNotFound(err) && i > 0 && !revalidated[i] {
				// The parent id likely came from a stale cache entry; drop it
				// and resolve that level fresh.
				revalidated[i] = true
				p.invalidate(parents[i-1], segments[i-1])
				i--
				continue
			}
			return nil, fmt.Errorf("provision: resolve %q: %w", strings.Join(segments[:i+1], "/"), err)
		}

		p.remember(parent, seg, id)
		ids[i] = id
		parents[i+1] = id
		i++
	}
	return ids, nil
}

// getOrCreate returns the id of the folder named name under parentID,
// creating it only when no such folder exists. Each attempt re-checks
// existence immediately before creating, which both narrows the concurrent
// duplicate-creation window and re-verifies outcome after a create whose
// result was lost to a transient failure.
func (p *Provisioner) getOrCreate(ctx context.Context, parentID, name string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retry.attempts; attempt++ {
		if attempt > 0 {
			if err := p.retry.sleep(ctx, attempt); err != nil {
				return "", err
			}
		}

		entries, err := p.listFolders(ctx, parentID, name)
		if err != nil {
			if store.IsTransient(err) {
				lastErr = err
				continue
			}
			return "", err
		}

		if len(entries) > 0 {
			if len(entries) > 1 {
				// The store permits duplicate sibling names. Pick the first in
				// listing order deterministically; never add another.
				p.logger.Warn("duplicate folders found, using first by listing order",
					zap.String("parent", parentID),
					zap.String("name", name),
					zap.Int("count", len(entries)),
					zap.String("chosen", entries[0].ID),
				)
			}
			return entries[0].ID, nil
		}

		id, err := p.files.CreateFolder(ctx, parentID, name)
		if err == nil {
			return id, nil
		}
		if !store.IsTransient(err) {
			return "", err
		}
		// Create outcome unknown: the next attempt lists again before any
		// further create, so a blind retry can never produce a duplicate.
		lastErr = err
	}
	return "", lastErr
}

func (p *Provisioner) listFolders(ctx context.Context, parentID, name string) ([]store.Entry, error) {
	entries, err := p.files.ListChildren(ctx, parentID, name)
	if err != nil {
		return nil, err
	}
	var out []store.Entry
	for _, entry := range entries {
		if entry.IsFolder() {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Forget drops the cached ids along a path. Callers invoke it when the store
// rejects a previously resolved id as not found (for example an upload into a
// folder deleted behind the cache), then re-resolve.
func (p *Provisioner) Forget(rootID string, segments ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	parent := rootID
	for _, seg := range segments {
		key := cacheKey(parent, seg)
		id, ok := p.cache[key]
		delete(p.cache, key)
		if !ok {
			return
		}
		parent = id
	}
}

func cacheKey(parentID, name string) string {
	return parentID + "\x00" + name
}

func (p *Provisioner) cached(parentID, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.cache[cacheKey(parentID, name)]
	return id, ok
}

func (p *Provisioner) remember(parentID, name, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[cacheKey(parentID, name)] = id
}

func (p *Provisioner) invalidate(parentID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, cacheKey(parentID, name))
}
