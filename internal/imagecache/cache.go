// Package imagecache resolves face-capture filenames into displayable image
// blobs, fetched on demand and cached per filename.
package imagecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// State describes a cache entry's resolution progress.
type State int

const (
	// StateUnknown means the filename has never been requested (or was evicted).
	StateUnknown State = iota
	// StatePending means a fetch is in flight.
	StatePending
	// StateResolved means the image bytes are available.
	StateResolved
	// StateFailed means the fetch failed or the backend has no such image;
	// the entry is an explicit null and is never refetched.
	StateFailed
)

// Fetcher retrieves one image by filename.
type Fetcher interface {
	FetchImage(ctx context.Context, filename string) ([]byte, string, error)
}

// Image is a resolved entry's payload.
type Image struct {
	Data        []byte
	ContentType string
}

type entry struct {
	state       State
	data        []byte
	contentType string
	done        chan struct{}
}

// release drops the byte buffer so eviction actually returns memory; holding
// evicted blobs alive across page navigations is exactly the leak the bound
// exists to prevent.
func (e *entry) release() {
	e.data = nil
}

// Cache is an LRU-bounded filename-to-image cache. A pending marker is
// inserted under the lock before any fetch starts, so concurrent requests for
// one filename issue at most one upstream call. Resolved and failed entries
// are immutable until evicted.
type Cache struct {
	mu           sync.Mutex
	fetcher      Fetcher
	entries      *lru.Cache[string, *entry]
	logger       *slog.Logger
	fetchTimeout time.Duration
	closed       bool
}

// New constructs a cache bounded to capacity entries.
func New(fetcher Fetcher, capacity int, logger *slog.Logger) (*Cache, error) {
	if capacity <= 0 {
		capacity = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		fetcher:      fetcher,
		logger:       logger,
		fetchTimeout: 15 * time.Second,
	}
	entries, err := lru.NewWithEvict[string, *entry](capacity, func(_ string, e *entry) {
		e.release()
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

// Resolve launches fetches for every filename not yet known. Empty filenames
// never reach the network; duplicates and already-known names are no-ops.
// Fetches run in parallel and fail independently.
func (c *Cache) Resolve(ctx context.Context, filenames []string) {
	for _, cl := range c.claim(filenames) {
		cl := cl
		go c.fetch(ctx, cl.name, cl.entry)
	}
}

// Wait resolves the given filenames and blocks until each is resolved, failed,
// or ctx is done. Entries still pending when ctx expires stay pending and
// finish in the background.
func (c *Cache) Wait(ctx context.Context, filenames []string) error {
	claimed := c.claim(filenames)
	g, gctx := errgroup.WithContext(ctx)
	for _, cl := range claimed {
		cl := cl
		g.Go(func() error {
			c.fetch(gctx, cl.name, cl.entry)
			return nil
		})
	}
	// Also wait on entries claimed by earlier Resolve calls.
	for _, name := range filenames {
		if name == "" {
			continue
		}
		c.mu.Lock()
		e, ok := c.entries.Get(name)
		c.mu.Unlock()
		if !ok || e.state != StatePending {
			continue
		}
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.Wait()
}

// Lookup reports the entry for filename. StateUnknown means "never requested";
// StateFailed is the explicit no-photo marker, distinct from still-loading.
func (c *Cache) Lookup(filename string) (Image, State) {
	if filename == "" {
		return Image{}, StateFailed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Get(filename)
	if !ok {
		return Image{}, StateUnknown
	}
	if e.state != StateResolved {
		return Image{}, e.state
	}
	return Image{Data: e.data, ContentType: e.contentType}, StateResolved
}

// Len reports the number of live cache entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Close purges the cache and releases every entry's buffer. Pending fetches
// finish but their results are discarded.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries.Purge()
}

type claimed struct {
	name  string
	entry *entry
}

// claim inserts pending markers for filenames not yet present and returns the
// names this caller is responsible for fetching. The marker goes in before the
// fetch goroutine starts; that ordering is the duplicate-fetch guard.
func (c *Cache) claim(filenames []string) []claimed {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	var out []claimed
	for _, name := range filenames {
		if name == "" {
			continue
		}
		if _, ok := c.entries.Get(name); ok {
			continue
		}
		e := &entry{state: StatePending, done: make(chan struct{})}
		c.entries.Add(name, e)
		out = append(out, claimed{name: name, entry: e})
	}
	return out
}

func (c *Cache) fetch(ctx context.Context, filename string, e *entry) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	data, contentType, err := c.fetcher.FetchImage(fctx, filename)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Debug("image fetch failed", slog.String("filename", filename), slog.Any("error", err))
		e.state = StateFailed
	} else if live, ok := c.entries.Get(filename); !ok || live != e || c.closed {
		// Evicted or closed while in flight; drop the bytes, keep waiters moving.
		e.state = StateFailed
	} else {
		e.state = StateResolved
		e.data = data
		e.contentType = contentType
	}
	close(e.done)
}
