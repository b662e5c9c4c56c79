// Package resource is the keyed read cache that every data view goes
// through. Reads with the same key share one in-flight request and one cached
// body. Writes declare the key prefixes they make stale and the cache drops
// and refetches them.
package resource

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fathima-sithara/quickads/internal/metrics"
)

// Fetcher loads the body for one key.
type Fetcher func(ctx context.Context) ([]byte, error)

type Options struct {
	// FreshFor is how long a body is served without revalidation.
	FreshFor time.Duration
	// FetchTimeout bounds a single upstream load.
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

type Cache struct {
	store Store
	opts  Options
	log   *zap.Logger
	group singleflight.Group
	now   func() time.Time

	// wmu orders commits against invalidations.
	wmu sync.Mutex

	mu       sync.Mutex
	gens     map[string]uint64
	inflight map[string]int
	errs     map[string]error
	fetchers map[string]Fetcher

	bg sync.WaitGroup
}

func New(store Store, opts Options) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		store:    store,
		opts:     opts,
		log:      log,
		now:      time.Now,
		gens:     map[string]uint64{},
		inflight: map[string]int{},
		errs:     map[string]error{},
		fetchers: map[string]Fetcher{},
	}
}

// Fetch returns the state for key, loading it when nothing is cached. An
// empty key suppresses the request entirely.
func (c *Cache) Fetch(ctx context.Context, key string, fetch Fetcher) State {
	if key == "" {
		return State{Empty: true}
	}
	c.remember(key, fetch)

	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache store read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		if c.now().Sub(e.FetchedAt) < c.opts.FreshFor {
			return State{Data: e.Value}
		}
		c.revalidate(key, fetch)
		return State{Data: e.Value, Validating: true}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	body, err := c.load(ctx, key, fetch)
	if err != nil {
		return State{Err: err}
	}
	return State{Data: body}
}

// Peek reports the current state for key without fetching.
func (c *Cache) Peek(ctx context.Context, key string) State {
	if key == "" {
		return State{Empty: true}
	}
	e, ok, _ := c.store.Get(ctx, key)
	c.mu.Lock()
	loading := c.inflight[key] > 0
	err := c.errs[key]
	c.mu.Unlock()
	if ok {
		return State{Data: e.Value, Validating: loading}
	}
	if loading {
		return State{Loading: true}
	}
	if err != nil {
		return State{Err: err}
	}
	return State{}
}

// Invalidate drops every key starting with one of prefixes and refetches
// the ones that have been read before. Loads already in flight for those keys
// can no longer write their result.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...string) {
	var refetch map[string]Fetcher
	c.wmu.Lock()
	c.mu.Lock()
	for _, p := range prefixes {
		for k := range c.gens {
			if strings.HasPrefix(k, p) {
				c.gens[k]++
				c.group.Forget(k)
			}
		}
		for k, f := range c.fetchers {
			if strings.HasPrefix(k, p) {
				if refetch == nil {
					refetch = map[string]Fetcher{}
				}
				refetch[k] = f
			}
		}
		for k := range c.errs {
			if strings.HasPrefix(k, p) {
				delete(c.errs, k)
			}
		}
	}
	c.mu.Unlock()

	for _, p := range prefixes {
		if err := c.store.DeletePrefix(ctx, p); err != nil {
			c.log.Warn("cache invalidate failed", zap.String("prefix", p), zap.Error(err))
		}
	}
	c.wmu.Unlock()

	for k, f := range refetch {
		c.revalidate(k, f)
	}
}

// Mutate runs m and, when it succeeds, invalidates what it declared.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	if err := m.Do(ctx); err != nil {
		return err
	}
	c.Invalidate(ctx, m.Invalidates...)
	return nil
}

// Close waits for background refreshes to finish.
func (c *Cache) Close() {
	c.bg.Wait()
}

func (c *Cache) remember(key string, f Fetcher) {
	c.mu.Lock()
	c.fetchers[key] = f
	c.mu.Unlock()
}

func (c *Cache) revalidate(key string, fetch Fetcher) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		defer cancel()
		if _, err := c.load(ctx, key, fetch); err != nil {
			c.log.Debug("background revalidate failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

// load runs fetch once per key at a time. The shared load is detached from
// the caller so one cancelled caller does not fail the others; the caller
// itself stops waiting when ctx ends.
func (c *Cache) load(ctx context.Context, key string, fetch Fetcher) ([]byte, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.begin(key)
		defer c.end(key)

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()
		body, err := fetch(fctx)
		if err != nil {
			c.fail(key, gen, err)
			return nil, err
		}
		c.commit(fctx, key, gen, body)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.inflight[key]++
	return c.gens[key]
}

func (c *Cache) end(key string) {
	c.mu.Lock()
	c.inflight[key]--
	if c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
	c.mu.Unlock()
}

func (c *Cache) current(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key] == gen
}

// commit stores body unless a newer load or an invalidation happened since
// gen was taken.
func (c *Cache) commit(ctx context.Context, key string, gen uint64, body []byte) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if !c.current(key, gen) {
		c.log.Debug("discarding superseded response", zap.String("key", key))
		return
	}
	c.mu.Lock()
	delete(c.errs, key)
	c.mu.Unlock()
	if err := c.store.Set(ctx, key, Entry{Value: body, FetchedAt: c.now()}); err != nil {
		c.log.Warn("cache store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) fail(key string, gen uint64, err error) {
	if !c.current(key, gen) {
		return
	}
	c.mu.Lock()
	c.errs[key] = err
	c.mu.Unlock()
}
