package storage

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maruel/cartracker/internal/models"
)

// Lister is the read side of the Tracker.
type Lister interface {
	List() ([]models.CarView, error)
}

// ReadCache keeps a snapshot of the car list until it is invalidated.
//
// It is either Fresh (snapshot valid) or Stale (next Get reloads). Writers
// must call Invalidate after every successful mutation.
type ReadCache struct {
	src Lister

	mu       sync.Mutex
	fresh    bool
	snapshot []models.CarView
	searches *lru.Cache[string, []models.CarView]
}

// NewReadCache returns a Stale cache over src. searchEntries bounds the number
// of memoized search results; 0 disables memoization.
func NewReadCache(src Lister, searchEntries int) *ReadCache {
	c := &ReadCache{src: src}
	if searchEntries > 0 {
		// Only fails on a non-positive size.
		c.searches, _ = lru.New[string, []models.CarView](searchEntries)
	}
	return c
}

// Get returns the cached list, reloading it when stale or when forceRefresh is
// set. An empty list is a valid snapshot. A failed reload leaves the cache Stale.
func (c *ReadCache) Get(forceRefresh bool) ([]models.CarView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if forceRefresh && c.searches != nil {
		c.searches.Purge()
	}
	if err := c.refresh(forceRefresh); err != nil {
		return []models.CarView{}, err
	}
	return slices.Clone(c.snapshot), nil
}

// Search returns the cached cars whose model contains term.
func (c *ReadCache) Search(term string) ([]models.CarView, error) {
	key := strings.ToLower(strings.TrimSpace(term))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh && c.searches != nil {
		if v, ok := c.searches.Get(key); ok {
			return slices.Clone(v), nil
		}
	}
	if err := c.refresh(false); err != nil {
		return []models.CarView{}, err
	}
	out := []models.CarView{}
	for _, v := range c.snapshot {
		if models.MatchTerm(v.Model, key) {
			out = append(out, v)
		}
	}
	if c.searches != nil {
		c.searches.Add(key, out)
	}
	return slices.Clone(out), nil
}

// Invalidate marks the cache Stale and drops the snapshot.
func (c *ReadCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fresh = false
	c.snapshot = nil
	if c.searches != nil {
		c.searches.Purge()
	}
}

// Fresh reports whether the next Get is served from memory.
func (c *ReadCache) Fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fresh
}

// Preload warms the cache in the background. The returned channel is closed
// once the load completed, successfully or not.
func (c *ReadCache) Preload() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Get(false); err != nil {
			slog.Warn("Failed to preload cars", "err", err)
		}
	}()
	return done
}

// refresh must be called with mu held.
func (c *ReadCache) refresh(force bool) error {
	if c.fresh && !force {
		return nil
	}
	cars, err := c.src.List()
	if err != nil {
		c.fresh = false
		c.snapshot = nil
		return err
	}
	if c.searches != nil {
		c.searches.Purge()
	}
	c.snapshot = cars
	c.fresh = true
	return nil
}
