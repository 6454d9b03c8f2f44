package api

import (
	"bytes"
	"fmt"
	"sync"

	"mazewars/internal/game"
	"mazewars/internal/maze"
)

// DefaultMaxRenders bounds the number of PNGs kept by a RenderCache.
const DefaultMaxRenders = 64

// renderKey identifies a picture. Grids are immutable once published, so the
// pointer stands for the layout.
type renderKey struct {
	grid    *maze.Grid
	cell    int
	players string
}

// RenderCache stores encoded map PNGs with LRU eviction. Many viewers polling
// between moves share one render.
type RenderCache struct {
	mu      sync.Mutex
	images  map[renderKey][]byte
	order   []renderKey // LRU order (oldest first)
	maxSize int

	hits   uint64
	misses uint64
}

// NewRenderCache creates a cache holding up to maxSize images
func NewRenderCache(maxSize int) *RenderCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxRenders
	}
	return &RenderCache{
		images:  make(map[renderKey][]byte),
		order:   make([]renderKey, 0, maxSize),
		maxSize: maxSize,
	}
}

// Render returns the PNG for snap, drawing it on a miss.
func (c *RenderCache) Render(snap *game.GameSnapshot, opts maze.RenderOptions) ([]byte, error) {
	key := renderKey{
		grid:    snap.Grid,
		cell:    opts.CellSize,
		players: fmt.Sprint(snap.Positions()),
	}

	c.mu.Lock()
	if img, ok := c.images[key]; ok {
		c.touch(key)
		c.hits++
		c.mu.Unlock()
		return img, nil
	}
	c.misses++
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := maze.RenderPNG(&buf, snap.Grid, snap.Positions(), opts); err != nil {
		return nil, err
	}
	img := buf.Bytes()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[key]; !ok {
		if len(c.images) >= c.maxSize {
			c.evict()
		}
		c.images[key] = img
		c.order = append(c.order, key)
	}
	return img, nil
}

// touch moves key to the newest end.
func (c *RenderCache) touch(key renderKey) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// evict removes the least recently used image
func (c *RenderCache) evict() {
	if len(c.order) == 0 {
		return
	}

	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.images, oldest)
}

// Size returns the current cache size
func (c *RenderCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Stats returns hit and miss counts
func (c *RenderCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
