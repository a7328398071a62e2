package recipecache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cwygoda/recipequeue/internal/adapter/api"
	"github.com/cwygoda/recipequeue/internal/domain"
)

// Fetcher loads the recipe list from the backend.
type Fetcher interface {
	FetchRecipes(ctx context.Context) ([]api.Recipe, error)
}

// Cache is a read-through cache of the recipe list, invalidated by tag.
type Cache struct {
	fetcher Fetcher
	log     *slog.Logger

	mu       sync.Mutex
	recipes  []api.Recipe
	valid    bool
	versions map[string]uint64
}

var _ domain.CacheInvalidator = (*Cache)(nil)

// New creates an empty cache.
func New(fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		fetcher:  fetcher,
		log:      logger.With("component", "recipecache"),
		versions: make(map[string]uint64),
	}
}

// Recipes returns the cached list, fetching it when missing or invalidated.
func (c *Cache) Recipes(ctx context.Context) ([]api.Recipe, error) {
	c.mu.Lock()
	if c.valid {
		out := c.recipes
		c.mu.Unlock()
		return out, nil
	}
	version := c.versions[domain.RecipesTag]
	c.mu.Unlock()

	recipes, err := c.fetcher.FetchRecipes(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// an invalidation that raced the fetch wins, the next read refetches
	if c.versions[domain.RecipesTag] == version {
		c.recipes = recipes
		c.valid = true
	}
	return recipes, nil
}

// Invalidate drops the data cached under tag.
func (c *Cache) Invalidate(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[tag]++
	if tag == domain.RecipesTag {
		c.recipes = nil
		c.valid = false
	}
	c.log.Debug("invalidated", "tag", tag, "version", c.versions[tag])
	return nil
}

// Version returns how many times tag was invalidated.
func (c *Cache) Version(tag string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[tag]
}
