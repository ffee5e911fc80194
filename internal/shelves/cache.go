// Package shelves keeps the homepage book lists in memory so the
// landing page never waits on the catalog. A background task refreshes
// the lists on a schedule.
package shelves

import (
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/catalog"
)

// Shelf names used on the homepage.
const (
	ShelfPopular        = "popular"
	ShelfBooksOfTheYear = "books-of-the-year"
)

// Queries maps each shelf to the catalog search that fills it.
var Queries = map[string]string{
	ShelfPopular:        "most popular books",
	ShelfBooksOfTheYear: "Books of the year",
}

// Shelf is a named list of volumes with its refresh timestamp.
type Shelf struct {
	Name      string           `json:"name"`
	Volumes   []catalog.Volume `json:"volumes"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Cache is a mutex-guarded in-memory store of homepage shelves.
type Cache struct {
	mu      sync.RWMutex
	shelves map[string]Shelf
}

func NewCache() *Cache {
	return &Cache{shelves: make(map[string]Shelf)}
}

// Get returns a shelf by name. The second return is false when the
// shelf has not been filled yet.
func (c *Cache) Get(name string) (Shelf, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	shelf, ok := c.shelves[name]
	return shelf, ok
}

// Set replaces a shelf's contents and stamps the refresh time.
func (c *Cache) Set(name string, volumes []catalog.Volume) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shelves[name] = Shelf{
		Name:      name,
		Volumes:   volumes,
		FetchedAt: time.Now(),
	}
}

// Names returns the known shelf names.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.shelves))
	for name := range c.shelves {
		names = append(names, name)
	}
	return names
}
