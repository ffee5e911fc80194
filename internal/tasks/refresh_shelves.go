package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/shelves"
)

// RefreshShelvesTask refetches the homepage shelves from the catalog.
type RefreshShelvesTask struct{}

// Config returns the queue configuration for shelf refresh tasks.
func (t RefreshShelvesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_shelves",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ShelfSearcher is the slice of the catalog client the refresh task needs.
type ShelfSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Volume, error)
}

// RefreshShelvesProcessor creates a processor function for RefreshShelvesTask.
// A shelf whose search fails keeps its previous contents; the task only
// errors when every shelf failed.
func RefreshShelvesProcessor(searcher ShelfSearcher, cache *shelves.Cache, shelfSize int) backlite.QueueProcessor[RefreshShelvesTask] {
	return func(ctx context.Context, task RefreshShelvesTask) error {
		var failed int
		for name, query := range shelves.Queries {
			volumes, err := searcher.Search(ctx, query, shelfSize)
			if err != nil {
				log.Printf("[TASK] Shelf %q refresh failed: %v", name, err)
				failed++
				continue
			}
			cache.Set(name, volumes)
			log.Printf("[TASK] Shelf %q refreshed with %d volumes", name, len(volumes))
		}

		if failed == len(shelves.Queries) {
			return fmt.Errorf("all %d shelf refreshes failed", failed)
		}
		return nil
	}
}

// NewRefreshShelvesQueue creates a backlite queue for shelf refresh tasks.
func NewRefreshShelvesQueue(searcher ShelfSearcher, cache *shelves.Cache, shelfSize int) backlite.Queue {
	return backlite.NewQueue(RefreshShelvesProcessor(searcher, cache, shelfSize))
}
