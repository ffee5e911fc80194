// Package bookcache fills the local books table lazily from the catalog.
//
// A book row is written the first time anyone needs it and never touched
// again; the cache trades freshness for not hammering the upstream API.
package bookcache

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrIncompleteVolume is returned when the catalog record lacks one of
// the fields the local schema requires. Nothing gets persisted in that
// case.
var ErrIncompleteVolume = errors.New("catalog volume is missing required metadata")

// Fetcher is the slice of the catalog client the cache needs.
type Fetcher interface {
	FetchByID(ctx context.Context, externalID string) (*catalog.Volume, error)
}

// BookStore is the slice of the books repository the cache needs.
type BookStore interface {
	GetByExternalID(externalID string) (*entities.Book, error)
	Create(book *entities.Book) error
}

// Cache reads books from the local store and falls back to the catalog.
type Cache struct {
	books   BookStore
	catalog Fetcher
}

func NewCache(books BookStore, fetcher Fetcher) *Cache {
	return &Cache{books: books, catalog: fetcher}
}

// GetByExternalID returns the locally cached book, if any.
func (c *Cache) GetByExternalID(externalID string) (*entities.Book, error) {
	return c.books.GetByExternalID(externalID)
}

// UpsertFromCatalog returns the cached book, fetching and persisting it
// on a miss. A cache hit never touches the network. On a miss the
// fetched volume must carry a title, at least one author, a description
// and a thumbnail; anything less is ErrIncompleteVolume and no row is
// written.
func (c *Cache) UpsertFromCatalog(ctx context.Context, externalID string) (*entities.Book, error) {
	book, err := c.books.GetByExternalID(externalID)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up cached book %s: %w", externalID, err)
	}

	volume, err := c.catalog.FetchByID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if volume.Title == "" || volume.Author() == "" || volume.Description == "" || volume.Thumbnail == "" {
		return nil, fmt.Errorf("%w: volume %s", ErrIncompleteVolume, externalID)
	}

	book = &entities.Book{
		ExternalID:  externalID,
		Title:       volume.Title,
		Author:      volume.Author(),
		Description: volume.Description,
		CoverURL:    volume.Thumbnail,
	}
	if err := c.books.Create(book); err != nil {
		// A concurrent request may have cached the same volume first.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.books.GetByExternalID(externalID)
		}
		return nil, fmt.Errorf("cache book %s: %w", externalID, err)
	}
	return book, nil
}
