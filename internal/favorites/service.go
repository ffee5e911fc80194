// Package favorites implements the add/remove/list favorites workflow.
package favorites

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrUnauthenticated is returned when an operation runs without a
// signed-in user.
var ErrUnauthenticated = errors.New("authentication required")

// Status describes the outcome of an add or remove operation. Repeated
// operations are idempotent and report the informational statuses
// instead of failing.
type Status string

const (
	StatusAdded            Status = "added"
	StatusAlreadyFavorited Status = "already_favorited"
	StatusRemoved          Status = "removed"
	StatusNotFavorited     Status = "not_favorited"
)

// Result is the outcome of an add or remove.
type Result struct {
	Status    Status `json:"status"`
	BookTitle string `json:"book_title,omitempty"`
}

// FavoriteStore is the slice of the favorites repository the service needs.
type FavoriteStore interface {
	Get(userID uint, externalID string) (*entities.Favorite, error)
	Create(favorite *entities.Favorite) error
	Delete(userID uint, externalID string) (int64, error)
	ListForUser(userID uint) ([]entities.Favorite, error)
	CountForUser(userID uint) (int64, error)
}

// BookCache resolves an external id to a locally cached book, filling
// the cache from the catalog on demand.
type BookCache interface {
	UpsertFromCatalog(ctx context.Context, externalID string) (*entities.Book, error)
}

// Service coordinates the favorites workflow: ensure the book is
// cached locally, then maintain the user-book link.
type Service struct {
	store FavoriteStore
	cache BookCache
}

func NewService(store FavoriteStore, cache BookCache) *Service {
	return &Service{store: store, cache: cache}
}

// Add favorites a book for a user. The book is cached from the catalog
// first, so a favorite row always has a backing book row. Adding an
// already-favorited book is a no-op reporting StatusAlreadyFavorited.
//
// Cache or catalog failures abort the operation before any favorite
// row is written; a failed add leaves no partial state.
func (s *Service) Add(ctx context.Context, userID uint, externalID string) (*Result, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if externalID == "" {
		return nil, fmt.Errorf("book id is required")
	}

	if existing, err := s.store.Get(userID, externalID); err == nil {
		return &Result{Status: StatusAlreadyFavorited, BookTitle: existing.BookTitle}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing favorite: %w", err)
	}

	book, err := s.cache.UpsertFromCatalog(ctx, externalID)
	if err != nil {
		return nil, err
	}

	favorite := &entities.Favorite{
		UserID:         userID,
		BookExternalID: externalID,
		BookTitle:      book.Title,
	}
	if err := s.store.Create(favorite); err != nil {
		// A concurrent add slipped in between the duplicate check and
		// the insert; the unique index decides the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &Result{Status: StatusAlreadyFavorited, BookTitle: book.Title}, nil
		}
		return nil, fmt.Errorf("create favorite: %w", err)
	}

	return &Result{Status: StatusAdded, BookTitle: book.Title}, nil
}

// Remove unfavorites a book for a user. Removing a book that is not
// favorited is a no-op reporting StatusNotFavorited.
func (s *Service) Remove(ctx context.Context, userID uint, externalID string) (*Result, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if externalID == "" {
		return nil, fmt.Errorf("book id is required")
	}

	affected, err := s.store.Delete(userID, externalID)
	if err != nil {
		return nil, fmt.Errorf("delete favorite: %w", err)
	}
	if affected == 0 {
		return &Result{Status: StatusNotFavorited}, nil
	}
	return &Result{Status: StatusRemoved}, nil
}

// List returns a user's favorites in the order they were added.
func (s *Service) List(ctx context.Context, userID uint) ([]entities.Favorite, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.store.ListForUser(userID)
}

// IsFavorited reports whether the user has favorited the book. An
// unauthenticated user has no favorites.
func (s *Service) IsFavorited(userID uint, externalID string) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	_, err := s.store.Get(userID, externalID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// Count returns the number of favorites a user has.
func (s *Service) Count(userID uint) (int64, error) {
	return s.store.CountForUser(userID)
}
