// Package books provides database operations for locally cached catalog books.
package books

import (
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByExternalID retrieves a cached book by its catalog id.
// Returns gorm.ErrRecordNotFound when the book is not cached yet.
func (r *Repository) GetByExternalID(externalID string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("external_id = ?", externalID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book row.
func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

// Count returns the number of cached books.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}
