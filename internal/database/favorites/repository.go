// Package favorites provides database operations for per-user favorites.
package favorites

import (
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all favorite database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favorites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves a user's favorite for a specific book.
// Returns gorm.ErrRecordNotFound when no such favorite exists.
func (r *Repository) Get(userID uint, externalID string) (*entities.Favorite, error) {
	var favorite entities.Favorite
	err := r.db.
		Where("user_id = ? AND book_external_id = ?", userID, externalID).
		First(&favorite).Error
	if err != nil {
		return nil, err
	}
	return &favorite, nil
}

// Create inserts a new favorite row. The unique index on
// (user_id, book_external_id) makes concurrent duplicate inserts fail
// with gorm.ErrDuplicatedKey.
func (r *Repository) Create(favorite *entities.Favorite) error {
	return r.db.Create(favorite).Error
}

// Delete removes a user's favorite and reports how many rows went away.
// Zero means the favorite did not exist.
func (r *Repository) Delete(userID uint, externalID string) (int64, error) {
	result := r.db.
		Where("user_id = ? AND book_external_id = ?", userID, externalID).
		Delete(&entities.Favorite{})
	return result.RowsAffected, result.Error
}

// ListForUser returns a user's favorites in insertion order with the
// cached book row preloaded.
func (r *Repository) ListForUser(userID uint) ([]entities.Favorite, error) {
	var favorites []entities.Favorite
	err := r.db.
		Preload("Book").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// CountForUser returns how many favorites a user has.
func (r *Repository) CountForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
