package books

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{
		ExternalID:  "vol-abc",
		Title:       "The Dispossessed",
		Author:      "Ursula K. Le Guin",
		Description: "An ambiguous utopia.",
		CoverURL:    "http://img/dispossessed.jpg",
	}
	err := repo.Create(book)
	require.NoError(t, err)
	assert.NotZero(t, book.ID)

	found, err := repo.GetByExternalID("vol-abc")
	require.NoError(t, err)
	assert.Equal(t, book.ID, found.ID)
	assert.Equal(t, "The Dispossessed", found.Title)
	assert.Equal(t, "Ursula K. Le Guin", found.Author)
}

func TestRepository_GetByExternalID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetByExternalID("never-cached")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Create_DuplicateExternalID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{ExternalID: "vol-dup", Title: "First", Author: "A", Description: "d", CoverURL: "u"}
	require.NoError(t, repo.Create(book))

	dup := &entities.Book{ExternalID: "vol-dup", Title: "Second", Author: "B", Description: "d", CoverURL: "u"}
	err := repo.Create(dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
