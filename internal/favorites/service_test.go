package favorites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/database/books"
	favoritesrepo "github.com/mrlokans/bookshelf/internal/database/favorites"
	"github.com/mrlokans/bookshelf/internal/entities"
)

type testEnv struct {
	db       *gorm.DB
	service  *Service
	books    *books.Repository
	catalog  *httptest.Server
	payloads map[string]map[string]any
}

func setupService(t *testing.T) (*testEnv, func()) {
	dbPath := "./test_favorites_svc_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Favorite{},
	)
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		books:    books.NewRepository(db),
		payloads: map[string]map[string]any{},
	}

	env.catalog = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for id, payload := range env.payloads {
			if r.URL.Path == "/volumes/"+id {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(payload)
				return
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	client := catalog.NewClient(env.catalog.URL, "", 5*time.Second)
	cache := bookcache.NewCache(env.books, client)
	env.service = NewService(favoritesrepo.NewRepository(db), cache)

	cleanup := func() {
		env.catalog.Close()
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return env, cleanup
}

func (e *testEnv) addVolume(id, title string, authors []string) {
	e.payloads[id] = map[string]any{
		"id": id,
		"volumeInfo": map[string]any{
			"title":       title,
			"authors":     authors,
			"description": "A description.",
			"imageLinks":  map[string]any{"thumbnail": "http://img/" + id + ".jpg"},
		},
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *entities.User {
	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func TestAdd(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi", []string{"Susanna Clarke"})

	result, err := env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAdded, result.Status)
	assert.Equal(t, "Piranesi", result.BookTitle)

	list, err := env.service.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "vol-1", list[0].BookExternalID)
	assert.Equal(t, "Piranesi", list[0].Book.Title)
}

func TestAdd_Twice(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi", []string{"Susanna Clarke"})

	first, err := env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAdded, first.Status)

	second, err := env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyFavorited, second.Status)
	assert.Equal(t, "Piranesi", second.BookTitle)

	list, err := env.service.List(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAdd_Unauthenticated(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	_, err := env.service.Add(context.Background(), 0, "vol-1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAdd_SharedCacheAcrossUsers(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.addVolume("vol-1", "Piranesi", []string{"Susanna Clarke"})

	_, err := env.service.Add(context.Background(), alice.ID, "vol-1")
	require.NoError(t, err)
	_, err = env.service.Add(context.Background(), bob.ID, "vol-1")
	require.NoError(t, err)

	// One shared book row backs both favorites
	bookCount, err := env.books.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, bookCount)

	var favoriteCount int64
	require.NoError(t, env.db.Model(&entities.Favorite{}).Count(&favoriteCount).Error)
	assert.EqualValues(t, 2, favoriteCount)
}

func TestAdd_CatalogDownLeavesNoPartialState(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	// No payload registered: the fake catalog answers 500.

	_, err := env.service.Add(context.Background(), user.ID, "vol-broken")
	assert.ErrorIs(t, err, catalog.ErrUnavailable)

	var bookCount, favoriteCount int64
	require.NoError(t, env.db.Model(&entities.Book{}).Count(&bookCount).Error)
	require.NoError(t, env.db.Model(&entities.Favorite{}).Count(&favoriteCount).Error)
	assert.Zero(t, bookCount)
	assert.Zero(t, favoriteCount)
}

func TestAdd_IncompleteVolume(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.payloads["vol-1"] = map[string]any{
		"id": "vol-1",
		"volumeInfo": map[string]any{
			"title":       "No Author Book",
			"description": "d",
			"imageLinks":  map[string]any{"thumbnail": "u"},
		},
	}

	_, err := env.service.Add(context.Background(), user.ID, "vol-1")
	assert.ErrorIs(t, err, bookcache.ErrIncompleteVolume)

	var bookCount int64
	require.NoError(t, env.db.Model(&entities.Book{}).Count(&bookCount).Error)
	assert.Zero(t, bookCount)
}

func TestRemove(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi", []string{"Susanna Clarke"})

	_, err := env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)

	result, err := env.service.Remove(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRemoved, result.Status)

	// Removing again is a reported no-op
	result, err = env.service.Remove(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFavorited, result.Status)

	// The cached book row survives the unfavorite
	bookCount, err := env.books.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, bookCount)
}

func TestRemove_Unauthenticated(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	_, err := env.service.Remove(context.Background(), 0, "vol-1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestList_InsertionOrder(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-z", "Zeta", []string{"Z Author"})
	env.addVolume("vol-a", "Alpha", []string{"A Author"})

	_, err := env.service.Add(context.Background(), user.ID, "vol-z")
	require.NoError(t, err)
	_, err = env.service.Add(context.Background(), user.ID, "vol-a")
	require.NoError(t, err)

	list, err := env.service.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "vol-z", list[0].BookExternalID)
	assert.Equal(t, "vol-a", list[1].BookExternalID)
}

func TestIsFavorited(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi", []string{"Susanna Clarke"})

	favorited, err := env.service.IsFavorited(user.ID, "vol-1")
	require.NoError(t, err)
	assert.False(t, favorited)

	_, err = env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)

	favorited, err = env.service.IsFavorited(user.ID, "vol-1")
	require.NoError(t, err)
	assert.True(t, favorited)

	// Anonymous visitors never have favorites
	favorited, err = env.service.IsFavorited(0, "vol-1")
	require.NoError(t, err)
	assert.False(t, favorited)
}

func TestTitleSnapshotStaysFixed(t *testing.T) {
	env, cleanup := setupService(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Original Title", []string{"Author"})

	_, err := env.service.Add(context.Background(), user.ID, "vol-1")
	require.NoError(t, err)

	// Simulate the cached row drifting from the favorite snapshot.
	require.NoError(t, env.db.Model(&entities.Book{}).
		Where("external_id = ?", "vol-1").
		Update("title", "Renamed Title").Error)

	list, err := env.service.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Original Title", list[0].BookTitle)
	assert.Equal(t, "Renamed Title", list[0].Book.Title)
}
