package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	favoritesrepo "github.com/mrlokans/bookshelf/internal/database/favorites"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/favorites"
)

type favoritesTestEnv struct {
	db       *database.Database
	service  *favorites.Service
	catalog  *httptest.Server
	payloads map[string]map[string]any
}

func setupFavoritesEnv(t *testing.T) (*favoritesTestEnv, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_favorites_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, time.Second)
	require.NoError(t, err)

	env := &favoritesTestEnv{
		db:       db,
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
	cache := bookcache.NewCache(books.NewRepository(db.DB), client)
	env.service = favorites.NewService(favoritesrepo.NewRepository(db.DB), cache)

	cleanup := func() {
		env.catalog.Close()
		db.Close()
		os.Remove(dbPath)
	}
	return env, cleanup
}

func (e *favoritesTestEnv) addVolume(id, title string) {
	e.payloads[id] = map[string]any{
		"id": id,
		"volumeInfo": map[string]any{
			"title":       title,
			"authors":     []string{"Test Author"},
			"description": "A description.",
			"imageLinks":  map[string]any{"thumbnail": "http://img/" + id + ".jpg"},
		},
	}
}

func (e *favoritesTestEnv) createUser(t *testing.T, username string) *entities.User {
	user := &entities.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, e.db.DB.Create(user).Error)
	return user
}

// asUser injects a signed-in user into the request context.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	}
}

func newFavoritesRouter(env *favoritesTestEnv, userID uint) *gin.Engine {
	controller := NewFavoritesController(env.service)
	router := gin.New()
	router.Use(asUser(userID))
	router.PUT("/api/books/:id/favorite", controller.Add)
	router.DELETE("/api/books/:id/favorite", controller.Remove)
	router.GET("/api/favorites", controller.ListJSON)
	return router
}

func TestFavoritesController_Add(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi")
	router := newFavoritesRouter(env, user.ID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result favorites.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, favorites.StatusAdded, result.Status)
	assert.Equal(t, "Piranesi", result.BookTitle)
}

func TestFavoritesController_Add_Twice(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi")
	router := newFavoritesRouter(env, user.ID)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/books/vol-1/favorite", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/favorites", nil)
	router.ServeHTTP(w, req)

	var response struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
}

func TestFavoritesController_Add_Unauthenticated(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	env.addVolume("vol-1", "Piranesi")
	router := newFavoritesRouter(env, 0)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFavoritesController_Add_CatalogDown(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	// No payload registered: the fake catalog answers 500.
	router := newFavoritesRouter(env, user.ID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/vol-broken/favorite", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestFavoritesController_Add_IncompleteVolume(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
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
	router := newFavoritesRouter(env, user.ID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFavoritesController_Remove(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi")
	router := newFavoritesRouter(env, user.ID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result favorites.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, favorites.StatusRemoved, result.Status)

	// Removing again reports not_favorited, still 200
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/api/books/vol-1/favorite", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, favorites.StatusNotFavorited, result.Status)
}

func TestFavoritesController_List(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	env.addVolume("vol-1", "Piranesi")
	env.addVolume("vol-2", "Blindsight")
	router := newFavoritesRouter(env, user.ID)

	for _, id := range []string{"vol-1", "vol-2"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/books/"+id+"/favorite", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/favorites", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Favorites []entities.Favorite `json:"favorites"`
		Count     int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "vol-1", response.Favorites[0].BookExternalID)
	assert.Equal(t, "vol-2", response.Favorites[1].BookExternalID)
}

func TestFavoritesController_InvalidBookID(t *testing.T) {
	env, cleanup := setupFavoritesEnv(t)
	defer cleanup()

	user := env.createUser(t, "alice")
	router := newFavoritesRouter(env, user.ID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/"+strings.Repeat("x", 80)+"/favorite", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
