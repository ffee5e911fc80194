package http

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/favorites"
	"github.com/mrlokans/bookshelf/internal/shelves"
)

// CatalogSearcher is the slice of the catalog client the books controller needs.
type CatalogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Volume, error)
	FetchByID(ctx context.Context, externalID string) (*catalog.Volume, error)
}

// BooksController serves book browsing: homepage shelves, search and
// detail pages.
type BooksController struct {
	catalog     CatalogSearcher
	cache       *bookcache.Cache
	favorites   *favorites.Service
	shelves     *shelves.Cache
	searchLimit int
}

func NewBooksController(searcher CatalogSearcher, cache *bookcache.Cache, favService *favorites.Service, shelfCache *shelves.Cache, searchLimit int) *BooksController {
	if searchLimit <= 0 {
		searchLimit = 20
	}
	return &BooksController{
		catalog:     searcher,
		cache:       cache,
		favorites:   favService,
		shelves:     shelfCache,
		searchLimit: searchLimit,
	}
}

// HomePage renders the landing page with the homepage shelves.
// GET /
func (bc *BooksController) HomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":          "Bookshelf",
		"Popular":        bc.shelfVolumes(c, shelves.ShelfPopular),
		"BooksOfTheYear": bc.shelfVolumes(c, shelves.ShelfBooksOfTheYear),
		"Username":       auth.GetUsername(c),
		"Authenticated":  auth.IsAuthenticated(c),
	})
}

// shelfVolumes serves a shelf from the cache, falling back to a live
// catalog fetch when the background refresh has not filled it yet. A
// failed fallback yields an empty shelf rather than an error page.
func (bc *BooksController) shelfVolumes(c *gin.Context, name string) []catalog.Volume {
	if shelf, ok := bc.shelves.Get(name); ok {
		return shelf.Volumes
	}

	volumes, err := bc.catalog.Search(c.Request.Context(), shelves.Queries[name], bc.searchLimit)
	if err != nil {
		return nil
	}
	bc.shelves.Set(name, volumes)
	return volumes
}

// Shelves returns the cached homepage shelves as JSON.
// GET /api/shelves
func (bc *BooksController) Shelves(c *gin.Context) {
	result := make(map[string]shelves.Shelf)
	for name := range shelves.Queries {
		if shelf, ok := bc.shelves.Get(name); ok {
			result[name] = shelf
		}
	}
	c.JSON(http.StatusOK, gin.H{"shelves": result})
}

// Popular returns the popular shelf, fetching it live when the
// background refresh has not filled the cache yet.
// GET /api/books/popular
func (bc *BooksController) Popular(c *gin.Context) {
	shelf, ok := bc.shelves.Get(shelves.ShelfPopular)
	if !ok {
		volumes, err := bc.catalog.Search(c.Request.Context(), shelves.Queries[shelves.ShelfPopular], bc.searchLimit)
		if err != nil {
			respondUpstreamError(c, err)
			return
		}
		bc.shelves.Set(shelves.ShelfPopular, volumes)
		shelf, _ = bc.shelves.Get(shelves.ShelfPopular)
	}
	c.JSON(http.StatusOK, shelf)
}

// Genre returns a live catalog shelf for one subject.
// GET /api/books/genre/:genre
func (bc *BooksController) Genre(c *gin.Context) {
	genre := strings.TrimSpace(c.Param("genre"))
	if genre == "" || len(genre) > 64 {
		respondBadRequest(c, "invalid genre")
		return
	}

	volumes, err := bc.catalog.Search(c.Request.Context(), "subject:"+genre, bc.searchLimit)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"genre": genre, "results": volumes})
}

// SearchPage runs a catalog search and renders the results.
// GET /search?query=...
func (bc *BooksController) SearchPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	volumes, err := bc.catalog.Search(c.Request.Context(), query, bc.searchLimit)
	if err != nil {
		c.HTML(http.StatusBadGateway, "search.html", gin.H{
			"Title":         "Search",
			"Query":         query,
			"Error":         "The book catalog is unavailable right now. Try again later.",
			"Username":      auth.GetUsername(c),
			"Authenticated": auth.IsAuthenticated(c),
		})
		return
	}

	c.HTML(http.StatusOK, "search.html", gin.H{
		"Title":         "Search",
		"Query":         query,
		"Results":       volumes,
		"Username":      auth.GetUsername(c),
		"Authenticated": auth.IsAuthenticated(c),
	})
}

// SearchJSON runs a catalog search and returns the matches.
// GET /api/books/search?query=...
func (bc *BooksController) SearchJSON(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		respondBadRequest(c, "query is required")
		return
	}

	volumes, err := bc.catalog.Search(c.Request.Context(), query, bc.searchLimit)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": volumes})
}

// BookPage renders the detail page for one volume. Locally cached books
// are served without touching the catalog; everything else is fetched
// live and not persisted.
// GET /books/:id
func (bc *BooksController) BookPage(c *gin.Context) {
	externalID, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	volume, err := bc.lookupVolume(c, externalID)
	if err != nil {
		c.HTML(http.StatusBadGateway, "book.html", gin.H{
			"Title":         "Book",
			"Error":         "The book catalog is unavailable right now. Try again later.",
			"Username":      auth.GetUsername(c),
			"Authenticated": auth.IsAuthenticated(c),
		})
		return
	}

	favorited, _ := bc.favorites.IsFavorited(GetUserID(c), externalID)

	c.HTML(http.StatusOK, "book.html", gin.H{
		"Title":         volume.Title,
		"Book":          volume,
		"Favorited":     favorited,
		"CSRFToken":     auth.GetCSRFToken(c),
		"Username":      auth.GetUsername(c),
		"Authenticated": auth.IsAuthenticated(c),
	})
}

// BookJSON returns volume metadata by external id.
// GET /api/books/:id
func (bc *BooksController) BookJSON(c *gin.Context) {
	externalID, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	volume, err := bc.lookupVolume(c, externalID)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, volume)
}

// RandomBook redirects to the detail page of a random shelf volume.
// GET /random
func (bc *BooksController) RandomBook(c *gin.Context) {
	var pool []catalog.Volume
	for name := range shelves.Queries {
		if shelf, ok := bc.shelves.Get(name); ok {
			pool = append(pool, shelf.Volumes...)
		}
	}
	if len(pool) == 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}

	pick := pool[rand.Intn(len(pool))]
	c.Redirect(http.StatusFound, "/books/"+pick.ID)
}

// lookupVolume serves the locally cached copy when one exists and falls
// back to a live catalog fetch otherwise.
func (bc *BooksController) lookupVolume(c *gin.Context, externalID string) (*catalog.Volume, error) {
	book, err := bc.cache.GetByExternalID(externalID)
	if err == nil {
		return &catalog.Volume{
			ID:          book.ExternalID,
			Title:       book.Title,
			Authors:     []string{book.Author},
			Description: book.Description,
			Thumbnail:   book.CoverURL,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return bc.catalog.FetchByID(c.Request.Context(), externalID)
}
