package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/favorites"
)

// FavoritesController handles the favorites workflow endpoints.
type FavoritesController struct {
	service *favorites.Service
}

func NewFavoritesController(service *favorites.Service) *FavoritesController {
	return &FavoritesController{service: service}
}

// Add favorites a book for the signed-in user.
// POST /books/:id/favorite and PUT /api/books/:id/favorite
func (fc *FavoritesController) Add(c *gin.Context) {
	externalID, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	result, err := fc.service.Add(c.Request.Context(), GetUserID(c), externalID)
	if err != nil {
		fc.respondWorkflowError(c, err, "add favorite")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}
	c.Redirect(http.StatusFound, "/books/"+externalID)
}

// Remove unfavorites a book for the signed-in user.
// POST /books/:id/unfavorite and DELETE /api/books/:id/favorite
func (fc *FavoritesController) Remove(c *gin.Context) {
	externalID, ok := parseBookIDParam(c)
	if !ok {
		return
	}

	result, err := fc.service.Remove(c.Request.Context(), GetUserID(c), externalID)
	if err != nil {
		fc.respondWorkflowError(c, err, "remove favorite")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, result)
		return
	}

	// Form posts come either from the detail page or the favorites list
	if c.Request.Referer() != "" && c.PostForm("from") == "favorites" {
		c.Redirect(http.StatusFound, "/favorites")
		return
	}
	c.Redirect(http.StatusFound, "/books/"+externalID)
}

// FavoritesPage renders the signed-in user's favorites.
// GET /favorites
func (fc *FavoritesController) FavoritesPage(c *gin.Context) {
	list, err := fc.service.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list favorites")
		return
	}

	c.HTML(http.StatusOK, "favorites.html", gin.H{
		"Title":         "My Favorites",
		"Favorites":     list,
		"CSRFToken":     auth.GetCSRFToken(c),
		"Username":      auth.GetUsername(c),
		"Authenticated": auth.IsAuthenticated(c),
	})
}

// ListJSON returns the signed-in user's favorites.
// GET /api/favorites
func (fc *FavoritesController) ListJSON(c *gin.Context) {
	list, err := fc.service.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": list, "count": len(list)})
}

// respondWorkflowError maps favorites workflow errors onto HTTP statuses.
func (fc *FavoritesController) respondWorkflowError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, favorites.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	case errors.Is(err, catalog.ErrUnavailable):
		respondUpstreamError(c, err)
	case errors.Is(err, bookcache.ErrIncompleteVolume):
		respondUnprocessable(c, "this book's catalog record is incomplete and cannot be favorited")
	default:
		respondInternalError(c, err, context)
	}
}
