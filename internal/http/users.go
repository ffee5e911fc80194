package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/favorites"
)

// UsersController serves public user profile pages.
type UsersController struct {
	authService *auth.Service
	favorites   *favorites.Service
}

func NewUsersController(authService *auth.Service, favService *favorites.Service) *UsersController {
	return &UsersController{authService: authService, favorites: favService}
}

// ProfilePage renders a user's public profile with their favorite count.
// GET /users/:id
func (uc *UsersController) ProfilePage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid user id")
		return
	}

	user, err := uc.authService.GetUserByID(uint(id))
	if err != nil {
		if wantsJSON(c) {
			respondNotFound(c, "user")
			return
		}
		c.HTML(http.StatusNotFound, "user.html", gin.H{
			"Title": "User not found",
			"Error": "No such user",
		})
		return
	}

	count, err := uc.favorites.Count(user.ID)
	if err != nil {
		respondInternalError(c, err, "count favorites")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"id":             user.ID,
			"username":       user.Username,
			"favorite_count": count,
			"joined_at":      user.CreatedAt,
		})
		return
	}

	c.HTML(http.StatusOK, "user.html", gin.H{
		"Title":         user.Username,
		"User":          user,
		"FavoriteCount": count,
		"Username":      auth.GetUsername(c),
		"Authenticated": auth.IsAuthenticated(c),
	})
}
