package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
)

// GetUserID extracts the authenticated user's ID from the Gin context.
// Returns 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondUnprocessable sends a 422 response for records that cannot be stored.
func respondUnprocessable(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: message})
}

// respondUpstreamError sends a 502 Bad Gateway for catalog failures.
func respondUpstreamError(c *gin.Context, err error) {
	log.Printf("Catalog error: %v", err)
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: "book catalog is unavailable, try again later"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// parseBookIDParam extracts and validates the external book id path param.
// Writes a 400 response and returns false when the id is missing or junk.
func parseBookIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondBadRequest(c, "book id is required")
		return "", false
	}
	// Catalog volume ids are short opaque tokens; anything with a slash
	// or overly long is junk.
	if len(id) > 64 || strings.ContainsAny(id, "/\\") {
		respondBadRequest(c, "invalid book id")
		return "", false
	}
	return id, true
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
