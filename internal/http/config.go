package http

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/favorites"
	"github.com/mrlokans/bookshelf/internal/shelves"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database         *database.Database
	CatalogClient    *catalog.Client
	BookCache        *bookcache.Cache
	FavoritesService *favorites.Service
	ShelfCache       *shelves.Cache

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Search defaults
	SearchLimit int

	// Application info
	Version string
}
