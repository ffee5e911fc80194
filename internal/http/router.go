package http

import (
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	funcMap := template.FuncMap{
		"truncate": func(s string, n int) string {
			if len(s) <= n {
				return s
			}
			return s[:n] + "…"
		},
	}

	tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob(cfg.TemplatesPath + "/*.html"))
	tmpl = template.Must(tmpl.ParseGlob(cfg.TemplatesPath + "/auth/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.Static("/static", cfg.StaticPath)

	// Auth routes (signup, login, logout)
	if cfg.AuthService != nil {
		authController, err := auth.NewController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		if err != nil {
			log.Printf("Auth controller unavailable: %v", err)
		} else {
			authController.RegisterRoutes(router)
		}
	}

	books := NewBooksController(cfg.CatalogClient, cfg.BookCache, cfg.FavoritesService, cfg.ShelfCache, cfg.SearchLimit)
	favoritesController := NewFavoritesController(cfg.FavoritesService)
	users := NewUsersController(cfg.AuthService, cfg.FavoritesService)
	health := NewHealthController(cfg.Database, cfg.Version)

	// Public pages
	router.GET("/", books.HomePage)
	router.GET("/search", books.SearchPage)
	router.GET("/books/:id", books.BookPage)
	router.GET("/random", books.RandomBook)
	router.GET("/users/:id", users.ProfilePage)

	// Health checks
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	// Public API
	api := router.Group("/api")
	{
		api.GET("/books/search", books.SearchJSON)
		api.GET("/books/popular", books.Popular)
		api.GET("/books/genre/:genre", books.Genre)
		api.GET("/books/:id", books.BookJSON)
		api.GET("/shelves", books.Shelves)
	}

	// Favorites require a signed-in user
	var requireAuth gin.HandlerFunc
	if cfg.AuthMiddleware != nil {
		requireAuth = cfg.AuthMiddleware.RequireAuth()
	} else {
		requireAuth = func(c *gin.Context) { c.Next() }
	}

	protected := router.Group("/", requireAuth)
	{
		protected.GET("/favorites", favoritesController.FavoritesPage)
		protected.POST("/books/:id/favorite", favoritesController.Add)
		protected.POST("/books/:id/unfavorite", favoritesController.Remove)
	}

	protectedAPI := api.Group("/", requireAuth)
	{
		protectedAPI.GET("/favorites", favoritesController.ListJSON)
		protectedAPI.PUT("/books/:id/favorite", favoritesController.Add)
		protectedAPI.DELETE("/books/:id/favorite", favoritesController.Remove)
	}

	return router
}
