// Package entrypoint wires the application together and runs the server.
package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/bookcache"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	favoritesrepo "github.com/mrlokans/bookshelf/internal/database/favorites"
	"github.com/mrlokans/bookshelf/internal/favorites"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/shelves"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	if cfg.Catalog.APIKey == "" {
		log.Printf("WARNING: catalog API key is not set. Requests may be throttled. Set 'API_KEY' to configure one.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Catalog client, local book cache and the favorites workflow
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout)
	bookCache := bookcache.NewCache(books.NewRepository(db.DB), catalogClient)
	favoritesService := favorites.NewService(favoritesrepo.NewRepository(db.DB), bookCache)

	// Homepage shelves, refreshed in the background
	shelfCache := shelves.NewCache()

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var shelfScheduler *scheduler.ShelfRefreshScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRefreshShelvesQueue(catalogClient, shelfCache, cfg.Shelves.Size),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		// Schedule periodic shelf refreshes (also fills shelves at startup)
		shelfScheduler = scheduler.NewShelfRefreshScheduler(taskClient, cfg.Shelves.RefreshSchedule)
		if err := shelfScheduler.Start(taskCtx); err != nil {
			log.Fatalf("Failed to start shelf refresh scheduler: %v", err)
		}
	}

	// Authentication: service, sessions, CSRF
	authService := auth.NewService(db.DB, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	var csrfSecret []byte
	if cfg.Auth.SecretKey != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SecretKey)
		if err != nil {
			// Not hex, use as raw bytes
			csrfSecret = []byte(cfg.Auth.SecretKey)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set SECRET_KEY to persist)")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:         db,
		CatalogClient:    catalogClient,
		BookCache:        bookCache,
		FavoritesService: favoritesService,
		ShelfCache:       shelfCache,
		AuthService:      authService,
		SessionManager:   sessionManager,
		AuthMiddleware:   authMiddleware,
		AuthConfig:       cfg.Auth,
		CSRFSecret:       csrfSecret,
		SecureCookies:    cfg.Auth.SecureCookies,
		TemplatesPath:    cfg.UI.TemplatesPath,
		StaticPath:       cfg.UI.StaticPath,
		SearchLimit:      cfg.Shelves.Size * 2,
		Version:          version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if shelfScheduler != nil {
			shelfScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
