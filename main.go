// Package main provides the entry point for the catalog mirror service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"catalog/config"
	"catalog/database"
	"catalog/jobs"
	"catalog/logging"
	"catalog/models"
	"catalog/repository"
	"catalog/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// App represents the application with its dependencies
type App struct {
	contentStore repository.ContentStore
	syncRunRepo  *repository.SyncRunRepository
	catalogSync  *jobs.CatalogSync
	jobManager   *jobs.Manager
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg := config.Load()
	logCloser := logging.Setup(cfg.LogFile)
	defer func() {
		if err := logCloser.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	syncRunRepo := repository.NewSyncRunRepository(db)

	// Initialize content store
	var contentStore repository.ContentStore
	switch cfg.StoreDriver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := repository.ConnectMongo(connectCtx, cfg.MongoURL)
		if err != nil {
			cancel()
			log.Fatal("Failed to connect to mongo:", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Failed to disconnect from mongo: %v", err)
			}
		}()

		mongoRepo, err := repository.NewMongoContentRepository(connectCtx, client.Database(cfg.MongoDB))
		cancel()
		if err != nil {
			log.Fatal("Failed to initialize mongo store:", err)
		}
		contentStore = mongoRepo
		log.Printf("Using mongo content store (database %s)", cfg.MongoDB)
	default:
		contentStore = repository.NewContentRepository(db)
		log.Printf("Using sqlite content store (%s)", cfg.DatabasePath)
	}

	// Initialize TMDB service
	tmdbService := services.NewTMDBService(cfg.TMDB())
	if cfg.TMDBBackupAPIKey == "" {
		log.Println("Warning: TMDB_API_KEY_BACKUP not set - rate limits will not fall back")
	}

	catalogSync := jobs.NewCatalogSync(tmdbService, contentStore, syncRunRepo)
	jobManager := jobs.NewManager(catalogSync, syncRunRepo, jobs.ManagerConfig{
		WarmOnStart:     cfg.WarmOnStart,
		WarmConcurrency: cfg.WarmConcurrency,
		RunRetention:    cfg.RunRetention,
	})
	jobManager.Start()
	defer jobManager.Stop()

	app := &App{
		contentStore: contentStore,
		syncRunRepo:  syncRunRepo,
		catalogSync:  catalogSync,
		jobManager:   jobManager,
	}

	log.Printf("Server starting on %s", cfg.ListenAddr)
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      app.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // a sync page may enrich 20 items upstream
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shut down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Server error: %v", err)
	}
}

func (app *App) router() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/health", healthHandler).Methods("GET")

	// API routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Sync endpoints
	api.HandleFunc("/movies/popular", app.popularHandler(models.KindMovie)).Methods("GET")
	api.HandleFunc("/tv/popular", app.popularHandler(models.KindTV)).Methods("GET")
	api.HandleFunc("/content/trending", app.trendingHandler).Methods("GET")
	api.HandleFunc("/content/search", app.searchHandler).Methods("GET")
	api.HandleFunc("/genres/{genre_id}/movies", app.genreHandler(models.KindMovie)).Methods("GET")
	api.HandleFunc("/genres/{genre_id}/tv", app.genreHandler(models.KindTV)).Methods("GET")

	// Mirror reads
	api.HandleFunc("/content/{id}", app.getContentHandler).Methods("GET")
	api.HandleFunc("/movies", app.listContentHandler(models.KindMovie)).Methods("GET")
	api.HandleFunc("/tv", app.listContentHandler(models.KindTV)).Methods("GET")
	api.HandleFunc("/sync/runs", app.syncRunsHandler).Methods("GET")
	api.HandleFunc("/sync/warm", app.warmHandler).Methods("POST")

	return r
}
