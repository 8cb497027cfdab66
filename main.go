package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/findsforliving-lab/finds4livingbot/config"
	"github.com/findsforliving-lab/finds4livingbot/database"
	"github.com/findsforliving-lab/finds4livingbot/extractor"
	"github.com/findsforliving-lab/finds4livingbot/fetcher"
	"github.com/findsforliving-lab/finds4livingbot/handlers"
	"github.com/findsforliving-lab/finds4livingbot/middleware"
	"github.com/findsforliving-lab/finds4livingbot/repository"
	"github.com/findsforliving-lab/finds4livingbot/scheduler"
	"github.com/findsforliving-lab/finds4livingbot/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	engine := extractor.NewEngine()
	pageFetcher := fetcher.New(cfg.RequestHeaders(), cfg.RequestTimeout)

	var browser *fetcher.BrowserFetcher
	if cfg.UseBrowser {
		var err error
		browser, err = fetcher.NewBrowserFetcher()
		if err != nil {
			log.Printf("Failed to start browser, falling back to plain HTTP: %v", err)
		} else {
			defer browser.Close()
		}
	}

	var repo *repository.ProductRepository
	var checker *scheduler.PriceChecker
	if cfg.DatabaseURL != "" {
		db, err := database.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := database.CreateTables(db); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		repo = repository.NewProductRepository(db)
	} else {
		log.Println("DATABASE_URL not set, product tracking disabled")
	}

	drafts := services.NewDraftStore(cfg.DraftTTL)
	defer drafts.Stop()

	h := handlers.NewHandlers(engine, pageFetcher, browser, repo, drafts, cfg.MaxTaskWorkers)
	defer h.Stop()

	if repo != nil {
		checker = scheduler.NewPriceChecker(repo, h.ExtractFromURL, cfg.CheckSchedule, cfg.RetrySchedule)
		if err := checker.Start(); err != nil {
			log.Fatalf("Failed to start price checker: %v", err)
		}
		defer checker.Stop()
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	api.Use(middleware.APIKeyMiddleware(cfg.APIKey))

	api.HandleFunc("/extract", h.ExtractProduct).Methods(http.MethodPost)
	api.HandleFunc("/extract-async", h.ExtractProductAsync).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.GetTaskStats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)

	api.HandleFunc("/products", h.TrackProduct).Methods(http.MethodPost)
	api.HandleFunc("/products", h.GetProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.DeleteProduct).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}/refresh", h.RefreshProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/history", h.GetPriceHistory).Methods(http.MethodGet)

	api.HandleFunc("/drafts/{userID}", h.CreateDraft).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{userID}", h.GetDraft).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{userID}", h.UpdateDraft).Methods(http.MethodPatch)
	api.HandleFunc("/drafts/{userID}", h.DeleteDraft).Methods(http.MethodDelete)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
