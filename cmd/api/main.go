package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/johnohhh1/teri-suggestions/internal/api"
	"github.com/johnohhh1/teri-suggestions/internal/auth"
	"github.com/johnohhh1/teri-suggestions/internal/catalog"
	"github.com/johnohhh1/teri-suggestions/internal/config"
	"github.com/johnohhh1/teri-suggestions/internal/history"
	"github.com/johnohhh1/teri-suggestions/internal/suggest"
	"github.com/johnohhh1/teri-suggestions/internal/themes"
	httptransport "github.com/johnohhh1/teri-suggestions/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := history.NewRepository(pool)

	registry, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	vocabulary, err := loadThemes(cfg)
	if err != nil {
		log.Fatalf("failed to load theme vocabulary: %v", err)
	}

	var retriever themes.Retriever
	if cfg.ChromaURL != "" {
		retriever = themes.NewChromaRetriever(cfg.ChromaURL, cfg.ChromaCollection, cfg.EmbedTimeout)
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer rdb.Close()
			retriever = themes.NewCachedRetriever(retriever, rdb, cfg.ThemeCacheTTL)
		}
	}

	extractor := themes.NewExtractor(retriever, vocabulary, themes.Options{
		MaxThemes: cfg.MaxThemes,
		Threshold: cfg.ThemeThreshold,
		Timeout:   cfg.EmbedTimeout,
	})

	service := suggest.NewService(registry, extractor, suggest.WithTopN(cfg.TopN))

	handler := api.NewHandler(service, registry, store, cfg.RecentWindow, nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, nil)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("suggestion-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func loadCatalog(cfg config.Config) (*catalog.Registry, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	return catalog.LoadSeed()
}

func loadThemes(cfg config.Config) ([]themes.Theme, error) {
	if cfg.ThemesPath != "" {
		return themes.LoadThemesFile(cfg.ThemesPath)
	}
	return themes.LoadSeedThemes()
}
