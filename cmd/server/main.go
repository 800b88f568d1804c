package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/you/go-airfare-oracle/internal/config"
	"github.com/you/go-airfare-oracle/internal/httpx"
	"github.com/you/go-airfare-oracle/internal/oracle"
	"github.com/you/go-airfare-oracle/internal/service"
	"github.com/you/go-airfare-oracle/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Price oracle: model server behind a prediction cache
	var cache oracle.Cache = oracle.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = oracle.NewRedisCache(rdb)
		slog.Info("quote cache backed by redis", "addr", cfg.RedisAddr)
	}
	model := oracle.NewModelServer(cfg.ModelServerURL, cfg.ModelServerToken, &http.Client{Timeout: cfg.SearchTimeout})
	priceOracle := oracle.NewCached(model, cache, cfg.CacheTTL)

	// Search log: postgres when configured, in-process otherwise
	var searches store.Recorder = store.NewMemorySearchLog(100)
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := store.InitSchema(context.Background(), db); err != nil {
			slog.Error("failed to init schema", "error", err)
			os.Exit(1)
		}
		searches = store.NewPostgresSearchLog(db)
	}

	// Creating services
	sel := service.NewSelector(priceOracle, service.SelectorConfig{
		Airlines:       cfg.Airlines,
		Markup:         cfg.Markup,
		TotalStops:     cfg.TotalStops,
		AdditionalInfo: cfg.AdditionalInfo,
		Routes:         cfg.Routes,
		MaxParallel:    cfg.MaxParallel,
		Timeout:        cfg.SearchTimeout,
	})
	api := &httpx.API{
		Selector:          sel,
		Trend:             service.NewTrendService(sel),
		Bulk:              service.NewBulkPlanner(sel, cfg.MaxParallel),
		Searches:          searches,
		DepartureCities:   cfg.DepartureCities,
		DestinationCities: cfg.DestinationCities,
		StreamInterval:    cfg.StreamInterval,
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler.Handler(httpx.NewRouter(cfg, api)),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // streaming endpoints stay open
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "address", srv.Addr, "airlines", cfg.Airlines)
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			slog.Info("tls enabled")
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("application gracefully shutdown")
}
