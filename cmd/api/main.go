package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"offcampus.org/internal/auth"
	"offcampus.org/internal/httpapi"
	"offcampus.org/internal/obs"
	"offcampus.org/internal/store/pg"
	"offcampus.org/internal/stream"
)

var version = "0.3.1"

func main() {
	// Observability init (metric registration, JSON logger).
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("OFFCAMPUS_COMMIT"))

	dsn := os.Getenv("OFFCAMPUS_PG_DSN")
	if dsn == "" {
		log.Fatal("OFFCAMPUS_PG_DSN is required")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	opts := []auth.LedgerOption{
		auth.WithIssuer(envDefault("OFFCAMPUS_ISSUER", "offcampus-api")),
	}
	if ttl := envDuration("OFFCAMPUS_ACCESS_TTL"); ttl > 0 {
		opts = append(opts, auth.WithAccessTTL(ttl))
	}
	if ttl := envDuration("OFFCAMPUS_REFRESH_TTL"); ttl > 0 {
		opts = append(opts, auth.WithRefreshTTL(ttl))
	}
	if email := os.Getenv("OFFCAMPUS_POLICE_EMAIL"); email != "" {
		opts = append(opts, auth.WithPoliceCredentials(email, os.Getenv("OFFCAMPUS_POLICE_PASSWORD_HASH")))
	}

	ledger, err := auth.NewLedger(
		auth.NewPGTokenStore(store.DB()),
		store,
		os.Getenv("OFFCAMPUS_ACCESS_SECRET"),
		os.Getenv("OFFCAMPUS_REFRESH_SECRET"),
		opts...,
	)
	if err != nil {
		log.Fatalf("token ledger: %v", err)
	}

	hub := stream.New()
	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, ledger, store, hub)

	srv := &http.Server{
		Addr:              envDefault("OFFCAMPUS_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE connections stay open
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting offcampus-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}
