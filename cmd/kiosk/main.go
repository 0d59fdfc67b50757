// Package main runs the kiosk backend: an offline-first ticket store
// with a localhost REST/WebSocket API and best-effort cloud
// replication.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ctukiosk/backend/cmd/kiosk/handlers"
	"github.com/ctukiosk/backend/internal/db"
	"github.com/ctukiosk/backend/internal/export"
	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/sync"
)

func main() {
	// Optional .env next to the binary; real deployments use systemd
	// environment files.
	_ = godotenv.Load()

	logging.Init(os.Stdout, envOr("KIOSK_LOG_LEVEL", "info"))

	dataDir := envOr("KIOSK_DATA_DIR", "./data")
	database, err := db.Open(dataDir)
	if err != nil {
		logging.Error("failed to open local store", err, logging.Fields{"data_dir": dataDir})
		os.Exit(1)
	}
	defer database.Close()

	if err := db.NewMigrator(database).Up(); err != nil {
		logging.Error("failed to migrate local store", err)
		os.Exit(1)
	}

	repo := db.NewRepository(database)
	defer repo.Close()

	if err := repo.SeedFacilities(); err != nil {
		logging.Error("failed to seed facility catalog", err)
		os.Exit(1)
	}

	engine := sync.NewEngine(repo, nil)
	autoSync := sync.NewAutoSyncRunner(engine)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	autoSync.Start(ctx)
	defer autoSync.Stop()

	hub := NewWSHub()
	header := envOr("KIOSK_RECEIPT_HEADER", "CITY SPORTS COMPLEX")

	tickets := handlers.NewTicketHandler(repo, header)
	facilities := handlers.NewFacilityHandler(repo)
	stats := handlers.NewStatsHandler(repo)
	exports := handlers.NewExportHandler(export.NewService(repo), hub)
	syncAPI := handlers.NewSyncHandler(engine, hub)
	system := handlers.NewSystemHandler(repo)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/tickets", tickets.Create)
	mux.HandleFunc("GET /api/tickets", tickets.List)
	mux.HandleFunc("GET /api/tickets/{ref}", tickets.Get)
	mux.HandleFunc("POST /api/tickets/{ref}/status", tickets.UpdateStatus)
	mux.HandleFunc("GET /api/tickets/{ref}/qr", tickets.QRCode)
	mux.HandleFunc("GET /api/tickets/{ref}/receipt", tickets.Receipt)
	mux.HandleFunc("GET /api/tickets/{ref}/print", tickets.PrintJob)

	mux.HandleFunc("GET /api/facilities", facilities.List)
	mux.HandleFunc("GET /api/facilities/quote", facilities.Quote)

	mux.HandleFunc("GET /api/stats", stats.Revenue)
	mux.HandleFunc("GET /api/export/{format}", exports.Download)

	mux.HandleFunc("POST /api/sync/credentials", syncAPI.Configure)
	mux.HandleFunc("POST /api/sync/test", syncAPI.TestConnection)
	mux.HandleFunc("POST /api/sync/run", syncAPI.Run)
	mux.HandleFunc("GET /api/sync/stats", syncAPI.Stats)
	mux.HandleFunc("POST /api/sync/auto", syncAPI.SetAutoSync)

	mux.HandleFunc("GET /api/health", system.Health)
	mux.HandleFunc("POST /api/maintenance/cleanup", system.Cleanup)

	mux.HandleFunc("GET /ws", HandleWebSocket(hub))

	addr := "localhost:" + envOr("KIOSK_PORT", "8090")
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logging.Info("kiosk backend listening", logging.Fields{"addr": addr, "data_dir": dataDir})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Error("server stopped", err)
		os.Exit(1)
	}
	logging.Info("kiosk backend stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
