package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/robby/internal/api"
	"github.com/dgallion1/robby/internal/backend"
	"github.com/dgallion1/robby/internal/config"
	"github.com/dgallion1/robby/internal/extract"
	"github.com/dgallion1/robby/internal/session"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. A failed final session save exits 1.
func run() int {
	defaultSession, _ := session.DefaultPath()
	cfg := config.Load(defaultSession)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := backend.NewRegistry(backend.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	stats := extract.NewStats(cfg.StatsWindow)
	store := session.NewStore(cfg.SessionFile, cfg.RecentCapacity, log)

	mgr := session.NewManager(store, registry, stats, session.Options{
		Thresholds: extract.Thresholds{
			MinPrintableRatio:   cfg.MinPrintableRatio,
			AlphaCheckMinGlyphs: cfg.AlphaCheckMinGlyphs,
		},
		RecentCapacity:   cfg.RecentCapacity,
		AutosaveInterval: cfg.AutosaveInterval,
		RestoreWorkers:   cfg.RestoreWorkers,
		SaveRetries:      cfg.SaveRetries,
	}, log)

	report := mgr.Restore(ctx)
	for _, sk := range report.Skipped {
		log.Warn("could not reopen document", "path", sk.Path, "reason", sk.Reason)
	}
	mgr.Start(ctx)

	// Files named on the command line open after the restored tabs.
	for _, path := range os.Args[1:] {
		if _, err := mgr.Open(path); err != nil {
			log.Error("open failed", "path", path, "error", err)
		}
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewServer(mgr, log, cfg.APIToken),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting robby", "addr", cfg.ListenAddr, "session_file", cfg.SessionFile)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case <-sigCh:
		log.Info("shutting down...")
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			code = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	if err := mgr.Shutdown(shutdownCtx); err != nil {
		log.Error("final session save failed", "path", store.Path(), "error", err)
		return 1
	}
	return code
}
