package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpx "github.com/splax/ledger/internal/http"
	"github.com/splax/ledger/internal/repository/store"
	"github.com/splax/ledger/internal/service/auth"
	"github.com/splax/ledger/internal/service/ledger"
	"github.com/splax/ledger/pkg/config"
	jwtpkg "github.com/splax/ledger/pkg/jwt"
	"github.com/splax/ledger/pkg/logger"
)

func main() {
	cfg, loadErr := config.LoadAPIConfig()
	log := logger.New("ledger-api", logger.ParseLevel(cfg.LogLevel))

	if err := errors.Join(loadErr, cfg.Validate()); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if cfg.MigrateOnStart {
		runner, err := db.Migrator(log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	authority, err := jwtpkg.NewAuthority(cfg.JWTSecret)
	if err != nil {
		log.Error("failed to configure token authority", "error", err)
		os.Exit(1)
	}

	authSvc := auth.New(db.Users(), authority, log)
	ledgerSvc := ledger.New(db.Tags(), db.Transactions(), log)
	router := httpx.NewRouter(log, authSvc, ledgerSvc, authority, cfg.BasePath, db.Ping)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment, "dialect", db.Dialect(), "base_path", cfg.BasePath)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			db.Close()
			os.Exit(1)
		}
	}
}
