package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/metrics"
	"taskboard/internal/server"
	"taskboard/internal/storage/sqlite"
	"taskboard/internal/tracing"
	"taskboard/internal/util"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("TASKBOARD_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("TASKBOARD_DB_PATH", "data/taskboard.db"), "Path to sqlite database file")
	staticFlag := flag.String("static", util.EnvOrDefault("TASKBOARD_STATIC_DIR", ""), "Directory with a built web client")
	secretFlag := flag.String("jwt-secret", util.EnvOrDefault("TASKBOARD_JWT_SECRET", ""), "HMAC secret for session tokens")
	ttlFlag := flag.Duration("token-ttl", util.EnvDuration("TASKBOARD_TOKEN_TTL", 24*time.Hour), "Lifetime of issued session tokens")
	adminEmail := flag.String("admin-email", util.EnvOrDefault("TASKBOARD_ADMIN_EMAIL", ""), "Email of the user seeded on startup")
	adminPassword := flag.String("admin-password", util.EnvOrDefault("TASKBOARD_ADMIN_PASSWORD", ""), "Password of the user seeded on startup")
	levelFlag := flag.String("log-level", util.EnvOrDefault("TASKBOARD_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	logger := config.Logger(os.Stdout, *levelFlag)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, "taskboardd")
	if err != nil {
		logger.Error("unable to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if *adminEmail != "" && *adminPassword != "" {
		if _, _, err := store.EnsureUser(ctx, *adminEmail, *adminPassword, "ADMIN"); err != nil {
			logger.Error("unable to seed admin user", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if *secretFlag == "" {
		logger.Warn("TASKBOARD_JWT_SECRET not set; using the development secret")
	}
	tokens := auth.NewTokenManager(*secretFlag, "taskboard", *ttlFlag)
	srv := server.New(store, tokens, metrics.New(), logger).WithStatic(*staticFlag)

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           otelhttp.NewHandler(srv.Engine(), "taskboardd"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", *dbFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("failed to flush traces", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
