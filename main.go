package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seedkeeper/internal/auth"
	"seedkeeper/internal/commands"
	"seedkeeper/internal/config"
	"seedkeeper/internal/http"
	"seedkeeper/internal/keystore"
	"seedkeeper/internal/metrics"
	"seedkeeper/internal/storage"

	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("seedkeeper", flag.ContinueOnError)
	provision := flags.String("provision", "", "Envelope file to submit to a running service's /decrypt-seed")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logger(os.Stderr))

	if *provision != "" {
		return commands.Provision(*provision, cfg, os.Stdout)
	}

	secrets, err := storage.Open(cfg.SeedStore, cfg.SeedFile, cfg.SeedDB)
	if err != nil {
		return err
	}
	defer func() { _ = secrets.Close() }()

	fileKeys := keystore.NewFileKeyStore(cfg.PrivateKeyFile)
	var keys keystore.KeyStore = fileKeys
	if cfg.KeyCacheTTL > 0 {
		keys = keystore.NewCached(ctx, fileKeys, cfg.KeyCacheTTL)
	}
	// The key is read again on every provisioning request, so a missing key
	// only disables provisioning until it appears.
	if _, err := keys.Load(); err != nil {
		slog.Warn("private key not available", "path", fileKeys.Path(), "error", err)
	}

	m := metrics.New("seedkeeper")
	authService := auth.NewAuthService(keys, secrets, m)

	opsServer := http.NewOpsServer(authService, m, cfg.OpsAddr)
	apiServer := http.NewAPIServer(authService, cfg.APIAddr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(opsServer.Start)
	g.Go(apiServer.Start)

	// Wait for context cancellation (signal) or a server failure
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("ops server shutdown error", "error", err)
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown error", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}
