// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Slate-broker is the session and delivery engine between e-paper
// display devices and HLSS backend services. Devices poll it over HTTP
// for rendered frames and push button events to it; backends push
// frames into it and are called back for status, frame sends, and
// forwarded inputs. It never pushes to a device.
package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/config"
	"github.com/slateworks/slate/lib/devicetoken"
	"github.com/slateworks/slate/lib/framestore"
	"github.com/slateworks/slate/lib/secret"
	"github.com/slateworks/slate/lib/service"
	"github.com/slateworks/slate/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "path to config file (falls back to SLATE_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("slate-broker %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting slate-broker",
		"version", version.Info(),
		"environment", string(cfg.Environment),
		"listen_addr", cfg.Server.ListenAddr,
		"base_url", cfg.Server.BaseURL)

	signingKey, err := loadSigningKey(cfg, logger)
	if err != nil {
		return err
	}

	var encryptionKey *secret.Buffer
	if cfg.Storage.FrameEncryptionKeyFile != "" {
		encryptionKey, err = secret.ReadFromPath(cfg.Storage.FrameEncryptionKeyFile)
		if err != nil {
			return fmt.Errorf("frame encryption key: %w", err)
		}
		defer encryptionKey.Close()
		logger.Info("frame at-rest encryption enabled")
	}

	wallClock := clock.Real()

	store, err := OpenStore(StoreConfig{
		Path:   cfg.Storage.DatabasePath,
		Clock:  wallClock,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer store.Close()

	frames, err := framestore.Open(framestore.Config{
		Path:          cfg.Storage.FrameDatabasePath,
		Clock:         wallClock,
		Logger:        logger,
		EncryptionKey: encryptionKey,
	})
	if err != nil {
		return fmt.Errorf("opening frame store: %w", err)
	}
	defer frames.Close()

	engine, err := NewEngine(EngineConfig{
		Store:               store,
		Frames:              frames,
		Authority:           devicetoken.NewAuthority(signingKey),
		Clock:               wallClock,
		Logger:              logger,
		BrokerBaseURL:       cfg.Server.BaseURL,
		HLSSTimeout:         cfg.HLSSTimeout(),
		AccessTokenTTL:      cfg.AccessTokenTTL(),
		RefreshTokenTTL:     cfg.RefreshTokenTTL(),
		PollIntervalMS:      cfg.Delivery.PollIntervalMS,
		SleepIntervalMS:     cfg.Delivery.SleepIntervalMS,
		InputEventRetention: cfg.InputEventRetention(),
		FrameRetention:      cfg.FrameRetention(),
		RetentionInterval:   cfg.RetentionInterval(),
	})
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedFile != "" {
		seed, err := ReadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := engine.ApplySeed(ctx, seed); err != nil {
			return fmt.Errorf("applying seed: %w", err)
		}
	}

	api, err := NewAPI(APIConfig{
		Engine:        engine,
		Store:         store,
		Logger:        logger,
		AdminToken:    cfg.Auth.AdminToken,
		MaxFrameBytes: cfg.Storage.MaxFrameBytes,
	})
	if err != nil {
		return err
	}
	if cfg.Auth.AdminToken == "" {
		logger.Warn("no admin_token configured; the admin API is disabled")
	}

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.Server.ListenAddr,
		Handler: api.Routes(),
		Logger:  logger,
	})

	// The engine's background work (retention sweeps, notify workers)
	// and the HTTP server share the signal context; whichever exits
	// first takes the other down with it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Run(runCtx)
	}()

	serveErr := server.Serve(ctx)
	cancel()
	engineErr := <-engineDone

	if serveErr != nil {
		return serveErr
	}
	if engineErr != nil && !errors.Is(engineErr, context.Canceled) {
		return engineErr
	}

	logger.Info("shutdown complete")
	return nil
}

// loadSigningKey loads the configured token signing key, creating it
// on first boot. With no file configured it generates an ephemeral
// key: fine for development, but every restart invalidates all
// outstanding device tokens.
func loadSigningKey(cfg *config.Config, logger *slog.Logger) (ed25519.PrivateKey, error) {
	if cfg.Auth.SigningKeyFile == "" {
		key, err := devicetoken.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
		logger.Warn("no signing_key_file configured; using an ephemeral token signing key, " +
			"all outstanding device tokens are invalidated on restart")
		return key, nil
	}

	key, generated, err := devicetoken.LoadOrGenerateKey(cfg.Auth.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	if generated {
		logger.Info("generated new token signing key", "path", cfg.Auth.SigningKeyFile)
	}
	return key, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
