package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/tia/adapters/events"
	"github.com/layer-3/tia/adapters/integration"
	"github.com/layer-3/tia/adapters/store"
	"github.com/layer-3/tia/adapters/tokenizer"
	"github.com/layer-3/tia/core"
	"github.com/layer-3/tia/internal/config"
	tialog "github.com/layer-3/tia/internal/log"
	"github.com/layer-3/tia/ports"
	"github.com/layer-3/tia/service"
	"github.com/layer-3/tia/transport/http"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := tialog.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signKey, err := loadSigningKey(cfg.Session.KeyFile, logger)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Store.Driver == "redis" || cfg.Events.Driver == "redis" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	var kv ports.Store
	if cfg.Store.Driver == "redis" {
		kv = store.NewRedisStore(redisClient)
	} else {
		kv = store.NewMemoryStore()
	}

	var eventPub ports.EventPublisher
	if cfg.Events.Driver == "redis" {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		defer publisher.Close()
		eventPub = events.NewWatermillPublisher(publisher)
	}

	client := integration.NewClient(integration.Config{
		BaseURL: cfg.Integration.BaseURL,
		APIKey:  cfg.Integration.APIKey,
		Timeout: cfg.Integration.Timeout,
	}, logger.Named("integration"))

	verificationService := service.NewVerificationService(
		core.NewProofMessageFactory(cfg.Proof.Description),
		service.NewChallengeStore(kv, cfg.Challenge.TTL),
		client,
		eventPub,
		logger.Named("verification"),
	)

	if info, err := verificationService.ContractInfo(ctx); err != nil {
		logger.Warn("Contract info unavailable at startup", zap.Error(err))
	} else {
		logger.Info("Tracking token contract",
			zap.String("contract_address", info.ContractAddress),
			zap.Int64("block_number", info.BlockNumber),
			zap.Uint("decimals", info.Decimals))
	}

	if cfg.Changes.Enabled {
		tracker := service.NewChangeTracker(client, eventPub, logger.Named("changes"),
			cfg.Changes.Since, cfg.Changes.Interval, cfg.Changes.Backoff)
		go func() {
			if err := tracker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change tracker stopped", zap.Error(err))
			}
		}()
	}

	router := http.SetupRouter(verificationService, tokenizer.NewJWTTokenizer(signKey), http.SessionOptions{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.SecureCookie,
		TTL:        cfg.Session.TTL,
	}, logger.Named("http"))

	server := &stdhttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down server")
	return server.Shutdown(shutdownCtx)
}

// loadSigningKey reads the P-256 session signing key from a PEM file, or
// generates an ephemeral one when no file is configured
func loadSigningKey(path string, logger *zap.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("No session key file configured, sessions will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("session key %s is not PEM encoded", path)
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("session key must use the P-256 curve")
	}

	return key, nil
}
