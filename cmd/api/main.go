package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	config "ftmgedf/configs"
	"ftmgedf/pkg/api"
	"ftmgedf/pkg/auth"
	"ftmgedf/pkg/coordination/etcd"
	"ftmgedf/pkg/logger"
	tracing "ftmgedf/pkg/observability"
	"ftmgedf/pkg/storage/postgres"
	"ftmgedf/pkg/storage/redis"
)

func main() {
	cfg := config.LoadConfig()

	log, err := logger.Init(logger.DefaultConfig("ftmgedf-api"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting up")

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tracingProvider, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "ftmgedf-api",
		Endpoint:     cfg.TracingEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: 1.0,
	})
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer tracingProvider.Shutdown(ctx)

	// Initialize Postgres Store
	connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	store, err := postgres.NewPostgresStore(connStr)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()
	log.Info("postgres connected")

	// Initialize Etcd Coordinator
	etcdCoord, err := etcd.NewEtcdCoordinator(cfg.EtcdEndpoints, cfg.LeaderElectionTTL)
	if err != nil {
		log.Fatal("failed to connect to etcd", zap.Error(err))
	}
	defer etcdCoord.Close()
	log.Info("etcd connected")

	// Initialize Redis Queue
	redisAddr := fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort)
	queue, err := redis.NewRedisQueue(redisAddr)
	if err != nil {
		log.Fatal("failed to initialize redis queue", zap.Error(err))
	}
	defer queue.Close()
	log.Info("redis connected")

	// Create API Server
	apiPort := cfg.APIPort
	if apiPort == "" {
		apiPort = "8080"
	}

	var jwtService *auth.JWTService
	var apiKeyStore auth.APIKeyStore
	if cfg.AuthEnabled {
		if cfg.JWTSecret != "" {
			jwtService, err = auth.NewJWTService(auth.JWTConfig{
				SecretKey:     cfg.JWTSecret,
				Issuer:        cfg.JWTIssuer,
				TokenExpiry:   time.Hour,
				RefreshExpiry: 24 * time.Hour,
			})
			if err != nil {
				log.Fatal("failed to initialize JWT service", zap.Error(err))
			}
		}
		apiKeyStore = auth.NewRedisAPIKeyStore(goredis.NewClient(&goredis.Options{Addr: redisAddr}))
		log.Info("authentication enabled")
	}

	server := api.NewServer(api.Config{
		Port:        apiPort,
		RunStore:    store,
		Queue:       queue,
		Coordinator: etcdCoord,
		Defaults:    cfg,
		AuthEnabled: cfg.AuthEnabled,
		JWTService:  jwtService,
		APIKeyStore: apiKeyStore,
		Tracer:      tracingProvider,
	})

	// Run API server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("port", apiPort))

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}

	cancel()
	log.Info("shutdown complete")
}
