package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	config "ftmgedf/configs"
	"ftmgedf/pkg/coordination/etcd"
	"ftmgedf/pkg/forecast"
	"ftmgedf/pkg/logger"
	tracing "ftmgedf/pkg/observability"
	"ftmgedf/pkg/storage/archive"
	"ftmgedf/pkg/storage/postgres"
	"ftmgedf/pkg/storage/redis"
	"ftmgedf/pkg/sweep"
	"ftmgedf/pkg/worker"
)

// cmd/worker runs both halves of the distributed scenario-sweep
// subsystem in one binary: every instance consumes scenarios off the
// queue and simulates them, and whichever instance wins leader election
// also runs the cron-driven sweep daemon that generates new scenarios
// and reaps orphaned runs.
func main() {
	cfg := config.LoadConfig()

	log, err := logger.Init(logger.DefaultConfig("ftmgedf-worker"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting up")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tracingProvider, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "ftmgedf-worker",
		Endpoint:     cfg.TracingEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: 1.0,
	})
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer tracingProvider.Shutdown(ctx)

	connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	store, err := postgres.NewPostgresStore(connStr)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer store.Close()
	log.Info("postgres connected and schema initialized")

	redisAddr := fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort)
	queue, err := redis.NewRedisQueue(redisAddr)
	if err != nil {
		log.Fatal("failed to initialize redis queue", zap.Error(err))
	}
	defer queue.Close()
	log.Info("redis connected and queue initialized")

	etcdCoord, err := etcd.NewEtcdCoordinator(cfg.EtcdEndpoints, cfg.LeaderElectionTTL)
	if err != nil {
		log.Fatal("failed to connect to etcd", zap.Error(err))
	}
	defer etcdCoord.Close()
	log.Info("connected to etcd")

	archiver, err := archive.NewS3Store(archive.S3Config{
		Bucket:          cfg.ArchiveBucket,
		Prefix:          cfg.ArchivePrefix,
		Region:          cfg.ArchiveRegion,
		Endpoint:        cfg.ArchiveEndpoint,
		AccessKeyID:     cfg.ArchiveAccessKeyID,
		SecretAccessKey: cfg.ArchiveSecretAccessKey,
		LocalCacheDir:   cfg.ArchiveLocalCacheDir,
	})
	if err != nil {
		log.Fatal("failed to initialize archive store", zap.Error(err))
	}

	forecaster := forecast.NewClient(cfg.ForecastURL)

	// Scenario-consuming worker loop: every instance runs this.
	w := worker.NewWorker(cfg, etcdCoord, queue, store, archiver, forecaster, tracingProvider)
	go w.Start(ctx)
	log.Info("simulation loop started")

	// Leader-elected sweep daemon: campaign in the background so a single
	// worker process still does useful simulation work while waiting to
	// become leader.
	go func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "worker-" + uuid.New().String()
		}
		election := etcdCoord.NewElection("ftmgedf-leader")

		log.Info("requesting sweep leadership", zap.String("candidate", hostname))
		if err := election.Campaign(ctx, hostname); err != nil {
			if ctx.Err() == nil {
				log.Error("sweep election campaign failed", zap.Error(err))
			}
			return
		}
		log.Info("won sweep leadership")

		daemon, err := sweep.NewDaemon(cfg, store, queue, etcdCoord, tracingProvider)
		if err != nil {
			log.Fatal("failed to construct sweep daemon", zap.Error(err))
		}
		daemon.Run(ctx, election)
	}()

	sig := <-sigChan
	log.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))

	cancel()
	log.Info("shutdown complete")
}
