// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	_ "media-job-service/docs"
	"media-job-service/internal/config"
	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
	"media-job-service/internal/executor/artifact"
	"media-job-service/internal/executor/convert"
	"media-job-service/internal/executor/download"
	"media-job-service/internal/repository/postgresql"
	"media-job-service/internal/repository/rabbitmq"
	redisrepo "media-job-service/internal/repository/redis"
	"media-job-service/internal/service"
	httptransport "media-job-service/internal/transport/http"
	"media-job-service/internal/worker"
)

// @title Media Job Service API
// @version 1.0
// @description Queue, track and control media download and conversion jobs.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("[server] config %s", cfg)

	checkTools(download.Command, convert.FFmpegCommand, convert.FFprobeCommand)

	for _, dir := range []string{cfg.DownloadDir, cfg.MediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	var (
		recorders []worker.Recorder
		archive   service.JobArchive
		mirror    service.ProgressMirror
		apiMW     []func(http.Handler) http.Handler
	)

	// Postgres (history)
	if cfg.PostgresDSN != "" {
		pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("pg: %v", err)
		}
		defer pool.Close()
		if err := postgresql.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("pg schema: %v", err)
		}
		repo := postgresql.NewJobRepository(pool)
		archive = repo
		recorders = append(recorders, worker.RecorderFunc(repo.Save))
	}

	// Redis (progress mirror + rate limiting)
	if cfg.RedisAddr != "" {
		rdb, err := redisrepo.NewClient(ctx, redisrepo.Config{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		mirror = redisrepo.NewProgressRepo(rdb)
		apiMW = append(apiMW, httptransport.RateLimit(redisrepo.NewRateCounter(rdb, ""), cfg.RateLimit, cfg.RateWindow))
	}

	// RabbitMQ (lifecycle events)
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
		if err != nil {
			log.Fatalf("rabbitmq publisher: %v", err)
		}
		defer pub.Close()
		recorders = append(recorders, pub)
	}

	var (
		downloader executor.Executor = download.New(cfg.DownloadDir)
		converter  executor.Executor = convert.New(cfg.MediaDir, cfg.DownloadDir)
	)

	// S3 (artifacts)
	if cfg.S3Endpoint != "" {
		store, err := artifact.NewStore(artifact.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			URLTTL:    cfg.S3PresignTTL,
		})
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("s3 bucket: %v", err)
		}
		downloader = artifact.Wrap(downloader, store)
		converter = artifact.Wrap(converter, store)
	}

	// DI
	queue := service.NewQueueStore()
	reporter := service.NewProgressReporter(queue, mirror)
	registry := executor.Registry{
		entity.KindDownload: downloader,
		entity.KindConvert:  converter,
	}
	retry := worker.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}
	processor := worker.NewProcessor(queue, registry, reporter, retry, recorders...)
	workers := worker.NewPool(queue, processor, cfg.Workers, cfg.PollInterval)

	handler := httptransport.NewHandler(service.NewJobService(queue), service.NewHistoryService(archive))
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httptransport.Routes(handler, apiMW...),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		workers.Run(ctx)
	}()

	go func() {
		log.Printf("[server] listening addr=%s workers=%d", cfg.HTTPAddr, cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[server] listen error=%v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] http shutdown error=%v", err)
	}
	wg.Wait()

	log.Println("[server] stopped")
}

// checkTools warns about missing binaries; jobs that need them fail at run time.
func checkTools(names ...string) {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			log.Printf("[server] dependency missing: %s not found in PATH", name)
		}
	}
}
