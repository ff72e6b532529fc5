package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sendhub/sendhub/config"
	"github.com/sendhub/sendhub/logger"
	"github.com/sendhub/sendhub/queue"
	"github.com/sendhub/sendhub/service"
	"github.com/sendhub/sendhub/store"
	"github.com/sendhub/sendhub/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.IsDevelopment()); err != nil {
		panic(err)
	}
	defer logger.Sync()
	config.ValidateEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Sugar.Fatalw("mongodb connect", "error", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Sugar.Errorw("mongodb disconnect", "error", err)
		}
	}()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	consumer := consumerName()
	q := queue.NewRedisQueue(client, consumer, cfg.MaxJobAttempts)
	defer func() {
		if err := q.Close(); err != nil {
			logger.Sugar.Errorw("queue close", "error", err)
		}
	}()

	pipeline := &worker.Pipeline{Store: db, Sender: service.NewMailer(cfg.SMTPEncryptionKey)}
	w, err := worker.New(q, pipeline, cfg.WorkerConcurrency)
	if err != nil {
		logger.Sugar.Fatalw("create worker", "error", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Sugar.Infow("shutting down, finishing in-flight jobs")
		cancel()
	}()

	logger.Sugar.Infow("worker started", "consumer", consumer, "concurrency", cfg.WorkerConcurrency)
	if err := w.Run(ctx); err != nil {
		logger.Sugar.Fatalw("worker", "error", err)
	}
}

// consumerName identifies this worker's processing list so jobs claimed by a
// crashed instance can be reclaimed on restart.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker-" + uuid.NewString()
	}
	return "worker-" + host
}
