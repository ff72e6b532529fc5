package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sendhub/sendhub/config"
	"github.com/sendhub/sendhub/handlers"
	"github.com/sendhub/sendhub/logger"
	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/queue"
	"github.com/sendhub/sendhub/service"
	"github.com/sendhub/sendhub/store"
	"github.com/sendhub/sendhub/utils"
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
	utils.SetDevelopment(cfg.IsDevelopment())

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Sugar.Fatalw("mongodb connect", "error", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Sugar.Errorw("mongodb disconnect", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Sugar.Fatalw("ensure indexes", "error", err)
	}
	if _, err := db.EnsureFreePlan(ctx); err != nil {
		logger.Sugar.Fatalw("ensure free plan", "error", err)
	}

	mailer := service.NewMailer(cfg.SMTPEncryptionKey)
	q := buildQueue(cfg, db, mailer)
	defer func() {
		if err := q.Close(); err != nil {
			logger.Sugar.Errorw("queue close", "error", err)
		}
	}()

	authHandler := &handlers.AuthHandler{Store: db, JWTSecret: cfg.JWTSecret}
	emailHandler := &handlers.EmailHandler{Store: db, Queue: q}
	smtpHandler := &handlers.SmtpHandler{Store: db, Mailer: mailer, EncKey: cfg.SMTPEncryptionKey}
	templateHandler := &handlers.TemplateHandler{Store: db}
	groupHandler := &handlers.GroupHandler{Store: db}
	apiKeyHandler := &handlers.ApiKeyHandler{Store: db}
	logHandler := &handlers.LogHandler{Store: db}
	keyAuth := &middleware.APIKeyAuth{Store: db}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to sendhub."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/client", func(r chi.Router) {
		r.Use(middleware.DashboardCORS())
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/signin", authHandler.Signin)
		// Protected dashboard routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.JWTSecret))
			r.Get("/smtp", smtpHandler.Get)
			r.Post("/smtp", smtpHandler.Save)
			r.Post("/smtp/test", smtpHandler.Test)
			r.Get("/templates", templateHandler.List)
			r.Post("/templates", templateHandler.Create)
			r.Delete("/templates/{id}", templateHandler.Delete)
			r.Get("/contact-groups", groupHandler.List)
			r.Post("/contact-groups", groupHandler.Create)
			r.Put("/contact-groups/{id}", groupHandler.Update)
			r.Delete("/contact-groups/{id}", groupHandler.Delete)
			r.Get("/api-keys", apiKeyHandler.List)
			r.Post("/api-keys", apiKeyHandler.Create)
			r.Put("/api-keys/{id}", apiKeyHandler.Update)
			r.Delete("/api-keys/{id}", apiKeyHandler.Delete)
			r.Get("/logs", logHandler.List)
		})
	})

	// Service API: API-key + origin authorization, CORS handled per key.
	r.Route("/api/services/email", func(r chi.Router) {
		r.Use(keyAuth.Handler)
		r.Post("/send", emailHandler.Send)
		r.Post("/send-group", emailHandler.SendGroup)
		r.Get("/templates", emailHandler.Templates)
		r.Get("/groups", emailHandler.Groups)
		r.Get("/queue-status", emailHandler.QueueStatus)
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Sugar.Infow("server listening", "port", cfg.Port, "queueDriver", cfg.QueueDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar.Fatalw("server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorw("shutdown", "error", err)
	}
}

// buildQueue selects the dispatch queue. Redis is the production path; memory
// runs the full pipeline in-process for single-binary deployments and tests.
func buildQueue(cfg *config.Config, db *store.DB, mailer *service.Mailer) queue.Queue {
	if cfg.QueueDriver == "memory" {
		pipeline := &worker.Pipeline{Store: db, Sender: mailer}
		return queue.NewMemoryQueue(pipeline.Process, cfg.MaxJobAttempts)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	return queue.NewRedisQueue(client, "server", cfg.MaxJobAttempts)
}
