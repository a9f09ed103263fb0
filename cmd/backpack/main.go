package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backpack/internal/auth"
	"backpack/internal/config"
	"backpack/internal/courses"
	"backpack/internal/http_server/handlers/catalog"
	"backpack/internal/http_server/handlers/dashboard"
	"backpack/internal/http_server/handlers/login"
	"backpack/internal/http_server/handlers/logout"
	"backpack/internal/http_server/handlers/password"
	"backpack/internal/http_server/handlers/resend"
	"backpack/internal/http_server/handlers/review"
	"backpack/internal/http_server/handlers/signup"
	"backpack/internal/http_server/handlers/submit"
	"backpack/internal/http_server/handlers/verify"
	"backpack/internal/http_server/handlers/whoami"
	"backpack/internal/middleware/authn"
	rateLimit "backpack/internal/middleware/ratelimit"
	"backpack/internal/rabbitmq"
	"backpack/internal/session"
	"backpack/internal/storage/postgres"
	"backpack/internal/storage/redis"
	"backpack/internal/verification"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting backpack", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	challengeStore, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer challengeStore.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	sessions := session.New(cfg.Session.Secret, cfg.Session.TTL, cfg.Env == envProd)

	challenges := verification.New(
		log,
		challengeStore,
		msgBroker,
		cfg.Verification.CodeTTL,
		cfg.Verification.MaxAttempts,
	)

	authService := auth.New(log, storage, storage, challenges, sessions)
	courseCatalog := courses.New(log, storage, storage)

	router := setupRouter(log, authService, courseCatalog, sessions, storage)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	courseCatalog *courses.Catalog,
	sessions *session.Manager,
	accounts auth.AccountProvider,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(rateLimit.Signup()).Post("/signup",
		signup.New(log, validate, authService),
	)
	r.With(rateLimit.Verify()).Post("/verify",
		verify.New(log, validate, authService),
	)
	r.With(rateLimit.ResendVerification()).Post("/verify/resend",
		resend.New(log, validate, authService),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, authService, sessions),
	)
	r.Post("/logout",
		logout.New(log, sessions),
	)
	r.Get("/session",
		whoami.New(log, sessions),
	)
	r.With(rateLimit.ForgotPassword()).Post("/password/forgot",
		password.Forgot(log, validate, authService),
	)
	r.With(rateLimit.Verify()).Post("/password/reset",
		password.Reset(log, validate, authService),
	)

	r.Get("/courses",
		catalog.List(log, courseCatalog),
	)
	r.Get("/courses/{id}",
		catalog.Get(log, courseCatalog),
	)

	r.Group(func(r chi.Router) {
		r.Use(authn.Require(sessions))

		r.With(rateLimit.SubmitCourse()).Post("/courses",
			submit.New(log, validate, courseCatalog, accounts),
		)

		r.Get("/dashboard",
			dashboard.List(log, courseCatalog),
		)
		r.Put("/dashboard/{courseID}",
			dashboard.Save(log, courseCatalog),
		)
		r.Delete("/dashboard/{courseID}",
			dashboard.Remove(log, courseCatalog),
		)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAdmin())

			r.Get("/courses/pending",
				review.Pending(log, courseCatalog),
			)
			r.Post("/courses/{id}/review",
				review.Decide(log, validate, courseCatalog),
			)
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
