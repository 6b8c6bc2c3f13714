package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ferndesk/portal-checkout/internal/api"
	"github.com/ferndesk/portal-checkout/internal/cartstore"
	"github.com/ferndesk/portal-checkout/internal/checkout"
	"github.com/ferndesk/portal-checkout/internal/config"
	"github.com/ferndesk/portal-checkout/internal/coupon"
	"github.com/ferndesk/portal-checkout/internal/crm"
	"github.com/ferndesk/portal-checkout/internal/intent"
	"github.com/ferndesk/portal-checkout/internal/onboarding"
	"github.com/ferndesk/portal-checkout/internal/processor"
	"github.com/ferndesk/portal-checkout/internal/repository"
	"github.com/ferndesk/portal-checkout/pkg/logger"
)

func main() {
	log := logger.New("checkout-service")

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second
	shutdownTimeout := time.Duration(cfg.ShutdownTimeout) * time.Second

	// Settlement ledger
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	// Cart cache and builder fallback
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	carts := cartstore.NewLoader(
		cartstore.NewRedisStore(redisClient),
		cartstore.NewHTTPBuilder(cfg.BuilderBaseURL, &http.Client{Timeout: requestTimeout}),
		log,
	)

	// Coupon lookup
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := coupon.ConnectMongoDB(mongoCtx, cfg.MongoURI, cfg.MongoDatabase)
	mongoCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	coupons := coupon.NewEngine(coupon.NewMongoLookup(mongoDB, cfg.CouponCollection))

	// Payment processor and client-record system
	proc := processor.NewHTTPClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey, requestTimeout)
	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, requestTimeout)

	// Onboarding handoff
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()
	poller := onboarding.NewPoller(repo, log, cfg.Brokers()...)
	go poller.Run(pollerCtx)

	registry := api.NewRegistry(func(clientID, tier string) *checkout.Session {
		return checkout.NewSession(clientID, tier, cfg.Currency, checkout.Deps{
			Carts:   carts,
			Coupons: coupons,
			Intents: intent.NewOrchestrator(proc, cfg.Currency, log),
			CRM:     crmClient,
			Ledger:  repo,
			Logger:  log,
		})
	}, api.DefaultSessionTTL)
	go registry.RunJanitor(pollerCtx, 10*time.Minute)
	handler := api.NewCheckoutHandler(registry, requestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggerMiddleware(log))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		handler.Routes(r)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "checkout-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("checkout service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	pollerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
}
