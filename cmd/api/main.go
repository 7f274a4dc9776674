package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/imagegen"
	"server/internal/infra"
	"server/internal/payment"
	"server/internal/service"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object storage")
	}

	payments, err := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PublicBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init payment gateway")
	}

	generator := imagegen.NewExecutor(
		imagegen.NewClient(imagegen.Options{
			BaseURL:  cfg.ReplicateBaseURL,
			APIToken: cfg.ReplicateAPIToken,
			Model:    cfg.ReplicateModel,
			Timeout:  cfg.HTTPWriteTimeout,
		}),
		&http.Client{Timeout: cfg.HTTPWriteTimeout},
		logger,
	)

	jobs := service.NewJobs(
		repo.NewJobRepository(dbpool),
		store,
		payments,
		generator,
		service.Options{
			InputBucket:  cfg.InputBucket,
			OutputBucket: cfg.OutputBucket,
			PriceCents:   cfg.GenerationPriceCents,
			Currency:     cfg.GenerationCurrency,
		},
		logger,
	)

	app := &handlers.App{
		Jobs:     jobs,
		Webhooks: payments,
		DB:       dbpool,
		Logger:   logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.SupabaseJWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
