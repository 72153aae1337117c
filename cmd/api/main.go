package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tabletap/tabletap/pkg/auth"
	"github.com/tabletap/tabletap/pkg/config"
	"github.com/tabletap/tabletap/pkg/logging"
	"github.com/tabletap/tabletap/pkg/outbox"
	"github.com/tabletap/tabletap/pkg/shutdown"
	"github.com/tabletap/tabletap/pkg/tracing"

	catalogpg "github.com/tabletap/tabletap/internal/catalog/infrastructure/postgres"
	couponapp "github.com/tabletap/tabletap/internal/coupon/application"
	couponhttp "github.com/tabletap/tabletap/internal/coupon/infrastructure/http"
	couponpg "github.com/tabletap/tabletap/internal/coupon/infrastructure/postgres"
	orderapp "github.com/tabletap/tabletap/internal/order/application"
	orderhttp "github.com/tabletap/tabletap/internal/order/infrastructure/http"
	orderpg "github.com/tabletap/tabletap/internal/order/infrastructure/postgres"
	paymentapp "github.com/tabletap/tabletap/internal/payment/application"
	"github.com/tabletap/tabletap/internal/payment/gateway"
	paymenthttp "github.com/tabletap/tabletap/internal/payment/infrastructure/http"
	paymentpg "github.com/tabletap/tabletap/internal/payment/infrastructure/postgres"
	sessionapp "github.com/tabletap/tabletap/internal/session/application"
	sessionhttp "github.com/tabletap/tabletap/internal/session/infrastructure/http"
	sessionpg "github.com/tabletap/tabletap/internal/session/infrastructure/postgres"
	sessionredis "github.com/tabletap/tabletap/internal/session/infrastructure/redis"
)

func main() {
	log := logging.New()
	cfg := config.Load()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "tabletap-api", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	writer := outbox.NewKafkaWriter(cfg.KafkaBrokers)
	defer writer.Close()

	// Event relay
	store := outbox.NewPGStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.EventsTopic)
	relay := outbox.NewRelay(log, store, dispatch, "tabletap-api-relay")

	// Domain wiring
	catalog := catalogpg.NewReader(log, pool)

	sessionSvc := sessionapp.NewService(log, sessionpg.NewRepository(log, pool), sessionredis.NewCache(rdb), catalog)
	couponSvc := couponapp.NewService(log, couponpg.NewRepository(log, pool))
	orderSvc := orderapp.NewService(log, orderpg.NewRepository(log, pool), catalog, sessionSvc, couponSvc)
	paymentSvc := paymentapp.NewService(log,
		paymentpg.NewRepository(pool),
		orderSvc,
		paymentpg.NewTenantReader(pool),
		gateway.NewRazorpay(cfg.ProviderBaseURL),
		gateway.NewNoPay())

	verifier := auth.NewVerifier(cfg.JWTSecret)
	dev := cfg.Development()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(verifier.Optional)
	r.Mount("/sessions", sessionhttp.NewHandler(log, sessionSvc, dev).Routes())
	r.Mount("/orders", orderhttp.NewHandler(log, orderSvc, dev).Routes())
	r.Mount("/payments", paymenthttp.NewHandler(log, paymentSvc, dev).Routes())
	r.Mount("/coupons", couponhttp.NewHandler(log, couponSvc, dev).Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(ctx)
	})
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("api shutdown complete")
}
