package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "travel_booking/internal/adapters/http_server"
	"travel_booking/internal/adapters/notify"
	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/adapters/rabbitmq"
	redisad "travel_booking/internal/adapters/redis"
	"travel_booking/internal/app"
	"travel_booking/internal/catalog"
	"travel_booking/internal/domain"
	"travel_booking/internal/shared"
	mysqlrepo "travel_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.CatalogSource).Msg("catalog load failed")
	}
	log.Info().Int("products", cat.Len()).Str("version", cat.Version()).Msg("catalog loaded")

	// cache is optional: searches still work against the in-memory catalog
	var cache domain.Cache
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, search cache disabled")
		_ = rc.Close()
	} else {
		cache = rc
		defer rc.Close()
	}

	var emitter domain.ConfirmationEmitter = notify.NewLogEmitter(log.Logger)
	if cfg.AMQPURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq publisher failed")
		}
		defer pub.Close()
		emitter = pub
	}

	q := app.NewQueryService(cat, cache, cfg.CacheTTL)
	b := app.NewBookingService(cat, emitter, cfg.SessionTTL, cfg.NotifyTimeout)
	go b.RunJanitor(ctx, time.Minute)

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, B: b})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func loadCatalog(ctx context.Context, cfg shared.Config) (*catalog.Catalog, error) {
	var products []domain.Product
	switch cfg.CatalogSource {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("database connection ok")
		if products, err = mysqlrepo.New(db).ListProducts(ctx); err != nil {
			return nil, err
		}
	default:
		f, err := os.Open(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if products, err = catalog.Decode(f); err != nil {
			return nil, err
		}
	}
	for i := range products {
		if products[i].Currency == "" {
			products[i].Currency = cfg.Currency
		}
	}
	return catalog.New(products)
}
