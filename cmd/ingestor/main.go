package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"travel_booking/internal/adapters/feed"
	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/app"
	"travel_booking/internal/shared"
	mysqlrepo "travel_booking/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor", cfg.LogLevel)

	log.Info().
		Str("base", cfg.FeedBase).
		Int("workers", cfg.Workers).
		Int("rps", cfg.FeedRPS).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := feed.New(cfg.FeedBase, cfg.FeedKey, cfg.FeedRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize feed client")
	}
	ing := app.NewIngestionService(client, repo)

	ids, err := ing.ProductIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing feed products failed")
	}
	log.Info().Int("products", len(ids)).Msg("feed listing ok")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var failed atomic.Int32

	for pos, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("ingestion interrupted")
			break
		}

		wg.Add(1)
		go func(productID string, position int) {
			defer wg.Done()
			defer sem.Release(1)

			if err := ing.IngestProduct(ctx, productID, position); err != nil {
				failed.Add(1)
				log.Warn().Str("id", productID).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Str("id", productID).Int("position", position).Msg("ingest ok")
		}(id, pos)
	}

	wg.Wait()
	log.Info().Int("products", len(ids)).Int32("failed", failed.Load()).Msg("ingestion completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
