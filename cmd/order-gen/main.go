// Command order-gen generates a large volume of orders against an existing
// database, in batches, retrying transient lock contention per order.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/ordax/salesdesk/internal/batch"
	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		total       int
		batchSize   int
		itemsMin    int
		itemsMax    int
		maxAttempts int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&total, "count", 100_000, "total number of orders to generate")
	flag.IntVar(&batchSize, "batch-size", 1000, "orders per batch")
	flag.IntVar(&itemsMin, "items-min", 1, "minimum line items per order")
	flag.IntVar(&itemsMax, "items-max", 5, "maximum line items per order")
	flag.IntVar(&maxAttempts, "max-attempts", 3, "attempts per order on transient contention")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, total, batchSize, itemsMin, itemsMax, maxAttempts); err != nil {
		slog.Error("order generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, total, batchSize, itemsMin, itemsMax, maxAttempts int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)
	driver := batch.NewDriver(
		order.NewService(store, "order-gen"),
		postgres.NewSampler(pool),
		batch.Config{
			ItemsMin: itemsMin,
			ItemsMax: itemsMax,
			Policy:   batch.Policy{MaxAttempts: maxAttempts},
		},
		postgres.IsTransient,
		zap.NewNop(),
	)

	slog.Info("generating orders", slog.Int("total", total), slog.Int("batch_size", batchSize))

	start := time.Now()
	created := 0
	for done := 0; done < total; done += batchSize {
		target := min(batchSize, total-done)

		res, err := driver.RunBatch(ctx, target)
		created += res.Created
		if err != nil {
			return errors.Wrapf(err, "batch after %d created", created)
		}

		elapsed := time.Since(start)
		slog.Info("batch done",
			slog.String("batch_id", res.BatchID.String()),
			slog.Int("created", res.Created),
			slog.Int("failed", res.Failed),
			slog.Int("attempts", res.Attempts),
			slog.Int("total_created", created),
			slog.Float64("orders_per_sec", float64(created)/elapsed.Seconds()),
		)
	}

	slog.Info("order generation completed",
		slog.Int("created", created),
		slog.Int("requested", total),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
