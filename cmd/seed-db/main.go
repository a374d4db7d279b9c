// Command seed-db populates the database with randomized customers and
// products so order generation has data to work against.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ordax/salesdesk/internal/storage/postgres"
)

var firstNames = []string{
	"Alex", "Casey", "Dana", "Eli", "Iris", "Jordan", "Kai", "Lena",
	"Mika", "Noel", "Priya", "Quinn", "Remy", "Sasha", "Tess", "Yuri",
}

var lastNames = []string{
	"Adams", "Baker", "Chen", "Diaz", "Evans", "Fischer", "Gupta", "Hopper",
	"Ivanov", "Jensen", "Kim", "Lopez", "Moreau", "Nakamura", "Okafor", "Park",
}

var productCategories = []string{
	"Phone", "Laptop", "Tablet", "Wearable", "Headphones",
	"Storage", "Router", "Printer", "Gamepad", "Camera",
}

var productBrands = []string{
	"Aureus", "Borealis", "Cobalt", "Dynamo", "Evergreen", "Flux",
	"Gradient", "Helix", "Ion", "Juniper", "Kestrel", "Lumen",
}

func main() {
	var (
		databaseURL string
		customers   int
		products    int
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&customers, "customers", 1000, "number of customers to create")
	flag.IntVar(&products, "products", 1000, "number of products to create")
	flag.IntVar(&workers, "workers", 4, "concurrent insert workers")
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

	if err := run(ctx, databaseURL, customers, products, workers); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, customers, products, workers int) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCustomers(ctx, pool, customers, workers); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedProducts(ctx, pool, products, workers); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count, workers int) error {
	slog.Info("seeding customers", slog.Int("count", count))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range count {
		g.Go(func() error {
			name := firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))]
			// The sequence number keeps generated emails unique.
			email := fmt.Sprintf("%s.%d@example.test", lastNames[rand.IntN(len(lastNames))], i)

			_, err := pool.Exec(ctx,
				`INSERT INTO customers (name, email) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
				name, email)
			return err
		})
	}
	return g.Wait()
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, count, workers int) error {
	slog.Info("seeding products", slog.Int("count", count))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for range count {
		g.Go(func() error {
			name := productBrands[rand.IntN(len(productBrands))] + " " + productCategories[rand.IntN(len(productCategories))]
			if rand.Float64() > 0.3 {
				name = fmt.Sprintf("%s %d", name, 100+rand.IntN(900))
			}
			// Price in [99.99, 9999.99), stock in [10, 200].
			price := decimal.NewFromFloat(99.99 + rand.Float64()*9900).Round(2)
			stock := 10 + rand.IntN(191)

			_, err := pool.Exec(ctx,
				`INSERT INTO products (name, price, stock_quantity) VALUES ($1, $2, $3)`,
				name, price, stock)
			return err
		})
	}
	return g.Wait()
}
