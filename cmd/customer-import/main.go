// Command customer-import loads customers from gzip-compressed CSV files.
// Each line is "name,email". Duplicate emails are skipped, both within the
// input and against rows already present in the database.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/ordax/salesdesk/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	insertBatch   = 1000
	progressEvery = 100_000
)

// customer is a single parsed input row.
type customer struct {
	name  string
	email string
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: customer-import [flags] file.csv.gz ...")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files); err != nil {
		slog.Error("customer import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("customer import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Seed the filter with emails already in the database. False positives
	// only cause a skipped row; the unique constraint is the real guard.
	seen, err := loadExistingEmails(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load existing emails")
	}

	// One reader streams and deduplicates, one writer batches inserts.
	rows := make(chan customer, insertBatch)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		for _, f := range files {
			if err := readFile(ctx, f, seen, rows); err != nil {
				return errors.Wrapf(err, "read %s", f)
			}
		}
		return nil
	})

	g.Go(func() error {
		return writeCustomers(ctx, pool, rows)
	})

	return g.Wait()
}

func loadExistingEmails(ctx context.Context, pool *pgxpool.Pool) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	dbRows, err := pool.Query(ctx, `SELECT email FROM customers`)
	if err != nil {
		return nil, err
	}
	defer dbRows.Close()

	var count int
	for dbRows.Next() {
		var email string
		if err := dbRows.Scan(&email); err != nil {
			return nil, err
		}
		filter.AddString(email)
		count++
	}
	if err := dbRows.Err(); err != nil {
		return nil, err
	}

	slog.Info("existing emails loaded", slog.Int("count", count))
	return filter, nil
}

// readFile streams one gzip-compressed CSV file, skipping malformed lines and
// emails already seen.
func readFile(ctx context.Context, path string, seen *bloom.BloomFilter, out chan<- customer) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var total, skipped uint64
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		total++
		if total%progressEvery == 0 {
			slog.Info("read progress", slog.String("file", path), slog.Uint64("lines", total))
		}

		name, email, ok := parseLine(scanner.Text())
		if !ok || seen.TestString(email) {
			skipped++
			continue
		}
		seen.AddString(email)

		select {
		case out <- customer{name: name, email: email}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	slog.Info("file complete",
		slog.String("file", path),
		slog.Uint64("lines", total),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

func parseLine(line string) (name, email string, ok bool) {
	name, email, found := strings.Cut(line, ",")
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if !found || name == "" || email == "" || !strings.Contains(email, "@") {
		return "", "", false
	}
	return name, email, true
}

// writeCustomers drains the channel, inserting rows in batches.
func writeCustomers(ctx context.Context, pool *pgxpool.Pool, rows <-chan customer) error {
	batch := make([]customer, 0, insertBatch)
	var written int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := insertCustomers(ctx, pool, batch); err != nil {
			return err
		}
		written += len(batch)
		slog.Info("write progress", slog.Int("written", written))
		batch = batch[:0]
		return nil
	}

	for c := range rows {
		batch = append(batch, c)
		if len(batch) == insertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func insertCustomers(ctx context.Context, pool *pgxpool.Pool, batch []customer) error {
	b := &pgx.Batch{}
	for _, c := range batch {
		b.Queue(
			`INSERT INTO customers (name, email) VALUES ($1, $2) ON CONFLICT (email) DO NOTHING`,
			c.name, c.email)
	}

	br := pool.SendBatch(ctx, b)
	defer func() { _ = br.Close() }()

	for range batch {
		if _, err := br.Exec(); err != nil {
			return errors.Wrap(err, "insert customer")
		}
	}
	return br.Close()
}
