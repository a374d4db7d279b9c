// Package postgres implements the storage layer: pool construction, the
// transaction scope, and the repositories behind the domain interfaces.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordax/salesdesk/db"
	"github.com/ordax/salesdesk/internal/domain/customer"
	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// every repository can be bound either to the pool (auto-commit reads) or to
// one transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return errors.Wrap(err, "running migrations")
	}
	return nil
}

var _ order.Store = (*Store)(nil)

// Store implements order.Store. Outside WithinTx its repository accessors are
// pool-bound; inside WithinTx the callback receives repositories bound to a
// single transaction on a dedicated connection.
type Store struct {
	pool *pgxpool.Pool
	repos
}

// repos bundles the repository set bound to one DBTX.
type repos struct {
	customers *CustomerRepository
	products  *ProductRepository
	orders    *OrderRepository
	ledger    *Ledger
}

func newRepos(db DBTX) repos {
	return repos{
		customers: NewCustomerRepository(db),
		products:  NewProductRepository(db),
		orders:    NewOrderRepository(db),
		ledger:    NewLedger(db),
	}
}

func (r repos) Customers() customer.Repository { return r.customers }
func (r repos) Products() product.Repository   { return r.products }
func (r repos) Orders() order.Repository       { return r.orders }
func (r repos) Ledger() inventory.Ledger       { return r.ledger }

// NewStore returns a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: newRepos(pool)}
}

// WithinTx acquires one connection from the pool, starts a transaction on it,
// and runs fn against repositories bound to that transaction. The transaction
// is committed when fn returns nil and rolled back otherwise; the connection
// is always released. Pool exhaustion or an unreachable store surfaces as
// ErrConnectionUnavailable without invoking fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(ErrConnectionUnavailable, err.Error())
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Classify(errors.Wrap(err, "begin transaction"))
	}

	if err := fn(ctx, newRepos(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return Classify(errors.Wrapf(err, "rollback failed: %v", rbErr))
		}
		return Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Classify(errors.Wrap(err, "commit transaction"))
	}
	return nil
}
