// Package batch drives repeated order creation toward a target volume,
// applying a bounded retry policy to transient store contention.
package batch

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordax/salesdesk/internal/domain/order"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// OrderCreator is the single workflow operation the driver needs. The core
// transaction logic stays retry-agnostic; all retry policy lives here.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req order.CreateOrderRequest) (int64, error)
}

// Sampler picks random existing customers and in-stock products to build
// order requests from.
type Sampler interface {
	RandomCustomerID(ctx context.Context) (int64, error)
	RandomProducts(ctx context.Context, n int) ([]product.Product, error)
}

// Policy bounds the retry behavior for one order slot.
type Policy struct {
	// MaxAttempts is the total number of tries per order, including the first.
	MaxAttempts int
	// InitialBackoff is the starting sleep between attempts. Each interval is
	// randomized to desynchronize competing batches.
	InitialBackoff time.Duration
	// MaxBackoff caps the sleep between attempts.
	MaxBackoff time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 5 * time.Second
	}
	return p
}

// Config controls how generated orders look and how failures are retried.
type Config struct {
	// ItemsMin and ItemsMax bound the number of line items per order.
	ItemsMin int
	ItemsMax int
	// MaxQuantity bounds the per-item quantity (further capped by stock).
	MaxQuantity int
	Policy      Policy
}

func (c Config) withDefaults() Config {
	if c.ItemsMin <= 0 {
		c.ItemsMin = 1
	}
	if c.ItemsMax < c.ItemsMin {
		c.ItemsMax = c.ItemsMin + 4
	}
	if c.MaxQuantity <= 0 {
		c.MaxQuantity = 5
	}
	c.Policy = c.Policy.withDefaults()
	return c
}

// Result summarizes one batch run.
type Result struct {
	BatchID   uuid.UUID
	Requested int
	Created   int
	// Failed is the final shortfall: slots that failed validation or
	// exhausted the retry bound.
	Failed   int
	Attempts int
	Elapsed  time.Duration
}

// Driver issues order creations one at a time, sequentially. Transient
// contention failures are retried up to the policy bound with randomized
// exponential backoff; validation failures are permanent for their input and
// counted as failures immediately.
type Driver struct {
	orders    OrderCreator
	sampler   Sampler
	cfg       Config
	transient func(error) bool
	lg        *zap.Logger
}

// NewDriver creates a Driver. transient classifies errors as retryable store
// contention; everything else is treated as permanent.
func NewDriver(orders OrderCreator, sampler Sampler, cfg Config, transient func(error) bool, lg *zap.Logger) *Driver {
	if transient == nil {
		transient = func(error) bool { return false }
	}
	return &Driver{
		orders:    orders,
		sampler:   sampler,
		cfg:       cfg.withDefaults(),
		transient: transient,
		lg:        lg,
	}
}

// RunBatch attempts to create target orders and reports the aggregate
// outcome. A sampler failure aborts the batch and returns the partial result;
// per-order failures only increment the shortfall.
func (d *Driver) RunBatch(ctx context.Context, target int) (Result, error) {
	if target <= 0 {
		return Result{}, errors.New("batch target must be positive")
	}

	res := Result{
		BatchID:   uuid.New(),
		Requested: target,
	}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	lg := d.lg.With(zap.String("batch_id", res.BatchID.String()))
	lg.Info("starting batch", zap.Int("target", target))

	for i := 0; i < target; i++ {
		if err := ctx.Err(); err != nil {
			res.Failed = target - res.Created
			return res, err
		}

		req, err := d.buildRequest(ctx)
		if err != nil {
			res.Failed = target - res.Created
			return res, errors.Wrap(err, "build order request")
		}

		attempts, err := d.createWithRetry(ctx, req)
		res.Attempts += attempts
		if err != nil {
			res.Failed++
			if d.transient(err) {
				lg.Warn("retry bound exhausted",
					zap.Int("slot", i),
					zap.Int("attempts", attempts),
					zap.Error(err))
			} else {
				lg.Debug("order rejected", zap.Int("slot", i), zap.Error(err))
			}
			continue
		}
		res.Created++
	}

	lg.Info("batch finished",
		zap.Int("requested", res.Requested),
		zap.Int("created", res.Created),
		zap.Int("failed", res.Failed),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

// createWithRetry tries one order request under the retry policy and returns
// the number of attempts made.
func (d *Driver) createWithRetry(ctx context.Context, req order.CreateOrderRequest) (int, error) {
	attempts := 0
	op := func() error {
		attempts++
		_, err := d.orders.CreateOrder(ctx, req)
		if err == nil {
			return nil
		}
		if d.transient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.Policy.InitialBackoff
	b.MaxInterval = d.cfg.Policy.MaxBackoff
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(d.cfg.Policy.MaxAttempts-1)), ctx))
	return attempts, err
}

// buildRequest samples a customer and a set of in-stock products, with
// quantities capped by available stock.
func (d *Driver) buildRequest(ctx context.Context) (order.CreateOrderRequest, error) {
	customerID, err := d.sampler.RandomCustomerID(ctx)
	if err != nil {
		return order.CreateOrderRequest{}, err
	}

	n := d.cfg.ItemsMin
	if d.cfg.ItemsMax > d.cfg.ItemsMin {
		n += rand.IntN(d.cfg.ItemsMax - d.cfg.ItemsMin + 1)
	}
	products, err := d.sampler.RandomProducts(ctx, n)
	if err != nil {
		return order.CreateOrderRequest{}, err
	}
	if len(products) == 0 {
		return order.CreateOrderRequest{}, errors.New("no products with stock available")
	}

	items := make([]order.ItemRequest, 0, len(products))
	for _, p := range products {
		maxQty := min(d.cfg.MaxQuantity, p.Stock)
		if maxQty < 1 {
			continue
		}
		items = append(items, order.ItemRequest{
			ProductID: p.ID,
			Quantity:  1 + rand.IntN(maxQty),
		})
	}
	if len(items) == 0 {
		return order.CreateOrderRequest{}, errors.New("no products with stock available")
	}

	return order.CreateOrderRequest{CustomerID: customerID, Items: items}, nil
}
