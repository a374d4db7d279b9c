package postgres

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConnectionUnavailable indicates a connection could not be acquired from
// the pool (exhausted or store unreachable). The caller may retry the whole
// operation; nothing has been executed.
var ErrConnectionUnavailable = errors.New("database connection unavailable")

// transientCodes are PostgreSQL error codes for contention failures that a
// retry with backoff can resolve: lock_not_available, serialization_failure,
// deadlock_detected.
var transientCodes = map[string]struct{}{
	"55P03": {},
	"40001": {},
	"40P01": {},
}

// TransientError marks a store-reported contention failure. The enclosing
// transaction has been rolled back; the same operation may be retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient store error: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Classify wraps contention failures in TransientError and returns every
// other error unchanged.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := transientCodes[pgErr.Code]; ok {
			return &TransientError{Err: err}
		}
	}
	return err
}

// IsTransient reports whether err is a retryable contention failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
