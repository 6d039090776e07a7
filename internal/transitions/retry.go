package transitions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
)

// RetryPolicy bounds the backoff applied to transient store failures. It is a
// plain value passed per call so callers (webhook handler vs. batch
// reconciler) can tune independently; there is no package-level default state.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy mirrors the service defaults: 3 attempts, 100ms initial
// delay doubling up to 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Delay returns the pause before the given retry, 1-indexed:
// min(initial × multiplier^(attempt-1), max).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if time.Duration(delay) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d := time.Duration(delay); d < p.MaxDelay {
		return d
	}
	return p.MaxDelay
}

// policyBackoff adapts RetryPolicy onto the go-retry Backoff interface.
// Next reports the delay before retry n+1 and stops once MaxAttempts total
// attempts have been consumed.
type policyBackoff struct {
	policy  RetryPolicy
	retries int
}

func newPolicyBackoff(p RetryPolicy) *policyBackoff {
	return &policyBackoff{policy: p.normalized()}
}

func (b *policyBackoff) Next() (time.Duration, bool) {
	b.retries++
	if b.retries >= b.policy.MaxAttempts {
		return 0, true
	}
	return b.policy.Delay(b.retries), false
}

// runWithRetry executes fn under the policy, retrying only errors classified
// as transient. attempts reports how many times fn ran.
func runWithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) (attempts int, err error) {
	backoff := newPolicyBackoff(policy)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if innerErr := fn(ctx); innerErr != nil {
			if isTransient(innerErr) {
				return retry.RetryableError(innerErr)
			}
			return innerErr
		}
		return nil
	})
	return attempts, err
}

// Postgres SQLSTATE classes that indicate a transient condition: transaction
// rollback (serialization failure, deadlock), connection exceptions,
// insufficient resources, operator intervention.
var transientPGClasses = []string{"40", "08", "53", "57"}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.Retryable(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-query timeout. If the parent context is also done, retry.Do
		// stops on its own.
		return true
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return matchesTransientClass(pgxErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return matchesTransientClass(string(pqErr.Code))
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"database is locked", // sqlite under test
		"too many connections",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func matchesTransientClass(code string) bool {
	for _, class := range transientPGClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	return false
}
