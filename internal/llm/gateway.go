package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/Veraticus/expensesbot/internal/common"
)

const (
	defaultRetries = 2
	defaultBackoff = time.Second
)

// Gateway wraps a Client with the daily quota, a per-call deadline and a
// bounded retry policy. A nil client means the service is not configured.
type Gateway struct {
	client  Client
	quota   *Quota
	logger  *slog.Logger
	backoff time.Duration
	retries int
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) GatewayOption {
	return func(g *Gateway) {
		if n >= 0 {
			g.retries = n
		}
	}
}

// WithBackoff sets the base delay between retries. The delay doubles on
// every attempt.
func WithBackoff(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.backoff = d }
}

// NewGateway creates a gateway around client. client may be nil.
func NewGateway(client Client, quota *Quota, opts ...GatewayOption) *Gateway {
	if quota == nil {
		quota = NewQuota(0)
	}
	g := &Gateway{
		client:  client,
		quota:   quota,
		logger:  slog.Default(),
		backoff: defaultBackoff,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = common.OrDefault(g.logger)
	return g
}

// Configured reports whether a remote client is available.
func (g *Gateway) Configured() bool {
	return g != nil && g.client != nil
}

// Status returns the current quota status.
func (g *Gateway) Status() RateLimitStatus {
	return g.quota.Status()
}

// Classify submits req to the remote service. Failures are reported as one
// of common.ErrNotConfigured, ErrQuotaExceeded, ErrTimeout or ErrRemote.
func (g *Gateway) Classify(ctx context.Context, req Request, timeout time.Duration) (string, error) {
	if !g.Configured() {
		return "", common.ErrNotConfigured
	}
	release, ok := g.quota.Reserve()
	if !ok {
		return "", common.ErrQuotaExceeded
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reply string
	err := retry.Do(
		func() error {
			out, err := g.client.Complete(callCtx, req)
			if err != nil {
				return err
			}
			reply = out
			return nil
		},
		retry.Context(callCtx),
		retry.Attempts(uint(g.retries+1)),
		retry.Delay(g.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return isTransient(callCtx, err) }),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Debug("retrying remote call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		release()
		return "", g.translate(callCtx, err)
	}
	return reply, nil
}

// isTransient reports whether err is worth another attempt: network errors
// and 5xx replies, as long as the deadline has not passed.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (g *Gateway) translate(ctx context.Context, err error) error {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		g.logger.Warn("Remote service rate limited the request", "provider", statusErr.Provider)
		return fmt.Errorf("%w: %v", common.ErrQuotaExceeded, err)
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", common.ErrTimeout, err)
	default:
		g.logger.Warn("Remote call failed", "error", err)
		return fmt.Errorf("%w: %v", common.ErrRemote, err)
	}
}
