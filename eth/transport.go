package eth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitedTransport delays calls so that no more than rps requests per
// second reach the node. Waiting honours the caller's context.
type RateLimitedTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps next with a token bucket of the given rate
// and burst. A non-positive rps disables limiting.
func NewRateLimitedTransport(next Transport, rps float64, burst int) *RateLimitedTransport {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (t *RateLimitedTransport) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.CallContext(ctx, result, method, args...)
}

// LoggingTransport logs every call at debug level.
type LoggingTransport struct {
	next Transport
	log  *logrus.Logger
}

func NewLoggingTransport(next Transport, log *logrus.Logger) *LoggingTransport {
	return &LoggingTransport{next: next, log: log}
}

func (t *LoggingTransport) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	start := time.Now()
	err := t.next.CallContext(ctx, result, method, args...)
	entry := t.log.WithFields(logrus.Fields{
		"method":   method,
		"params":   len(args),
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Debug("RPC call failed")
		return err
	}
	entry.Debug("RPC call")
	return nil
}
