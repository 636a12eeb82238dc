package ratelimit

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/logger"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
)

// unknownAddr buckets callers whose address could not be determined.
const unknownAddr = "unknown"

// Gate admits or denies a caller on a channel.
type Gate struct {
	limiter  Limiter
	policies map[Channel]Policy
	logger   *zap.Logger
}

// NewGate creates a Gate. Channels missing from policies are denied.
func NewGate(limiter Limiter, policies map[Channel]Policy, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	p := make(map[Channel]Policy, len(policies))
	for k, v := range policies {
		p[k] = v
	}
	return &Gate{limiter: limiter, policies: p, logger: log}
}

// Check reports whether addr may make another request on channel.
// The bucket key is "{channel}:{addr}". Limiter errors admit the request.
func (g *Gate) Check(ctx context.Context, channel Channel, addr string) bool {
	policy, ok := g.policies[channel]
	if !ok {
		g.logger.Warn("rate limit: unknown channel", zap.String("channel", string(channel)))
		return false
	}
	if addr == "" {
		addr = unknownAddr
	}

	allowed, err := g.limiter.Allow(ctx, Key(channel, addr), policy.MaxRequests, policy.Window)
	if err != nil {
		metrics.RateLimitErrorsTotal.WithLabelValues(string(channel)).Inc()
		g.logger.Warn("rate limiter unavailable, admitting request",
			zap.String("channel", string(channel)),
			logger.SafeError(err),
		)
		return true
	}
	return allowed
}

// Key builds the limiter bucket key.
func Key(channel Channel, addr string) string {
	return string(channel) + ":" + addr
}
