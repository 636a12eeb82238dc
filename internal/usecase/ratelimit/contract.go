package ratelimit

import (
	"context"
	"time"
)

// Limiter counts hits per key in a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Channel names a search entry point with its own budget.
type Channel string

const (
	// ChannelSearch is the general search bar.
	ChannelSearch Channel = "search"
	// ChannelMarketplace is listing and creator page search.
	ChannelMarketplace Channel = "marketplace"
)

// Policy is a per-channel budget.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicies are the budgets used when config does not override them.
func DefaultPolicies() map[Channel]Policy {
	return map[Channel]Policy{
		ChannelSearch:      {MaxRequests: 60, Window: 60 * time.Second},
		ChannelMarketplace: {MaxRequests: 30, Window: 60 * time.Second},
	}
}
