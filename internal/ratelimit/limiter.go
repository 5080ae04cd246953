package ratelimit

import "context"

// RateLimiter paces reminder delivery so a large sweep cannot flood the push
// gateway. Channels are independent buckets.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
