package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/taskping/taskping/internal/request"
)

// DefaultRateLimit is the default rate for unauthenticated endpoints,
// in ulule/limiter formatted notation.
const DefaultRateLimit = "100-M"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RateLimit returns Redis-backed rate limiting middleware. The rate uses
// ulule/limiter formatted notation, e.g. "100-M" for 100 requests per
// minute. Requests are keyed by client IP.
func RateLimit(redisClient *redis.Client, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}

	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	store, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "taskping:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	instance := limiter.New(store, parsed)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(func(r *http.Request) string {
		return request.ClientIP(r)
	}))
	return mw.Handler, nil
}
