package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore returns a fixed-window limiter store shared across API replicas.
func NewRedisStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// ReadLimiter applies a fixed-window quota, such as "120-M", per client IP.
// Store errors are reported to onError and the request is let through.
func ReadLimiter(rate string, store limiter.Store, onError func(error)) (func(http.Handler) http.Handler, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	lim := limiter.New(store, parsed)
	key := KeyByClientIP("read")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lctx, err := lim.Get(r.Context(), key(r))
			if err != nil {
				if onError != nil {
					onError(err)
				}
				next.ServeHTTP(w, r)
				return
			}
			headers := w.Header()
			headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				retryAfter := int(lctx.Reset - time.Now().Unix())
				if retryAfter < 0 {
					retryAfter = 0
				}
				headers.Set("Retry-After", strconv.Itoa(retryAfter))
				tooMany(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
