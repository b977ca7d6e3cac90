package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/sgst/sgst-api/internal/config"
)

// takeToken refills whole intervals since the last refill and takes one
// token.  Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
local now, cap, step, every, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local s = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens, at = tonumber(s[1]), tonumber(s[2])
if tokens == nil or at == nil then
    tokens, at = cap, now
end
local n = math.floor(math.max(0, now - at) / every)
if n > 0 then
    tokens = math.min(cap, tokens + n * step)
    at = at + n * every
end
local ok, wait = 0, 0
if tokens > 0 then
    ok, tokens = 1, tokens - 1
else
    wait = math.max(0, every - (now - at))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'at', at)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

type bucketResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketResult, error) {
    vals, err := takeToken.Run(ctx, rdb, []string{key},
        time.Now().UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(vals) != 3 {
        return bucketResult{}, fmt.Errorf("token bucket: unexpected reply %v", vals)
    }
    return bucketResult{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests with a Redis token bucket keyed by
// cfg.KeyStrategy.  Without a client, or when Redis fails, requests pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := take(c.Request().Context(), rdb, cfg, key)
            if err != nil {
                logger.Warn("rate limiter unavailable", slog.String("key", key), slog.Any("error", err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if res.allowed {
                return next(c)
            }

            secs := int((res.retry + time.Second - 1) / time.Second)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                logger.Debug("rate limited", slog.String("key", key), slog.Duration("retry", res.retry))
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// buildRateKey joins the prefix with the components named by the strategy,
// e.g. "ip_route" -> prefix:ip:<ip>:route:<method path>.  Unknown
// strategies key on ip, user and route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    values := map[string]string{
        "ip":    ip,
        "user":  userID(c),
        "route": c.Request().Method + " " + c.Path(),
    }

    names := strings.Split(strings.ToLower(cfg.KeyStrategy), "_")
    for _, n := range names {
        if _, ok := values[n]; !ok {
            names = []string{"ip", "user", "route"}
            break
        }
    }
    parts := []string{cfg.Prefix}
    for _, n := range names {
        parts = append(parts, n, values[n])
    }
    return strings.Join(parts, ":")
}
