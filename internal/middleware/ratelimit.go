package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "golang.org/x/time/rate"

    "github.com/iliyamo/place-reservation/internal/config"
    "github.com/iliyamo/place-reservation/internal/logging"
)

// NewTokenBucket limits requests per key with a token bucket kept in Redis so
// that every server instance shares one budget.  Without Redis, or when a
// script call fails, the per-process limiter from localBuckets decides.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    cfg = cfg.Normalized()
    local := newLocalBuckets(cfg)
    if rdb == nil {
        return local.middleware()
    }
    shared := &redisBuckets{cfg: cfg, rdb: rdb}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            ctx := c.Request().Context()
            log := logging.FromContext(ctx)

            res, err := shared.take(ctx, key, time.Now())
            if err != nil {
                if cfg.Debug {
                    log.Warn().Err(err).Str("key", key).Msg("ratelimit: redis unavailable, using local bucket")
                }
                return local.decide(c, key, next)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
            if !res.allowed {
                if cfg.Debug {
                    log.Info().Str("key", key).Int64("remaining", res.remaining).Dur("retry", res.retry).Msg("ratelimit: block")
                }
                return tooManyRequests(c, int(math.Ceil(res.retry.Seconds())))
            }
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

// bucketScript refills and takes one token atomically.  It returns
// {allowed, tokens_left, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now_ms

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    last = last + steps * interval_ms
end

local allowed, retry_ms = 0, 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return { allowed, tokens, retry_ms }
`)

// redisBuckets is the shared limiter used when Redis is reachable.
type redisBuckets struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

type bucketResult struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func (r *redisBuckets) take(ctx context.Context, key string, now time.Time) (bucketResult, error) {
    vals, err := bucketScript.Run(ctx, r.rdb, []string{key},
        now.UnixMilli(),
        r.cfg.Capacity,
        r.cfg.RefillTokens,
        r.cfg.RefillInterval.Milliseconds(),
        int64(r.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketResult{}, err
    }
    if len(vals) != 3 {
        return bucketResult{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
    }
    return bucketResult{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    strategy := cfg.KeyStrategy
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    uid := userID(c)
    route := c.Request().Method + " " + c.Path()

    switch strategy {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}

func tooManyRequests(c echo.Context, secs int) error {
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, map[string]any{
        "error":       "too_many_requests",
        "message":     "rate limit exceeded",
        "retry_after": secs,
    })
}

// localBuckets is the per-process fallback: one rate.Limiter per key with the
// same capacity and refill rate as the Redis script.  Idle keys are dropped
// after cfg.TTL.
type localBuckets struct {
    cfg   config.RateLimitConfig
    limit rate.Limit
    now   func() time.Time

    mu        sync.Mutex
    buckets   map[string]*localBucket
    lastSweep time.Time
}

type localBucket struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
    per := cfg.RefillInterval / time.Duration(cfg.RefillTokens)
    return &localBuckets{
        cfg:     cfg,
        limit:   rate.Every(per),
        now:     time.Now,
        buckets: make(map[string]*localBucket),
    }
}

func (l *localBuckets) middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            return l.decide(c, buildRateKey(l.cfg, c), next)
        }
    }
}

func (l *localBuckets) decide(c echo.Context, key string, next echo.HandlerFunc) error {
    now := l.now()
    r := l.get(key, now).ReserveN(now, 1)
    c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
    if delay := r.DelayFrom(now); delay > 0 {
        r.CancelAt(now)
        return tooManyRequests(c, int(math.Ceil(delay.Seconds())))
    }
    return next(c)
}

func (l *localBuckets) get(key string, now time.Time) *rate.Limiter {
    l.mu.Lock()
    defer l.mu.Unlock()
    if now.Sub(l.lastSweep) > l.cfg.TTL {
        for k, b := range l.buckets {
            if now.Sub(b.lastSeen) > l.cfg.TTL {
                delete(l.buckets, k)
            }
        }
        l.lastSweep = now
    }
    b, ok := l.buckets[key]
    if !ok {
        b = &localBucket{lim: rate.NewLimiter(l.limit, l.cfg.Capacity)}
        l.buckets[key] = b
    }
    b.lastSeen = now
    return b.lim
}
