package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decide si una key (p.ej. IP del cliente) puede hacer otro request en la ventana actual.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

const keyPrefix = "qr_rate_limit:"

// RedisLimiter: ventana fija con INCR + EXPIRE en un TxPipeline.
// Compartido entre instancias del servicio.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)
	resetAt := windowStart.Add(l.window)

	k := fmt.Sprintf("%s%s:%d", keyPrefix, key, windowStart.Unix())

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis exec: %w", err)
	}

	return decide(int(incr.Val()), l.limit, resetAt), nil
}

// MemoryLimiter: misma ventana fija, en proceso (modo dev / una sola instancia).
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	buckets map[string]memoryBucket
}

type memoryBucket struct {
	windowStart time.Time
	count       int
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]memoryBucket),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if !b.windowStart.Equal(windowStart) {
		b = memoryBucket{windowStart: windowStart}
		// limpieza perezosa de ventanas viejas
		for k, old := range l.buckets {
			if old.windowStart.Before(windowStart) {
				delete(l.buckets, k)
			}
		}
	}
	b.count++
	l.buckets[key] = b

	return decide(b.count, l.limit, windowStart.Add(l.window)), nil
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// KeyFunc extrae la identidad del cliente desde el request.
type KeyFunc func(r *http.Request) string

// OnEvent recibe rechazos y errores del limiter (logging/métricas).
type OnEvent func(r *http.Request, key string, err error)

// Middleware aplica el limiter. Si el backend falla, deja pasar el request (fail open)
// y avisa por onError.
func Middleware(l Limiter, keyFn KeyFunc, onRejected, onError OnEvent) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(keyFn(r))
			if key == "" {
				key = "unknown"
			}

			d, err := l.Allow(r.Context(), key)
			if err != nil {
				if onError != nil {
					onError(r, key, err)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				if onRejected != nil {
					onRejected(r, key, nil)
				}
				retry := int(time.Until(d.ResetAt).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
