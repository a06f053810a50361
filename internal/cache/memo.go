package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/cityweather/internal/models"
	"github.com/kjstillabower/cityweather/internal/observability"
)

// Operation identifies one memoized gateway call and its TTL.
type Operation struct {
	Name string
	TTL  time.Duration
}

const maxKeyLen = 200

// Memo memoizes fetch results in a Cache, keyed by operation, ambient unit
// preference and arguments. Only successful results are stored. Cache errors
// never fail a lookup; they fall through to the fetch.
type Memo struct {
	cache  Cache
	logger *zap.Logger
	group  singleflight.Group
}

func NewMemo(c Cache, logger *zap.Logger) *Memo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memo{cache: c, logger: logger}
}

// Key builds the cache key "<op>:<units>:<arg1>|<arg2>...". Arguments are
// query-escaped; keys longer than 200 bytes keep the op and units segments and
// hash the rest.
func Key(op string, units models.Units, args []string) string {
	escaped := make([]string, len(args))
	for i, a := range args {
		escaped[i] = url.QueryEscape(a)
	}
	rest := strings.Join(escaped, "|")
	key := op + ":" + string(units) + ":" + rest
	if len(key) <= maxKeyLen {
		return key
	}
	sum := sha256.Sum256([]byte(rest))
	return op + ":" + string(units) + ":h" + hex.EncodeToString(sum[:])
}

// Do returns the cached value for (op, units from ctx, args) or calls fetch,
// caching its result for op.TTL. Concurrent misses for the same key share one
// fetch; a caller whose ctx ends stops waiting without cancelling the others.
func Do[T any](ctx context.Context, m *Memo, op Operation, args []string, fetch func(context.Context) (T, error)) (T, error) {
	key := Key(op.Name, models.UnitsFromContext(ctx), args)
	logger := observability.LoggerFromContext(ctx, m.logger)

	if raw, ok, err := m.cache.Get(ctx, key); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			observability.MemoHitsTotal.WithLabelValues(op.Name).Inc()
			return cached, nil
		}
		logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	observability.MemoMissesTotal.WithLabelValues(op.Name).Inc()
	// The shared fetch outlives any single caller; the gateway timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		result, err := fetch(shared)
		if err != nil {
			return result, err
		}
		m.store(shared, logger, key, op.TTL, result)
		return result, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (m *Memo) store(ctx context.Context, logger *zap.Logger, key string, ttl time.Duration, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.cache.Set(ctx, key, raw, ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every entry of the given operations. Backend failures are
// logged and swallowed.
func (m *Memo) Invalidate(ctx context.Context, ops ...Operation) {
	logger := observability.LoggerFromContext(ctx, m.logger)
	for _, op := range ops {
		observability.CacheInvalidationsTotal.WithLabelValues(op.Name).Inc()
		if err := m.cache.DeletePrefix(ctx, op.Name+":"); err != nil {
			observability.CacheInvalidationErrorsTotal.Inc()
			logger.Warn("cache invalidation failed", zap.String("operation", op.Name), zap.Error(err))
		}
	}
}

// Ping reports whether the cache backend is reachable.
func (m *Memo) Ping(ctx context.Context) error {
	return m.cache.Ping(ctx)
}
