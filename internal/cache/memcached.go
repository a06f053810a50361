package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "cityweather:"

// MemcachedCache implements Cache using memcached. Memcached cannot enumerate
// keys, so every key lives in a namespace (its first ":" segment) whose
// generation counter is embedded in the stored key. DeletePrefix bumps the
// generation, which orphans the old entries until they expire.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func splitNamespace(key string) (ns, rest string) {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func generationKey(ns string) string {
	return keyPrefix + "ns:" + ns
}

func (c *MemcachedCache) generation(ns string) (string, error) {
	item, err := c.client.Get(generationKey(ns))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (c *MemcachedCache) key(k string) (string, error) {
	ns, rest := splitNamespace(k)
	gen, err := c.generation(ns)
	if err != nil {
		return "", err
	}
	return keyPrefix + ns + ":" + gen + ":" + rest, nil
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	k, err := c.key(key)
	if err != nil {
		return nil, false, err
	}
	item, err := c.client.Get(k)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	k, err := c.key(key)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        k,
		Value:      value,
		Expiration: expirationSeconds(ttl),
	})
}

func expirationSeconds(ttl time.Duration) int32 {
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600 // fallback 1h if invalid
	}
	return expSec
}

// DeletePrefix invalidates a whole namespace. prefix must be a single segment,
// optionally followed by ":".
func (c *MemcachedCache) DeletePrefix(ctx context.Context, prefix string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	ns := strings.TrimSuffix(prefix, ":")
	if ns == "" || strings.Contains(ns, ":") {
		return fmt.Errorf("memcached: prefix %q is not a namespace", prefix)
	}
	gk := generationKey(ns)
	if _, err := c.client.Increment(gk, 1); err == nil {
		return nil
	} else if !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	err := c.client.Add(&memcache.Item{Key: gk, Value: []byte(strconv.Itoa(1))})
	if errors.Is(err, memcache.ErrNotStored) {
		_, err = c.client.Increment(gk, 1)
	}
	return err
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping(ctx context.Context) error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
