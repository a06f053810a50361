//go:build integration
// +build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func memcachedAddr() string {
	if a := os.Getenv("MEMCACHED_ADDRS"); a != "" {
		return a
	}
	return "localhost:11211"
}

// TestMemcachedCache_GetSet_Integration verifies that MemcachedCache stores and
// retrieves values when a memcached server is available.
func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c, err := NewMemcachedCache(memcachedAddr(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "forecast:metric:Taipei", []byte("v1"), time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, "forecast:metric:Taipei")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(got) != "v1" {
		t.Errorf("Get() = %q, %v; want v1, true", got, ok)
	}
}

// TestMemcachedCache_DeletePrefix_Integration verifies namespace invalidation.
func TestMemcachedCache_DeletePrefix_Integration(t *testing.T) {
	c, err := NewMemcachedCache(memcachedAddr(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "current_weather:metric:Taipei", []byte("v1"), time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}
	if err := c.DeletePrefix(ctx, "current_weather:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "current_weather:metric:Taipei"); ok {
		t.Error("Get() ok = true after DeletePrefix, want false")
	}
	if err := c.DeletePrefix(ctx, "current_weather:metric:"); err == nil {
		t.Error("DeletePrefix() with multi-segment prefix should fail")
	}
}

// TestMemcachedCache_Get_Miss_Integration verifies ok=false for unknown keys.
func TestMemcachedCache_Get_Miss_Integration(t *testing.T) {
	c, err := NewMemcachedCache(memcachedAddr(), 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "nonexistent:metric:x")
	if err != nil {
		t.Skipf("Get failed (memcached may not be running): %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}
