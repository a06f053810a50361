package cache

import (
	"context"
	"testing"
	"time"
)

// TestInMemoryCache_GetSet verifies that Set stores values and Get retrieves them.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	if err := c.Set(ctx, "current_weather:metric:Taipei", []byte(`{"city":"Taipei"}`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "current_weather:metric:Taipei")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != `{"city":"Taipei"}` {
		t.Errorf("Get() = %s", got)
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false for unknown keys.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	_, ok, err := NewInMemoryCache().Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that expired entries miss and are removed.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"), 10*time.Minute)
	now = now.Add(10*time.Minute + time.Second)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() ok = true, want false for expired entry")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0 after expired access", n)
	}
}

// TestInMemoryCache_ValuesAreCopied verifies callers cannot mutate stored bytes.
func TestInMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	val := []byte("abc")
	_ = c.Set(ctx, "k", val, time.Minute)
	val[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	got[1] = 'y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value = %s, want abc", again)
	}
}

func TestInMemoryCache_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	_ = c.Set(ctx, "current_weather:metric:Taipei", []byte("1"), time.Minute)
	_ = c.Set(ctx, "current_weather:imperial:Taipei", []byte("2"), time.Minute)
	_ = c.Set(ctx, "forecast:metric:Taipei", []byte("3"), time.Minute)

	if err := c.DeletePrefix(ctx, "current_weather:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "current_weather:metric:Taipei"); ok {
		t.Error("current_weather entry survived DeletePrefix")
	}
	if _, ok, _ := c.Get(ctx, "forecast:metric:Taipei"); !ok {
		t.Error("forecast entry removed by unrelated DeletePrefix")
	}
}

func TestSplitNamespace(t *testing.T) {
	tests := []struct{ key, ns, rest string }{
		{"current_weather:metric:Taipei", "current_weather", "metric:Taipei"},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		ns, rest := splitNamespace(tt.key)
		if ns != tt.ns || rest != tt.rest {
			t.Errorf("splitNamespace(%q) = %q, %q", tt.key, ns, rest)
		}
	}
}

func TestExpirationSeconds(t *testing.T) {
	if got := expirationSeconds(10 * time.Minute); got != 600 {
		t.Errorf("expirationSeconds(10m) = %d, want 600", got)
	}
	if got := expirationSeconds(0); got != 3600 {
		t.Errorf("expirationSeconds(0) = %d, want 3600", got)
	}
}
