//go:build integration

package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemcachedCache_GetSet_Integration(t *testing.T) {
	c := NewMemcachedCache("localhost:11211", 500*time.Millisecond)
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "integration", []byte(`{"aqi":42}`), time.Minute); err != nil {
		t.Skipf("Set failed (memcached may not be running): %v", err)
	}

	got, ok, err := c.Get(ctx, "integration")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(got) != `{"aqi":42}` {
		t.Errorf("Get() = %q, %v", got, ok)
	}

	_, ok, err = c.Get(ctx, "integration-missing")
	if err != nil || ok {
		t.Errorf("Get() miss = %v, %v, want false, nil", ok, err)
	}
}
