package cache

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	if err := c.Set(ctx, "latest", []byte(`[1]`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "latest")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || string(got) != `[1]` {
		t.Errorf("Get() = %q, %v, want [1], true", got, ok)
	}
}

func TestInMemoryCache_Get_Miss(t *testing.T) {
	_, ok, err := NewInMemoryCache().Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies expired entries miss and are removed.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(9 * time.Second)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should still be live before its TTL")
	}

	now = now.Add(time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() ok = true, want false at expiry")
	}
	if _, present := c.data["k"]; present {
		t.Error("expired entry should be deleted from cache")
	}
}

func TestInMemoryCache_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'z'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("cached value = %q, want abc", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	type summary struct {
		Region string  `json:"region"`
		AQI    float64 `json:"aqi"`
	}
	in := []summary{{"Pune", 120.5}}
	if err := SetJSON(ctx, c, "top", in, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var out []summary
	ok, err := GetJSON(ctx, c, "top", &out)
	if err != nil || !ok {
		t.Fatalf("GetJSON() = %v, %v", ok, err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("GetJSON() = %+v, want %+v", out, in)
	}

	_ = c.Set(ctx, "broken", []byte("{"), time.Minute)
	if _, err := GetJSON(ctx, c, "broken", &out); err == nil {
		t.Error("GetJSON() on corrupt value should error")
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" a:1, ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("parseAddrs() = %v", got)
	}
}

func TestExpirationSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 1},
		{500 * time.Millisecond, 1},
		{10 * time.Second, 10},
		{1500 * time.Millisecond, 2},
		{365 * 24 * time.Hour, 30 * 24 * 60 * 60},
	}
	for _, tt := range tests {
		if got := expirationSeconds(tt.ttl); got != tt.want {
			t.Errorf("expirationSeconds(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}
