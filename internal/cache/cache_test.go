package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("SELECT 1 WHERE x = ?", int64(1))
	b := Key("SELECT 1 WHERE x = ?", int64(1))
	if a != b {
		t.Fatalf("Key() not stable: %q != %q", a, b)
	}
	if a == Key("SELECT 1 WHERE x = ?", int64(2)) {
		t.Error("different args produced the same key")
	}
	if a == Key("SELECT 1 WHERE x = ?", "1") {
		t.Error("args of different types produced the same key")
	}
	if Key("SELECT ?", "a", "b") == Key("SELECT ?", "ab") {
		t.Error("arg boundaries are not part of the key")
	}
}

func TestMemory_HitMissExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("Get() on empty cache reported a hit")
	}

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get() = %q, %v, %v; want v, true, nil", got, ok, err)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Get() after ttl reported a hit")
	}

	hits, misses := m.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d/%d, want 1/2", hits, misses)
	}
}

func TestMemory_SetSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := range 50 {
		if err := m.Set(ctx, Key("SELECT ?", int64(i)), []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set(%d) error = %v", i, err)
		}
	}
	if got := m.Len(); got != 50 {
		t.Fatalf("Len() = %d, want 50", got)
	}

	// Unread keys past their ttl must not outlive the next sweep.
	now = now.Add(2 * time.Minute)
	if err := m.Set(ctx, "fresh", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set(fresh) error = %v", err)
	}
	if got := m.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
	if _, ok, _ := m.Get(ctx, "fresh"); !ok {
		t.Error("Get(fresh) missed after sweep")
	}
}

func TestMemory_SweepKeepsLiveEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "short", []byte("v"), time.Minute)
	_ = m.Set(ctx, "long", []byte("v"), time.Hour)

	now = now.Add(5 * time.Minute)
	_ = m.Set(ctx, "new", []byte("v"), time.Minute)

	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 (long + new)", got)
	}
	if _, ok, _ := m.Get(ctx, "long"); !ok {
		t.Error("sweep dropped an entry that had not expired")
	}
}

func TestMemory_ZeroTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("zero ttl value was cached")
	}
}

func TestMemory_CopiesValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	_ = m.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("cached value = %q, want abc", got)
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_TEST_PASSWORD"))
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()

	c := NewRedis(client)
	key := Key("redis round trip", time.Now().UnixNano())
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v; want false, nil", ok, err)
	}
	if err := c.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
}

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "  ", ""); err == nil {
		t.Fatal("NewRedisClient() error = nil, want error for empty addr")
	}
}
