package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNoopAlwaysMisses(t *testing.T) {
	var c Cache = Noop{}
	if err := c.Set(context.Background(), KeyInventory, []int{1}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var dest []int
	ok, err := c.Get(context.Background(), KeyInventory, &dest)
	if ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
}

func TestRedisOutageDegradesToMiss(t *testing.T) {
	// Nothing listens on this port; every call fails fast.
	c := NewRedis("127.0.0.1:1", "", 0, nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var dest []string
	ok, err := c.Get(ctx, KeyCustomers, &dest)
	if ok || err != nil {
		t.Fatalf("expected silent miss, got %v %v", ok, err)
	}
	if err := c.Set(ctx, KeyCustomers, []string{"u1"}, time.Minute); err != nil {
		t.Fatalf("expected set to swallow outage, got %v", err)
	}
}

func TestRedisRoundTripIntegration(t *testing.T) {
	addr := os.Getenv("STOREPOS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREPOS_TEST_REDIS_ADDR not set")
	}
	c := NewRedis(addr, "", 0, nil)
	defer c.Close()
	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	type entry struct{ Name string }
	if err := c.Set(ctx, "storepos:test", []entry{{Name: "Hammer"}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got []entry
	ok, err := c.Get(ctx, "storepos:test", &got)
	if err != nil || !ok || len(got) != 1 || got[0].Name != "Hammer" {
		t.Fatalf("unexpected get result %v %v %+v", ok, err, got)
	}
	_ = c.Delete(ctx, "storepos:test")
}
