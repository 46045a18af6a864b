package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestEscapeGlob(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"activity/2024-01-01/", "activity/2024-01-01/"},
		{"a*b", `a\*b`},
		{"x?[y]", `x\?\[y\]`},
	} {
		if got := escapeGlob(tc.in); got != tc.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestHashStore_Integration runs against a live Redis when REDIS_TEST_ADDR is set.
func TestHashStore_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	ns := fmt.Sprintf("cedbtest%d", time.Now().UnixNano())
	s := New(rdb, ns)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "db.json"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "journal/d/1.json", []byte("[]"), "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, ok, err := s.Get(ctx, "journal/d/1.json")
	if err != nil || !ok || string(data) != "[]" {
		t.Fatalf("Get = %s, %v, %v", data, ok, err)
	}
	keys, err := s.List(ctx, "journal/d/", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "journal/d/1.json" {
		t.Errorf("unexpected keys: %v", keys)
	}
}
