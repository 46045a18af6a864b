package memory

import (
	"context"
	"testing"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "db.json"); ok || err != nil {
		t.Fatalf("Expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "db.json", []byte("[]"), "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, ok, err := s.Get(ctx, "db.json")
	if err != nil || !ok || string(data) != "[]" {
		t.Fatalf("Get returned %q ok=%v err=%v", data, ok, err)
	}

	// Mutating the returned slice must not change the stored object.
	data[0] = 'x'
	again, _, _ := s.Get(ctx, "db.json")
	if string(again) != "[]" {
		t.Error("stored bytes were aliased")
	}
}

func TestMemoryStore_ListPrefixAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"journal/2024-01-02/b.json", "journal/2024-01-02/a.json", "journal/2024-01-03/c.json", "db.json"} {
		s.Put(ctx, k, []byte("{}"), "")
	}

	keys, _ := s.List(ctx, "journal/2024-01-02/", 0)
	if len(keys) != 2 || keys[0] != "journal/2024-01-02/a.json" || keys[1] != "journal/2024-01-02/b.json" {
		t.Errorf("unexpected keys %v", keys)
	}
	keys, _ = s.List(ctx, "journal/", 1)
	if len(keys) != 1 {
		t.Errorf("limit not applied: %v", keys)
	}
}

func TestMemoryStore_RejectsBadKey(t *testing.T) {
	s := New()
	if err := s.Put(context.Background(), "../escape", []byte("x"), ""); err == nil {
		t.Error("Expected error for traversal key")
	}
}
