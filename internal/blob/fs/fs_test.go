package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PutGet(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "db.json"); err != nil || ok {
		t.Fatalf("expected absent blob, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "journal/2024-05-01/a.json", []byte(`[1]`), "application/json"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, ok, err := s.Get(ctx, "journal/2024-05-01/a.json")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(data) != "[1]" {
		t.Errorf("Expected [1], got %s", data)
	}

	if _, err := os.Stat(filepath.Join(s.root, "journal", "2024-05-01", "a.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	for _, k := range []string{
		"activity/2024-05-01/b.json",
		"activity/2024-05-01/a.json",
		"activity/2024-05-02/c.json",
		"db.json",
	} {
		if err := s.Put(ctx, k, []byte("{}"), ""); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	keys, err := s.List(ctx, "activity/2024-05-01/", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "activity/2024-05-01/a.json" || keys[1] != "activity/2024-05-01/b.json" {
		t.Errorf("unexpected keys: %v", keys)
	}

	keys, err = s.List(ctx, "activity/", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Expected limit of 2 keys, got %v", keys)
	}

	keys, err = s.List(ctx, "journal/2024-05-01/", 10)
	if err != nil {
		t.Fatalf("List of missing dir failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Put(context.Background(), "../escape.json", []byte("x"), ""); err == nil {
		t.Error("Expected error for key containing ..")
	}
}
