package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func writeObject(t *testing.T, s *Store, key, content string) string {
	t.Helper()
	path, err := s.Resolve(key)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", key, err)
	}
	if _, err := s.Write(context.Background(), path, strings.NewReader(content), 0); err != nil {
		t.Fatalf("Write(%q) failed: %v", key, err)
	}
	return path
}

func TestStoreWrite_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	path := writeObject(t, s, "a/b/c.txt", "hello world")

	f, err := s.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("read back %q, want %q", data, "hello world")
	}
}

func TestStoreWrite_LimitExceededRemovesPartial(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Resolve("big.bin")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	body := bytes.NewReader(make([]byte, 100*1024))
	_, err = s.Write(context.Background(), path, body, 10*1024)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Write error = %v, want ErrTooLarge", err)
	}

	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("partial file still exists after exceeding limit")
	}
}

func TestStoreWrite_CancelledContextRemovesPartial(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Resolve("cancelled.bin")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Write(ctx, path, strings.NewReader("data"), 0)
	if err == nil {
		t.Fatal("Write with cancelled context succeeded")
	}

	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("partial file still exists after cancelled write")
	}
}

func TestStoreWrite_LimitBoundary(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Resolve("exact.bin")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Exactly at the limit is allowed
	n, err := s.Write(context.Background(), path, bytes.NewReader(make([]byte, 1024)), 1024)
	if err != nil {
		t.Fatalf("Write at limit failed: %v", err)
	}
	if n != 1024 {
		t.Errorf("wrote %d bytes, want 1024", n)
	}
}

func TestStoreStat_NotFound(t *testing.T) {
	s := newTestStore(t)
	path, _ := s.Resolve("missing.txt")

	if _, err := s.Stat(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat error = %v, want ErrNotFound", err)
	}
}

func TestStoreStat_MetadataMatchesFile(t *testing.T) {
	s := newTestStore(t)
	path := writeObject(t, s, "meta.txt", "12345")

	meta, err := s.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if meta.Size != 5 {
		t.Errorf("Size = %d, want 5", meta.Size)
	}

	// Stable across repeated reads absent mutation
	again, err := s.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if meta.ETag() != again.ETag() {
		t.Errorf("ETag changed without mutation: %q vs %q", meta.ETag(), again.ETag())
	}
}

func TestStoreRemove(t *testing.T) {
	s := newTestStore(t)
	path := writeObject(t, s, "del.txt", "x")

	if err := s.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove(path); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
}

func TestStoreWalk_Recursive(t *testing.T) {
	s := newTestStore(t)
	writeObject(t, s, "a/b.txt", "1")
	writeObject(t, s, "a/c/d.txt", "2")
	writeObject(t, s, "z.txt", "3")

	base, _ := s.Resolve("a")
	objects, err := s.Walk(base, true)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}
	want := []string{"a/b.txt", "a/c/d.txt"}
	if len(keys) != len(want) {
		t.Fatalf("Walk returned %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Walk[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestStoreWalk_NonRecursive(t *testing.T) {
	s := newTestStore(t)
	writeObject(t, s, "a/b.txt", "1")
	writeObject(t, s, "a/c/d.txt", "2")

	base, _ := s.Resolve("a")
	objects, err := s.Walk(base, false)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(objects) != 1 || objects[0].Key != "a/b.txt" {
		t.Errorf("non-recursive Walk = %+v, want only a/b.txt", objects)
	}
}

func TestStoreWalk_FileBase(t *testing.T) {
	s := newTestStore(t)
	writeObject(t, s, "solo.txt", "data")

	base, _ := s.Resolve("solo.txt")
	objects, err := s.Walk(base, false)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(objects) != 1 || objects[0].Key != "solo.txt" || objects[0].Size != 4 {
		t.Errorf("Walk on file base = %+v", objects)
	}
}

func TestStoreWalk_MissingBase(t *testing.T) {
	s := newTestStore(t)

	base := filepath.Join(s.Root(), "nope")
	objects, err := s.Walk(base, true)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("Walk on missing base = %+v, want empty", objects)
	}
}

func TestStoreWalk_SortedAcrossDirs(t *testing.T) {
	s := newTestStore(t)
	writeObject(t, s, "b/x.txt", "1")
	writeObject(t, s, "a/y.txt", "2")
	writeObject(t, s, "c.txt", "3")

	objects, err := s.Walk(s.Root(), true)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	for i := 1; i < len(objects); i++ {
		if objects[i-1].Key >= objects[i].Key {
			t.Errorf("listing not sorted: %q before %q", objects[i-1].Key, objects[i].Key)
		}
	}
	if len(objects) != 3 {
		t.Errorf("Walk returned %d objects, want 3", len(objects))
	}
}
