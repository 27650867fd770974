package store

import (
	"crypto/sha256"
	"errors"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)

	hash := sha256.Sum256([]byte("method-a"))
	data := []byte{0x01, 0x02, 0x03}

	if err := s.Put(hash, "a", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 3 || got[0] != 0x01 || got[2] != 0x03 {
		t.Errorf("Get returned %v, want %v", got, data)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)

	_, err := s.Get(sha256.Sum256([]byte("never stored")))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on missing hash = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTemp(t)

	hash := sha256.Sum256([]byte("method-a"))
	if err := s.Put(hash, "a", []byte{0x01}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put(hash, "a", []byte{0x02}); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := s.Get(hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 || got[0] != 0x02 {
		t.Errorf("Get returned %v after overwrite", got)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d after overwrite, want 1", n)
	}
}

func TestHasAndCount(t *testing.T) {
	s := openTemp(t)

	h1 := sha256.Sum256([]byte("one"))
	h2 := sha256.Sum256([]byte("two"))
	if err := s.Put(h1, "one", []byte{0x01}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := s.Has(h1)
	if err != nil || !ok {
		t.Errorf("Has(stored) = %v, %v", ok, err)
	}
	ok, err = s.Has(h2)
	if err != nil || ok {
		t.Errorf("Has(missing) = %v, %v", ok, err)
	}

	n, err := s.Count()
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v, want 1", n, err)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hash := sha256.Sum256([]byte("durable"))
	if err := s.Put(hash, "durable", []byte{0xAB}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(hash)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if len(got) != 1 || got[0] != 0xAB {
		t.Errorf("Get after reopen returned %v", got)
	}
}
