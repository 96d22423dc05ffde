package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rewrite/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a terminated run that rewrote seed through the
// given payloads, one "test" rule step per payload.
func createTestRecord(t *testing.T, id, seed string, payloads ...string) RunRecord {
	t.Helper()
	v := ir.NewValue(seed)
	for i, p := range payloads {
		v = v.Then("test", "r"+string(rune('0'+i)), p)
	}
	rec, err := NewRunRecord(id, "terminated", v, 100, "run")
	if err != nil {
		t.Fatalf("NewRunRecord() failed: %v", err)
	}
	return rec
}
