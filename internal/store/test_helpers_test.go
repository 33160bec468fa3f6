package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fragwatch/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
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

// createTestRecord creates a record with the given fields.
func createTestRecord(id, typename string, seq int64, fields ir.IRObject) ir.Record {
	return ir.Record{
		ID:       id,
		Typename: typename,
		Fields:   fields,
		Seq:      seq,
	}
}
