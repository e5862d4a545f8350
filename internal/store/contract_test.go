package store_test

import (
	"path/filepath"
	"testing"

	"github.com/roach88/pokemart/internal/store"
	"github.com/roach88/pokemart/internal/store/storetest"
)

func TestSQLite_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.KV {
		s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.KV { return store.NewMemory() })
}
