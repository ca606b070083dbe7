package extract

import (
	"os"
	"testing"
)

// nodeStoreContract exercises the behavior every NodeStore backend must
// share.
func nodeStoreContract(t *testing.T, store NodeStore) {
	t.Helper()

	for _, id := range []int64{1, 2, 3, 2} {
		store.AddPending(id)
	}
	if got := store.PendingCount(); got != 3 {
		t.Errorf("PendingCount after adds = %d, want 3 (duplicates collapse)", got)
	}
	if !store.IsPending(2) {
		t.Error("IsPending(2) = false, want true")
	}
	if store.IsPending(99) {
		t.Error("IsPending(99) = true, want false")
	}

	if err := store.Resolve(2, 47.5, -122.3); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if store.IsPending(2) {
		t.Error("id 2 still pending after Resolve")
	}
	if got := store.PendingCount(); got != 2 {
		t.Errorf("PendingCount after resolve = %d, want 2", got)
	}
	if got := store.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}

	lat, lon, ok := store.Get(2)
	if !ok {
		t.Fatal("Get(2) not found after Resolve")
	}
	if lat != 47.5 || lon != -122.3 {
		t.Errorf("Get(2) = (%v, %v), want (47.5, -122.3)", lat, lon)
	}

	if _, _, ok := store.Get(1); ok {
		t.Error("Get(1) found, want miss for unresolved id")
	}
	if _, _, ok := store.Get(99); ok {
		t.Error("Get(99) found, want miss for unknown id")
	}

	// Negative ids are legal in OSM extracts.
	store.AddPending(-5)
	if err := store.Resolve(-5, -33.9, 151.2); err != nil {
		t.Fatalf("Resolve negative id: %v", err)
	}
	lat, lon, ok = store.Get(-5)
	if !ok || lat != -33.9 || lon != 151.2 {
		t.Errorf("Get(-5) = (%v, %v, %v), want (-33.9, 151.2, true)", lat, lon, ok)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	nodeStoreContract(t, store)
}

func TestLevelDBStore(t *testing.T) {
	store, err := NewLevelDBStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLevelDBStore: %v", err)
	}
	defer store.Close()
	nodeStoreContract(t, store)
}

func TestLevelDBStoreCloseRemovesScratch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLevelDBStore(dir)
	if err != nil {
		t.Fatalf("NewLevelDBStore: %v", err)
	}
	store.AddPending(1)
	if err := store.Resolve(1, 1, 1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Only the caller's directory should remain.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch left behind after Close: %d entries", len(entries))
	}
}
