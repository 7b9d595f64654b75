package ledger

import (
	"testing"

	"github.com/vladislavdragonenkov/orderledger/internal/domain"
)

func order(id, name string) domain.OrderRecord {
	return domain.OrderRecord{ID: id, CustomerName: name}
}

func TestProjectionCache_Empty(t *testing.T) {
	cache := NewProjectionCache()

	if got := cache.SnapshotActive(); len(got) != 0 {
		t.Errorf("expected empty active snapshot, got %d records", len(got))
	}
	if got := cache.SnapshotDeleted(); len(got) != 0 {
		t.Errorf("expected empty deleted snapshot, got %d records", len(got))
	}
	if rev := cache.Revision(); rev != 0 {
		t.Errorf("expected revision 0, got %d", rev)
	}
}

func TestProjectionCache_RemoteOverwritesOptimistic(t *testing.T) {
	cache := NewProjectionCache()

	cache.ApplyRemoteActive([]domain.OrderRecord{order("a", "Alice")})
	cache.ApplyLocalOptimistic(func(records []domain.OrderRecord) []domain.OrderRecord {
		return append(records, order("b", "Bob"))
	})

	if got := cache.SnapshotActive(); len(got) != 2 {
		t.Fatalf("expected 2 records after optimistic append, got %d", len(got))
	}

	// Remote-состояние авторитетно: оптимистичная запись молча исчезает.
	cache.ApplyRemoteActive([]domain.OrderRecord{order("a", "Alice")})

	got := cache.SnapshotActive()
	if len(got) != 1 {
		t.Fatalf("expected remote state to win, got %d records", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("expected record a, got %s", got[0].ID)
	}
}

func TestProjectionCache_RevisionMonotonic(t *testing.T) {
	cache := NewProjectionCache()

	prev := cache.Revision()
	steps := []func(){
		func() { cache.ApplyRemoteActive(nil) },
		func() { cache.ApplyRemoteDeleted(nil) },
		func() {
			cache.ApplyLocalOptimistic(func(records []domain.OrderRecord) []domain.OrderRecord {
				return records
			})
		},
	}
	for i, step := range steps {
		step()
		if rev := cache.Revision(); rev <= prev {
			t.Errorf("step %d: revision %d did not advance past %d", i, rev, prev)
		} else {
			prev = rev
		}
	}
}

func TestProjectionCache_SnapshotIsolation(t *testing.T) {
	cache := NewProjectionCache()
	cache.ApplyRemoteActive([]domain.OrderRecord{order("a", "Alice")})

	snap := cache.SnapshotActive()
	snap[0].CustomerName = "mutated"

	if got := cache.SnapshotActive(); got[0].CustomerName != "Alice" {
		t.Errorf("snapshot mutation leaked into cache: %s", got[0].CustomerName)
	}
}
