package docstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryCreateAndQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id1, err := m.Create(ctx, "things", map[string]any{"kind": "a", "tags": []string{"x", "y"}})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	id2, err := m.Create(ctx, "things", map[string]any{"kind": "b", "tags": []string{"y"}})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if id1 == id2 {
		t.Fatal("expected distinct ids")
	}

	t.Run("equality predicate", func(t *testing.T) {
		recs, err := m.Query(ctx, "things", []Predicate{Where("kind", "a")})
		if err != nil {
			t.Fatalf("Query error: %v", err)
		}
		if len(recs) != 1 || recs[0].ID != id1 {
			t.Fatalf("Query = %v, want record %s", recs, id1)
		}
	})

	t.Run("array membership predicate", func(t *testing.T) {
		recs, err := m.Query(ctx, "things", []Predicate{Contains("tags", "y")})
		if err != nil {
			t.Fatalf("Query error: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("Query returned %d records, want 2", len(recs))
		}
	})

	t.Run("conjunction", func(t *testing.T) {
		recs, err := m.Query(ctx, "things", []Predicate{Where("kind", "b"), Contains("tags", "x")})
		if err != nil {
			t.Fatalf("Query error: %v", err)
		}
		if len(recs) != 0 {
			t.Fatalf("Query returned %d records, want 0", len(recs))
		}
	})

	t.Run("creation order is preserved", func(t *testing.T) {
		recs, err := m.Query(ctx, "things", nil)
		if err != nil {
			t.Fatalf("Query error: %v", err)
		}
		if len(recs) != 2 || !recs[0].CreatedAt.Before(recs[1].CreatedAt) {
			t.Fatal("expected records sorted by creation time")
		}
	})
}

func TestMemoryCreateWithID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.CreateWithID(ctx, "things", "k1", map[string]any{"kind": "a"}); err != nil {
		t.Fatalf("CreateWithID error: %v", err)
	}

	err := m.CreateWithID(ctx, "things", "k1", map[string]any{"kind": "b"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second CreateWithID error = %v, want ErrDuplicateID", err)
	}

	// The original record must be untouched by the losing write.
	recs, _ := m.Query(ctx, "things", []Predicate{Where("kind", "a")})
	if len(recs) != 1 {
		t.Fatal("original record was clobbered")
	}
}

func TestMemoryUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, "things", map[string]any{"kind": "a"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := m.Update(ctx, "things", id, map[string]any{"kind": "b"}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	recs, _ := m.Query(ctx, "things", []Predicate{Where("kind", "b")})
	if len(recs) != 1 {
		t.Fatal("update not applied")
	}

	if err := m.Update(ctx, "things", "missing", map[string]any{"kind": "c"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update of missing record = %v, want ErrNotFound", err)
	}

	if err := m.Delete(ctx, "things", id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// Deleting an absent record is idempotent.
	if err := m.Delete(ctx, "things", id); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}

	recs, _ = m.Query(ctx, "things", nil)
	if len(recs) != 0 {
		t.Fatal("record not deleted")
	}
}

func TestMemoryRecordsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	fields := map[string]any{"tags": []string{"x"}}
	id, err := m.Create(ctx, "things", fields)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// Mutating the caller's map or a queried record must not leak into
	// the store.
	fields["tags"].([]string)[0] = "mutated"

	recs, _ := m.Query(ctx, "things", nil)
	recs[0].Fields["tags"].([]string)[0] = "also-mutated"

	recs, _ = m.Query(ctx, "things", []Predicate{Contains("tags", "x")})
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatal("stored record was mutated through an alias")
	}
}

func TestMemorySubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var deliveries [][]Record
	sub, err := m.Subscribe(ctx, "things", []Predicate{Where("kind", "a")}, func(recs []Record) {
		deliveries = append(deliveries, recs)
	})
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}

	if len(deliveries) != 1 || len(deliveries[0]) != 0 {
		t.Fatalf("expected one empty initial delivery, got %v", deliveries)
	}

	id, err := m.Create(ctx, "things", map[string]any{"kind": "a"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	last := deliveries[len(deliveries)-1]
	if len(last) != 1 || last[0].ID != id {
		t.Fatalf("delivery after create = %v, want the new record", last)
	}

	// Non-matching changes still re-deliver the full current set.
	if _, err := m.Create(ctx, "things", map[string]any{"kind": "b"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	last = deliveries[len(deliveries)-1]
	if len(last) != 1 {
		t.Fatalf("delivery is not the full matching set: %v", last)
	}

	sub.Cancel()
	seen := len(deliveries)
	if _, err := m.Create(ctx, "things", map[string]any{"kind": "a"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(deliveries) != seen {
		t.Fatal("delivery after cancel")
	}
}

func TestMemorySubscribeContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()

	count := 0
	if _, err := m.Subscribe(ctx, "things", nil, func([]Record) { count++ }); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if count != 1 {
		t.Fatalf("initial deliveries = %d, want 1", count)
	}

	cancel()
	if _, err := m.Create(context.Background(), "things", map[string]any{"kind": "a"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if count != 1 {
		t.Fatalf("deliveries after context cancel = %d, want 1", count)
	}
}
