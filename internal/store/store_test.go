package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type entry struct {
	ID    string
	At    time.Time
	Count int
}

func newEntryStore(ttl time.Duration, capacity int, inclusive bool) *Memory[entry] {
	return NewMemory(Options[entry]{
		ID:       func(e entry) string { return e.ID },
		Expired:  OlderThan(func(e entry) time.Time { return e.At }, ttl, inclusive),
		Capacity: capacity,
	})
}

func TestMemoryCapacityKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := newEntryStore(time.Minute, 3, true)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		if err := s.Insert(ctx, entry{ID: fmt.Sprint(i), At: base}); err != nil {
			t.Fatal(err)
		}
	}

	items, _ := s.List(ctx)
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []string{"3", "4", "5"} {
		if items[i].ID != want {
			t.Errorf("items[%d] = %s, want %s", i, items[i].ID, want)
		}
	}
	if _, ok := s.Get(ctx, "1"); ok {
		t.Error("trimmed item still retrievable")
	}
}

func TestMemoryEvictExpired(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		inclusive bool
		age       time.Duration
		evicted   bool
	}{
		{"younger", false, 59 * time.Second, false},
		{"exact exclusive", false, time.Minute, false},
		{"exact inclusive", true, time.Minute, true},
		{"older", false, 61 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newEntryStore(time.Minute, 0, tt.inclusive)
			_ = s.Insert(ctx, entry{ID: "a", At: base})
			evicted, err := s.EvictExpired(ctx, base.Add(tt.age))
			if err != nil {
				t.Fatal(err)
			}
			if got := len(evicted) == 1; got != tt.evicted {
				t.Errorf("evicted = %v, want %v", got, tt.evicted)
			}
			if tt.evicted && s.Len() != 0 {
				t.Errorf("Len() = %d after eviction", s.Len())
			}
		})
	}
}

func TestMemoryEvictPreservesOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newEntryStore(time.Minute, 0, false)
	_ = s.Insert(ctx, entry{ID: "old", At: base})
	_ = s.Insert(ctx, entry{ID: "new1", At: base.Add(2 * time.Minute)})
	_ = s.Insert(ctx, entry{ID: "new2", At: base.Add(90 * time.Second)})

	_, _ = s.EvictExpired(ctx, base.Add(2*time.Minute))
	items, _ := s.List(ctx)
	if len(items) != 2 || items[0].ID != "new1" || items[1].ID != "new2" {
		t.Errorf("items = %+v", items)
	}
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	s := newEntryStore(time.Hour, 0, false)
	_ = s.Insert(ctx, entry{ID: "p1"})

	got, err := s.Update(ctx, "p1", func(e *entry) { e.Count++ })
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 {
		t.Errorf("Count = %d", got.Count)
	}

	if _, err := s.Update(ctx, "missing", func(e *entry) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := newEntryStore(time.Hour, 0, false)
	_ = s.Insert(ctx, entry{ID: "p1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "p1", func(e *entry) { e.Count++ })
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, "p1")
	if got.Count != 50 {
		t.Errorf("Count = %d, want 50", got.Count)
	}
}
