package handle

import "testing"

type testMarker struct{}

func (testMarker) marker() {}

func newTestPool(capacity int) *Pool[int, testMarker] {
	return New[int, testMarker](capacity)
}

func TestAllocGetFree(t *testing.T) {
	p := newTestPool(4)

	h, err := p.Alloc(42)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	got, ok := p.Get(h)
	if !ok || got != 42 {
		t.Fatalf("Get = (%d, %v), want (42, true)", got, ok)
	}

	p.Free(h)
	if _, ok := p.Get(h); ok {
		t.Fatalf("Get after Free: expected stale handle to miss")
	}
}

func TestGenerationBumpsOnReuse(t *testing.T) {
	p := newTestPool(1)

	h1, err := p.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	p.Free(h1)

	h2, err := p.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
	if h1.Index() != h2.Index() {
		t.Fatalf("expected slot reuse, got indices %d and %d", h1.Index(), h2.Index())
	}
	if h1.Generation() == h2.Generation() {
		t.Fatalf("expected generation bump on reuse, both are %d", h1.Generation())
	}
	if _, ok := p.Get(h1); ok {
		t.Fatalf("stale handle h1 must not resolve after reuse")
	}
	if v, ok := p.Get(h2); !ok || v != 2 {
		t.Fatalf("Get(h2) = (%d, %v), want (2, true)", v, ok)
	}
}

func TestPoolFull(t *testing.T) {
	p := newTestPool(2)

	if _, err := p.Alloc(1); err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	if _, err := p.Alloc(2); err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if _, err := p.Alloc(3); err != ErrPoolFull {
		t.Fatalf("Alloc 3 = %v, want ErrPoolFull", err)
	}
}

func TestNilHandle(t *testing.T) {
	var h Handle[testMarker]
	if !h.IsNil() {
		t.Fatalf("zero value Handle must be nil")
	}

	p := newTestPool(1)
	if _, ok := p.Get(h); ok {
		t.Fatalf("Get(nil handle) must miss")
	}
	p.Free(h) // must not panic
}

func TestLenAndCap(t *testing.T) {
	p := newTestPool(3)
	if p.Cap() != 3 {
		t.Fatalf("Cap() = %d, want 3", p.Cap())
	}
	h, _ := p.Alloc(1)
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	p.Free(h)
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestEachVisitsLiveSlotsInOrder(t *testing.T) {
	p := newTestPool(8)

	p.Alloc(10)
	h2, _ := p.Alloc(20)
	p.Alloc(30)
	p.Free(h2)

	var values []int
	p.Each(func(h Handle[testMarker], v *int) bool {
		values = append(values, *v)
		return true
	})

	if len(values) != 2 || values[0] != 10 || values[1] != 30 {
		t.Fatalf("Each visited %v, want [10 30] (freed slot skipped, ascending order)", values)
	}

	count := 0
	p.Each(func(Handle[testMarker], *int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each visited %d slots after early exit, want 1", count)
	}
}
