package drawstream

import (
	"math/rand"
	"sort"
	"testing"
)

func TestSortedOrdersByKey(t *testing.T) {
	s := New()
	keys := []uint32{5, 1, 4, 2, 3}
	for _, k := range keys {
		s.Push(Packet{SortKey: k})
	}

	sorted := s.Sorted()
	if len(sorted) != len(keys) {
		t.Fatalf("got %d packets, want %d", len(sorted), len(keys))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].SortKey > sorted[i].SortKey {
			t.Fatalf("not sorted at index %d: %v", i, sorted)
		}
	}
}

func TestSortedIsStableForEqualKeys(t *testing.T) {
	s := New()
	s.Push(Packet{SortKey: 1, PushConstant: 10})
	s.Push(Packet{SortKey: 1, PushConstant: 20})
	s.Push(Packet{SortKey: 1, PushConstant: 30})

	sorted := s.Sorted()
	want := []uint32{10, 20, 30}
	for i, p := range sorted {
		if p.PushConstant != want[i] {
			t.Fatalf("index %d: PushConstant = %d, want %d (stability violated)", i, p.PushConstant, want[i])
		}
	}
}

func TestSortedMatchesSortSliceOnRandomKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New()
	const n = 2000
	for i := 0; i < n; i++ {
		s.Push(Packet{SortKey: rng.Uint32()})
	}

	got := s.Sorted()
	want := make([]Packet, len(s.packets))
	copy(want, s.packets)
	sort.SliceStable(want, func(i, j int) bool { return want[i].SortKey < want[j].SortKey })

	for i := range got {
		if got[i].SortKey != want[i].SortKey {
			t.Fatalf("index %d: key %d, want %d", i, got[i].SortKey, want[i].SortKey)
		}
	}
}

func TestResetClearsStream(t *testing.T) {
	s := New()
	s.Push(Packet{SortKey: 1})
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", s.Len())
	}
}

func TestEmptyAndSingleton(t *testing.T) {
	s := New()
	if got := s.Sorted(); len(got) != 0 {
		t.Fatalf("Sorted() on empty stream = %v, want empty", got)
	}
	s.Push(Packet{SortKey: 7})
	if got := s.Sorted(); len(got) != 1 || got[0].SortKey != 7 {
		t.Fatalf("Sorted() on singleton = %v", got)
	}
}
