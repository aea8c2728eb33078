package bufferarena

import (
	"sync"
	"testing"
)

func TestAllocateAlignment(t *testing.T) {
	a := New(256)

	alloc1, err := a.Allocate(3, 16)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if alloc1.Offset != 0 {
		t.Fatalf("Offset = %d, want 0", alloc1.Offset)
	}

	alloc2, err := a.Allocate(10, 16)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if alloc2.Offset != 16 {
		t.Fatalf("Offset = %d, want 16 (aligned past first alloc)", alloc2.Offset)
	}
}

func TestArenaFull(t *testing.T) {
	a := New(16)
	if _, err := a.Allocate(16, 1); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if _, err := a.Allocate(1, 1); err != ErrArenaFull {
		t.Fatalf("Allocate over capacity = %v, want ErrArenaFull", err)
	}
}

func TestResetReclaimsSpace(t *testing.T) {
	a := New(16)
	a.Allocate(16, 1)
	a.Reset()
	if _, err := a.Allocate(16, 1); err != nil {
		t.Fatalf("Allocate after Reset: %v", err)
	}
}

func TestConcurrentAllocateNoOverlap(t *testing.T) {
	const n = 64
	a := New(n * 4)

	var wg sync.WaitGroup
	offsets := make([]uint32, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			alloc, err := a.Allocate(4, 4)
			if err != nil {
				t.Errorf("Allocate: %v", err)
				return
			}
			offsets[i] = alloc.Offset
		}(i)
	}
	wg.Wait()

	seen := make(map[uint32]bool, n)
	for _, off := range offsets {
		if seen[off] {
			t.Fatalf("duplicate offset %d: concurrent allocations overlapped", off)
		}
		seen[off] = true
	}
}
