package uploadring

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

type fakeFence struct {
	mu        sync.Mutex
	completed uint64
}

func (f *fakeFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fakeFence) Wait(ctx context.Context, value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed < value {
		f.completed = value
	}
	return nil
}

func (f *fakeFence) signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value > f.completed {
		f.completed = value
	}
}

func TestBeginEndRoundTrip(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 1024, MaxSubmissions: 4}, fence)

	sub, err := r.Begin(context.Background(), 64, 16)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if sub.Offset != 0 || sub.Size != 64 {
		t.Fatalf("got %+v, want offset 0 size 64", sub)
	}

	value := r.End(sub)
	if value == 0 {
		t.Fatalf("End returned zero fence value")
	}
	fence.signal(value)

	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestUploadTooLarge(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 64, MaxSubmissions: 2}, fence)

	if _, err := r.Begin(context.Background(), 128, 1); err != ErrUploadTooLarge {
		t.Fatalf("Begin = %v, want ErrUploadTooLarge", err)
	}
}

func TestWrapNeverSplitsReservation(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 256, MaxSubmissions: 8}, fence)

	// 96-byte reservations: the third would straddle the 256-byte wrap
	// point, so it must land at offset 0 of the next lap instead.
	offsets := []uint32{}
	for i := 0; i < 4; i++ {
		sub, err := r.Begin(context.Background(), 96, 1)
		if err != nil {
			t.Fatalf("Begin %d: %v", i, err)
		}
		if end := sub.Offset + sub.Size; end > 256 {
			t.Fatalf("Begin %d: reservation [%d,%d) straddles the wrap", i, sub.Offset, end)
		}
		offsets = append(offsets, sub.Offset)
		fence.signal(r.End(sub))
	}
	want := []uint32{0, 96, 0, 96}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("offsets = %v, want %v", offsets, want)
		}
	}
}

func TestFullCapacityUploadAfterWrap(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 256, MaxSubmissions: 4}, fence)

	// Wrap the ring completely with retired small uploads, then ask for
	// every byte at once. This must succeed since the oldest submission's
	// fence has completed.
	for i := 0; i < 8; i++ {
		sub, err := r.Begin(context.Background(), 64, 1)
		if err != nil {
			t.Fatalf("warmup Begin %d: %v", i, err)
		}
		fence.signal(r.End(sub))
	}

	sub, err := r.Begin(context.Background(), 256, 1)
	if err != nil {
		t.Fatalf("full-capacity Begin: %v", err)
	}
	if sub.Offset != 0 || sub.Size != 256 {
		t.Fatalf("got %+v, want offset 0 size 256", sub)
	}
	fence.signal(r.End(sub))
}

func TestOutstandingSubmissionsBounded(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 1024, MaxSubmissions: 4}, fence)

	subs := make([]Submission, 0, 4)
	for i := 0; i < 4; i++ {
		sub, err := r.Begin(context.Background(), 16, 1)
		if err != nil {
			t.Fatalf("Begin %d: %v", i, err)
		}
		subs = append(subs, sub)
	}
	if got := r.OutstandingSubmissions(); got != 4 {
		t.Fatalf("OutstandingSubmissions() = %d, want 4", got)
	}
	for _, sub := range subs {
		fence.signal(r.End(sub))
	}

	// A fifth Begin retires the oldest slot instead of exceeding the
	// submission bound.
	if _, err := r.Begin(context.Background(), 16, 1); err != nil {
		t.Fatalf("Begin after saturation: %v", err)
	}
	if got := r.OutstandingSubmissions(); got > 4 {
		t.Fatalf("OutstandingSubmissions() = %d, want <= 4", got)
	}
}

func TestSaturationCompletesAllSubmissions(t *testing.T) {
	fence := &fakeFence{}
	r := New(Config{Capacity: 256, MaxSubmissions: 2}, fence)

	var group errgroup.Group
	var mu sync.Mutex
	var order []uint64

	for i := 0; i < 16; i++ {
		group.Go(func() error {
			sub, err := r.Begin(context.Background(), 32, 16)
			if err != nil {
				return err
			}
			value := r.End(sub)
			mu.Lock()
			order = append(order, value)
			mu.Unlock()
			fence.signal(value)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		t.Fatalf("saturation run: %v", err)
	}
	if len(order) != 16 {
		t.Fatalf("got %d submissions, want 16", len(order))
	}
}
