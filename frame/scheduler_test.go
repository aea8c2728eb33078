package frame

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/command"
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

func (f *fakeFence) Signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = value
}

func (f *fakeFence) Wait(ctx context.Context, value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed < value {
		f.completed = value
	}
	return nil
}

type fakeBackend struct {
	submits  int
	presents int
}

func (b *fakeBackend) Submit(list *command.List) error {
	b.submits++
	return nil
}

func (b *fakeBackend) Present() error {
	b.presents++
	return nil
}

func TestRunFrameAdvancesAndSubmits(t *testing.T) {
	fence := &fakeFence{}
	backend := &fakeBackend{}
	s := New(Config{Latency: 2}, fence, backend, zerolog.Nop())

	list := command.New()

	var recorded int
	for i := 0; i < 5; i++ {
		err := s.RunFrame(context.Background(), list, func(l *command.List) {
			recorded++
		})
		if err != nil {
			t.Fatalf("RunFrame %d: %v", i, err)
		}
	}

	if recorded != 5 {
		t.Fatalf("recorded %d frames, want 5", recorded)
	}
	if backend.submits != 5 || backend.presents != 5 {
		t.Fatalf("submits=%d presents=%d, want 5 and 5", backend.submits, backend.presents)
	}
	if s.FrameIndex() != 5 {
		t.Fatalf("FrameIndex() = %d, want 5", s.FrameIndex())
	}
}

func TestOnFlushAndOnResetCalledEachFrame(t *testing.T) {
	fence := &fakeFence{}
	backend := &fakeBackend{}
	s := New(Config{Latency: 1}, fence, backend, zerolog.Nop())

	var flushes, resets []uint64
	s.OnFlush(func(frameIndex uint64) { flushes = append(flushes, frameIndex) })
	s.OnReset(func(frameIndex uint64) { resets = append(resets, frameIndex) })

	list := command.New()
	for i := 0; i < 3; i++ {
		if err := s.RunFrame(context.Background(), list, func(*command.List) {}); err != nil {
			t.Fatalf("RunFrame: %v", err)
		}
	}

	if len(flushes) != 3 || len(resets) != 3 {
		t.Fatalf("flushes=%v resets=%v, want 3 entries each", flushes, resets)
	}
	if flushes[0] != 1 || flushes[2] != 3 {
		t.Fatalf("flushes = %v, want frame indices starting at 1", flushes)
	}
}
