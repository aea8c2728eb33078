package command

import (
	"testing"

	"github.com/ashfall-engine/rhi/handle"
)

func newHandle(t *testing.T, pool *handle.Pool[int, handle.TextureMarker]) handle.Handle[handle.TextureMarker] {
	t.Helper()
	h, err := pool.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return h
}

func TestLifecycleHappyPath(t *testing.T) {
	l := New()
	if l.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", l.State())
	}
	l.Begin()
	if l.State() != StateRecording {
		t.Fatalf("state after Begin = %v, want recording", l.State())
	}
	l.Close()
	if l.State() != StateClosed {
		t.Fatalf("state after Close = %v, want closed", l.State())
	}
	l.MarkSubmitted()
	if l.State() != StateInFlight {
		t.Fatalf("state after MarkSubmitted = %v, want in-flight", l.State())
	}
	l.Reset()
	if l.State() != StateIdle {
		t.Fatalf("state after Reset = %v, want idle", l.State())
	}
}

func TestBeginFromWrongStatePanics(t *testing.T) {
	l := New()
	l.Begin()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic calling Begin while recording")
		}
	}()
	l.Begin()
}

func TestTransitionInsertsBarrierOnlyOnIncompatibleChange(t *testing.T) {
	pool := handle.New[int, handle.TextureMarker](2)
	res := newHandle(t, pool)

	l := New()
	l.Begin()

	l.Transition(res, ResourceStateShaderResource)
	if len(l.Barriers()) != 0 {
		t.Fatalf("first transition should need no barrier, got %d", len(l.Barriers()))
	}

	l.Transition(res, ResourceStateShaderResource)
	if len(l.Barriers()) != 0 {
		t.Fatalf("same-state transition should need no barrier, got %d", len(l.Barriers()))
	}

	l.Transition(res, ResourceStateRenderTarget)
	if len(l.Barriers()) != 1 {
		t.Fatalf("incompatible transition should insert one barrier, got %d", len(l.Barriers()))
	}
}

func TestReadOnlyStatesAreCompatible(t *testing.T) {
	pool := handle.New[int, handle.TextureMarker](1)
	res := newHandle(t, pool)

	l := New()
	l.Begin()
	l.Transition(res, ResourceStateShaderResource)
	l.Transition(res, ResourceStateCopySrc)
	if len(l.Barriers()) != 0 {
		t.Fatalf("two read-only states should not need a barrier, got %d", len(l.Barriers()))
	}
}

func TestUnbalancedEventsPanicOnClose(t *testing.T) {
	l := New()
	l.Begin()
	l.BeginEvent("region")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on Close with unbalanced events")
		}
	}()
	l.Close()
}
