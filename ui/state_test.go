package ui

import (
	"reflect"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
)

func solidColors(c colorful.Color) Colors {
	return Colors{TopLeft: c, TopRight: c, BottomLeft: c, BottomRight: c}
}

func TestPushAndSortOrdersByLayer(t *testing.T) {
	l := NewCommandList(16)

	l.PushBox(2, 0, BoxCommand{Rect: MakeRect(0, 0, 1, 1), Colors: solidColors(colorful.Color{R: 1})})
	l.PushBox(0, 0, BoxCommand{Rect: MakeRect(0, 0, 1, 1), Colors: solidColors(colorful.Color{G: 1})})
	l.PushBox(1, 0, BoxCommand{Rect: MakeRect(0, 0, 1, 1), Colors: solidColors(colorful.Color{B: 1})})

	l.Sort()

	_, first, _, _ := l.SortedCommandAt(0)
	_, second, _, _ := l.SortedCommandAt(1)
	_, third, _, _ := l.SortedCommandAt(2)

	if first.Colors.TopLeft.G != 1 {
		t.Fatalf("expected layer-0 command first, got %+v", first)
	}
	if second.Colors.TopLeft.B != 1 {
		t.Fatalf("expected layer-1 command second, got %+v", second)
	}
	if third.Colors.TopLeft.R != 1 {
		t.Fatalf("expected layer-2 command third, got %+v", third)
	}
}

func TestSortDeterministicAcrossRuns(t *testing.T) {
	build := func() *CommandList {
		l := NewCommandList(32)
		for i := 0; i < 10; i++ {
			l.PushBox(uint8(i%3), uint8(i%2), BoxCommand{Rect: MakeRect(0, 0, 1, 1)})
		}
		return l
	}

	a := build()
	a.Sort()
	keysA := a.SortedKeys()

	b := build()
	b.Sort()
	keysB := b.SortedKeys()

	if !reflect.DeepEqual(keysA, keysB) {
		t.Fatalf("sort order differs across identical runs: %v vs %v", keysA, keysB)
	}
}

func TestCommandListFullReturnsError(t *testing.T) {
	l := NewCommandList(1)
	if err := l.PushBox(0, 0, BoxCommand{}); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := l.PushBox(0, 0, BoxCommand{}); err != ErrCommandListFull {
		t.Fatalf("push over capacity = %v, want ErrCommandListFull", err)
	}
}

func TestResetReturnsToBuildingState(t *testing.T) {
	l := NewCommandList(4)
	l.PushBox(0, 0, BoxCommand{})
	l.Sort()
	l.MarkUploaded()
	l.MarkDrawn()
	l.Reset()

	if l.State() != StateBuilding {
		t.Fatalf("State() after Reset = %v, want StateBuilding", l.State())
	}
	if l.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", l.Len())
	}
}

func TestLifecycleMisusePanics(t *testing.T) {
	l := NewCommandList(4)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic calling MarkUploaded before Sort")
		}
	}()
	l.MarkUploaded()
}
