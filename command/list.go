// Package command implements the command list recorder: a small state
// machine over a sequence of draw/barrier/copy entries, with implicit
// resource-state tracking so a caller never has to insert a barrier by
// hand — the recorder diffs the requested state against what it last saw
// for that resource and inserts one only on an incompatible transition.
package command

import (
	"fmt"

	"github.com/ashfall-engine/rhi/handle"
)

// State is the command list lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	StateClosed
	StateInFlight
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateClosed:
		return "closed"
	case StateInFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// ResourceState enumerates the GPU-visible states a tracked resource can
// be in. Two states are compatible (no barrier needed) exactly when they
// are equal or both are members of the read-only set.
type ResourceState uint32

const (
	ResourceStateCommon ResourceState = 1 << iota
	ResourceStateRenderTarget
	ResourceStateDepthWrite
	ResourceStateDepthRead
	ResourceStateShaderResource
	ResourceStateUnorderedAccess
	ResourceStateCopySrc
	ResourceStateCopyDst
	ResourceStatePresent
)

var readOnlyStates = ResourceStateShaderResource | ResourceStateDepthRead | ResourceStateCopySrc | ResourceStateCommon

func (s ResourceState) isReadOnly() bool {
	return s&^readOnlyStates == 0
}

func (s ResourceState) isCompatible(other ResourceState) bool {
	if s == other {
		return true
	}
	return s.isReadOnly() && other.isReadOnly()
}

// Barrier records a single resource transition the recorder decided was
// necessary.
type Barrier struct {
	Resource handle.Handle[handle.TextureMarker]
	Before   ResourceState
	After    ResourceState
}

// List is a command list being recorded. It is not safe for concurrent
// use: exactly one goroutine records into a List between Begin and Close.
type List struct {
	state    State
	barriers []Barrier
	tracked  map[handle.Handle[handle.TextureMarker]]ResourceState
	events   []string

	passOpen   bool
	boundSlots [slotCount][]byte
	ops        []Op
}

// New creates a List in the idle state.
func New() *List {
	return &List{
		state:   StateIdle,
		tracked: make(map[handle.Handle[handle.TextureMarker]]ResourceState),
	}
}

func (l *List) requireState(want State, op string) {
	if l.state != want {
		panic(fmt.Sprintf("command: %s called in state %s, want %s", op, l.state, want))
	}
}

// Begin transitions the list from idle to recording. Calling Begin from
// any other state is a programming error and panics — command list misuse
// is treated as fatal in every build per the RHI's state-misuse error
// class.
func (l *List) Begin() {
	l.requireState(StateIdle, "Begin")
	l.state = StateRecording
	l.barriers = l.barriers[:0]
	clear(l.tracked)
	l.passOpen = false
	l.boundSlots = [slotCount][]byte{}
	l.ops = l.ops[:0]
}

// Transition records the resource's new desired state, emitting a Barrier
// only if it is incompatible with the last state recorded for that
// resource. The first time a resource is touched in a list it is assumed
// to already be in After, so no barrier is emitted.
func (l *List) Transition(res handle.Handle[handle.TextureMarker], after ResourceState) {
	l.requireState(StateRecording, "Transition")

	before, tracked := l.tracked[res]
	if tracked && !before.isCompatible(after) {
		l.barriers = append(l.barriers, Barrier{Resource: res, Before: before, After: after})
	}
	l.tracked[res] = after
}

// BeginEvent opens a named debug region around subsequent recorded work,
// for capture tools. EndEvent must be called before Close.
func (l *List) BeginEvent(name string) {
	l.requireState(StateRecording, "BeginEvent")
	l.events = append(l.events, name)
}

// EndEvent closes the most recently opened debug region.
func (l *List) EndEvent() {
	l.requireState(StateRecording, "EndEvent")
	if len(l.events) > 0 {
		l.events = l.events[:len(l.events)-1]
	}
}

// Close transitions the list from recording to closed. No further
// recording calls are valid; the list returns to idle only through
// MarkSubmitted and Reset, after which Begin starts a new recording.
func (l *List) Close() {
	l.requireState(StateRecording, "Close")
	if len(l.events) != 0 {
		panic("command: Close called with unbalanced BeginEvent/EndEvent")
	}
	if l.passOpen {
		panic("command: Close called with a graphics pass still open")
	}
	l.state = StateClosed
}

// MarkSubmitted transitions the list from closed to in-flight, meaning it
// has been handed to the GPU queue and is awaiting fence completion.
func (l *List) MarkSubmitted() {
	l.requireState(StateClosed, "MarkSubmitted")
	l.state = StateInFlight
}

// Reset transitions an in-flight list back to idle once the frame
// scheduler has confirmed the GPU finished executing it.
func (l *List) Reset() {
	l.requireState(StateInFlight, "Reset")
	l.state = StateIdle
}

// State returns the list's current lifecycle state.
func (l *List) State() State {
	return l.state
}

// Barriers returns the barriers recorded since the last Begin.
func (l *List) Barriers() []Barrier {
	return l.barriers
}
