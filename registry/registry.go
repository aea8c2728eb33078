// Package registry implements the resource registry: a handle.Pool wrapper
// that adds debug names, a stable debug UUID independent of slot reuse,
// and the RHI's two-tier invalid-handle policy — loud in debug builds,
// silent in release builds.
package registry

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashfall-engine/rhi/handle"
)

// debugChecks is flipped on by an init() in debug.go, which only compiles
// under the rhidebug build tag. Gating this way means release builds pay
// no runtime cost to find out whether they should log.
var debugChecks = false

// Entry is the envelope every registered resource is stored in: the
// caller's value plus the bookkeeping the RHI error taxonomy needs.
type Entry[T any] struct {
	Value     T
	DebugName string
	uuid      uuid.UUID
}

// DebugUUID returns a stable identifier for this resource that survives
// its slot being reused after release — useful for log correlation once a
// handle.Handle's generation has moved on.
func (e Entry[T]) DebugUUID() uuid.UUID {
	return e.uuid
}

// Registry manages the lifecycle of resources of one kind (buffers,
// textures, PSOs, ...), keyed by generation-tagged handles.
type Registry[T any, M handle.Marker] struct {
	pool   *handle.Pool[Entry[T], M]
	logger zerolog.Logger
	kind   string
}

// New creates a Registry with a fixed capacity. kind names the resource
// kind for log messages ("buffer", "texture", "pso", ...).
func New[T any, M handle.Marker](capacity int, kind string, logger zerolog.Logger) *Registry[T, M] {
	return &Registry[T, M]{
		pool:   handle.New[Entry[T], M](capacity),
		logger: logger,
		kind:   kind,
	}
}

// maxDebugNameBytes bounds debug names at the API boundary; longer names
// are truncated with a warning rather than rejected.
const maxDebugNameBytes = 256

// Create allocates a handle for value and returns it.
func (r *Registry[T, M]) Create(value T, debugName string) (handle.Handle[M], error) {
	if len(debugName) > maxDebugNameBytes {
		r.logger.Warn().Str("kind", r.kind).Str("name", debugName[:32]).Msg("debug name truncated to 256 bytes")
		debugName = debugName[:maxDebugNameBytes]
	}
	h, err := r.pool.Alloc(Entry[T]{Value: value, DebugName: debugName, uuid: uuid.New()})
	if err != nil {
		r.logger.Error().Str("kind", r.kind).Str("name", debugName).Err(err).Msg("resource registry exhausted")
		return handle.Handle[M]{}, err
	}
	return h, nil
}

// Get resolves h to its stored value. On a stale or unknown handle it
// returns the zero value and false; in debug builds it instead logs the
// failure at zerolog's Fatal level with the caller-supplied context, which
// exits the process, per the RHI's invalid-handle error taxonomy (fatal in
// debug, silent in release).
func (r *Registry[T, M]) Get(h handle.Handle[M], callerContext string) (T, bool) {
	entry, ok := r.pool.Get(h)
	if !ok {
		if debugChecks {
			r.logger.Fatal().
				Str("kind", r.kind).
				Str("handle", h.String()).
				Str("context", callerContext).
				Msg("invalid resource handle")
		}
		var zero T
		return zero, false
	}
	return entry.Value, true
}

// GetEntry is like Get but returns the full Entry, including debug name
// and UUID, for callers that need them (logging, capture tooling).
func (r *Registry[T, M]) GetEntry(h handle.Handle[M]) (Entry[T], bool) {
	return r.pool.Get(h)
}

// Destroy releases h's slot. Destroying a stale or nil handle is a no-op.
func (r *Registry[T, M]) Destroy(h handle.Handle[M]) {
	r.pool.Free(h)
}

// Count returns the number of currently live resources of this kind.
func (r *Registry[T, M]) Count() int {
	return r.pool.Len()
}

// Capacity returns the registry's fixed capacity.
func (r *Registry[T, M]) Capacity() int {
	return r.pool.Cap()
}
