package world

import (
	"sync"

	"duelnet-go/internal/wire"
)

// World is the authoritative entity table for one simulated match.
// Entity ids are monotonic and never reused, so a client can always tell
// a genuinely new entity apart from a despawn/respawn pair that happened
// to land on the same slot. Grounded on original_source's World in
// net/snapshot.rs.
type World struct {
	mu sync.RWMutex

	entities     map[uint32]*Entity
	nextEntityID uint32
	tick         uint32

	// removedThisTick accumulates despawns since the last AdvanceTick call;
	// lastRemovedEntities freezes that set for the tick just completed so
	// GenerateSnapshot can still see it after AdvanceTick runs.
	removedThisTick     []uint32
	lastRemovedEntities []uint32
}

func NewWorld() *World {
	return &World{
		entities:     make(map[uint32]*Entity),
		nextEntityID: 1,
	}
}

func (w *World) Tick() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// SpawnEntity allocates a new entity with a never-reused id.
func (w *World) SpawnEntity(entityType wire.EntityType) *Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextEntityID
	w.nextEntityID++
	e := newEntity(id, entityType)
	w.entities[id] = e
	return e
}

// DespawnEntity removes an entity and records it in the current tick's
// removed-entity scratch so the next snapshot reports its removal.
func (w *World) DespawnEntity(id uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	w.removedThisTick = append(w.removedThisTick, id)
	return true
}

func (w *World) Get(id uint32) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e, ok
}

// Each iterates live entities under a read lock; fn must not mutate the
// entity table itself (spawn/despawn) while iterating.
func (w *World) Each(fn func(*Entity)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, e := range w.entities {
		fn(e)
	}
}

func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// AdvanceTick increments the tick counter and freezes the current
// despawn scratch for the tick just completed, resetting the scratch for
// the tick about to begin.
func (w *World) AdvanceTick() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	w.lastRemovedEntities = w.removedThisTick
	w.removedThisTick = nil
	return w.tick
}

// entityStates snapshots every live entity into its quantized wire form.
func (w *World) entityStates() map[uint32]wire.EntityState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[uint32]wire.EntityState, len(w.entities))
	for id, e := range w.entities {
		out[id] = e.ToWireState()
	}
	return out
}

// GenerateSnapshot builds a full snapshot of every live entity at the
// current tick. The caller (the server tick loop, which tracks
// per-connection command acks) is responsible for stamping the returned
// snapshot's LastCommandAck field before sending it to a specific client.
func (w *World) GenerateSnapshot(serverTimeMs uint64) wire.WorldSnapshot {
	states := w.entityStates()
	snap := wire.NewWorldSnapshot(w.Tick(), serverTimeMs)
	snap.Entities = make([]wire.EntityState, 0, len(states))
	for _, s := range states {
		snap.Entities = append(snap.Entities, s)
	}
	w.mu.RLock()
	snap.RemovedEntities = append([]uint32(nil), w.lastRemovedEntities...)
	w.mu.RUnlock()
	return snap
}

// GenerateDeltaFromBaseline builds a delta snapshot relative to a prior
// tick's baseline: only new-or-changed entities (per wire.StatesEqual)
// are included, plus the ids of entities present in the baseline but
// missing now. Returns false if the baseline tick is no longer present
// in buffer (the caller should fall back to a full snapshot).
func (w *World) GenerateDeltaFromBaseline(serverTimeMs uint64, baselineTick uint32, buffer *SnapshotBuffer) (wire.WorldSnapshot, bool) {
	baseline, ok := buffer.Get(baselineTick)
	if !ok {
		return wire.WorldSnapshot{}, false
	}
	current := w.entityStates()

	snap := wire.NewDeltaWorldSnapshot(w.Tick(), serverTimeMs, baselineTick)
	for id, state := range current {
		if baseState, existed := baseline[id]; !existed || !wire.StatesEqual(baseState, state) {
			snap.Entities = append(snap.Entities, state)
		}
	}
	for id := range baseline {
		if _, stillPresent := current[id]; !stillPresent {
			snap.RemovedEntities = append(snap.RemovedEntities, id)
		}
	}
	return snap, true
}

// CaptureBaseline stores the current tick's entity states into buffer so
// future deltas can be computed relative to it.
func (w *World) CaptureBaseline(buffer *SnapshotBuffer) {
	buffer.Store(w.Tick(), w.entityStates())
}
