package world

import "duelnet-go/internal/wire"

// SnapshotBuffer is a fixed-capacity ring of per-tick entity-state
// baselines, indexed by tick modulo capacity for O(1) store/lookup.
// Grounded on original_source's SnapshotBuffer in net/snapshot.rs.
type SnapshotBuffer struct {
	capacity uint32
	slots    []snapshotSlot
}

type snapshotSlot struct {
	tick    uint32
	valid   bool
	entities map[uint32]wire.EntityState
}

func NewSnapshotBuffer(capacity uint32) *SnapshotBuffer {
	if capacity == 0 {
		capacity = 1
	}
	return &SnapshotBuffer{
		capacity: capacity,
		slots:    make([]snapshotSlot, capacity),
	}
}

func (b *SnapshotBuffer) Capacity() uint32 { return b.capacity }

// Store records the baseline entity-state map for a tick, overwriting
// whatever previously occupied that ring slot.
func (b *SnapshotBuffer) Store(tick uint32, entities map[uint32]wire.EntityState) {
	idx := tick % b.capacity
	b.slots[idx] = snapshotSlot{tick: tick, valid: true, entities: entities}
}

// Get returns the baseline stored for tick, or false if that slot has
// since been overwritten by a later tick (the ring has wrapped) or was
// never populated.
func (b *SnapshotBuffer) Get(tick uint32) (map[uint32]wire.EntityState, bool) {
	idx := tick % b.capacity
	slot := b.slots[idx]
	if !slot.valid || slot.tick != tick {
		return nil, false
	}
	return slot.entities, true
}

// Has reports whether tick's baseline is still present in the buffer.
func (b *SnapshotBuffer) Has(tick uint32) bool {
	_, ok := b.Get(tick)
	return ok
}
