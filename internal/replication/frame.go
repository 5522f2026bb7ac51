package replication

import "duelnet-go/internal/wire"

// frame is a fully-expanded snapshot: every entity known at the time it
// was buffered, not just the ones a delta actually touched.
type frame struct {
	serverTimeMs float64
	entities     map[uint32]wire.EntityState
}

// expandSnapshot merges an incoming (possibly delta) snapshot onto the
// known-entity cache and returns the merged map, which the caller keeps as
// the updated cache and copies into the buffered frame; a full snapshot
// replaces the cache outright. Grounded on the original client's known-entity expansion step:
// a delta snapshot only carries changed-or-new entities plus removed ids,
// so the buffered frame must be reconstructed by overlaying those onto
// the last fully-known state.
func expandSnapshot(known map[uint32]wire.EntityState, snap wire.WorldSnapshot) map[uint32]wire.EntityState {
	expanded := make(map[uint32]wire.EntityState, len(known)+len(snap.Entities))
	if snap.IsDelta {
		for id, s := range known {
			expanded[id] = s
		}
	}
	for _, s := range snap.Entities {
		expanded[s.EntityID] = s
	}
	for _, id := range snap.RemovedEntities {
		delete(expanded, id)
	}
	return expanded
}
