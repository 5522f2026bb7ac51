package world

import (
	"testing"

	"duelnet-go/internal/wire"
)

func TestSpawnAssignsMonotonicNeverReusedIDs(t *testing.T) {
	w := NewWorld()
	a := w.SpawnEntity(wire.EntityPlayer)
	b := w.SpawnEntity(wire.EntityPlayer)
	if b.ID <= a.ID {
		t.Fatalf("second spawn id %d should exceed first %d", b.ID, a.ID)
	}
	w.DespawnEntity(b.ID)
	c := w.SpawnEntity(wire.EntityPlayer)
	if c.ID == b.ID {
		t.Fatal("despawned id must never be reused")
	}
}

func TestFullSnapshotIncludesAllLiveEntities(t *testing.T) {
	w := NewWorld()
	w.SpawnEntity(wire.EntityPlayer)
	w.SpawnEntity(wire.EntityProjectile)
	w.AdvanceTick()

	snap := w.GenerateSnapshot(1000)
	if len(snap.Entities) != 2 {
		t.Fatalf("GenerateSnapshot() entities = %d, want 2", len(snap.Entities))
	}
	if snap.IsDelta {
		t.Fatal("full snapshot should not be marked as delta")
	}
}

func TestRemovedEntitiesReportedForTickTheyWereDespawnedIn(t *testing.T) {
	w := NewWorld()
	e := w.SpawnEntity(wire.EntityPlayer)
	w.AdvanceTick()
	w.DespawnEntity(e.ID)
	w.AdvanceTick()

	snap := w.GenerateSnapshot(2000)
	if len(snap.RemovedEntities) != 1 || snap.RemovedEntities[0] != e.ID {
		t.Fatalf("RemovedEntities = %v, want [%d]", snap.RemovedEntities, e.ID)
	}

	// Scratch should be clear for the next tick.
	w.AdvanceTick()
	snap2 := w.GenerateSnapshot(3000)
	if len(snap2.RemovedEntities) != 0 {
		t.Fatalf("RemovedEntities carried over to next tick: %v", snap2.RemovedEntities)
	}
}

func TestGenerateDeltaFromBaselineOnlyIncludesChangedEntities(t *testing.T) {
	w := NewWorld()
	buf := NewSnapshotBuffer(16)

	a := w.SpawnEntity(wire.EntityPlayer)
	b := w.SpawnEntity(wire.EntityPlayer)
	w.AdvanceTick()
	w.CaptureBaseline(buf)
	baselineTick := w.Tick()

	a.Position.X = 42.0 // only 'a' changes
	w.AdvanceTick()

	delta, ok := w.GenerateDeltaFromBaseline(5000, baselineTick, buf)
	if !ok {
		t.Fatal("GenerateDeltaFromBaseline() should find the baseline still in the ring")
	}
	if !delta.IsDelta || delta.BaselineTick != baselineTick {
		t.Fatalf("delta snapshot header wrong: %+v", delta)
	}
	if len(delta.Entities) != 1 || delta.Entities[0].EntityID != a.ID {
		t.Fatalf("delta.Entities = %+v, want only entity %d", delta.Entities, a.ID)
	}
	_ = b
}

func TestGenerateDeltaFromBaselineReportsRemovals(t *testing.T) {
	w := NewWorld()
	buf := NewSnapshotBuffer(16)

	a := w.SpawnEntity(wire.EntityPlayer)
	b := w.SpawnEntity(wire.EntityPlayer)
	w.AdvanceTick()
	w.CaptureBaseline(buf)
	baselineTick := w.Tick()

	w.DespawnEntity(b.ID)
	w.AdvanceTick()

	delta, ok := w.GenerateDeltaFromBaseline(6000, baselineTick, buf)
	if !ok {
		t.Fatal("expected baseline to be found")
	}
	if len(delta.RemovedEntities) != 1 || delta.RemovedEntities[0] != b.ID {
		t.Fatalf("RemovedEntities = %v, want [%d]", delta.RemovedEntities, b.ID)
	}
	_ = a
}

func TestGenerateDeltaFromBaselineMissesEvictedRingSlot(t *testing.T) {
	w := NewWorld()
	buf := NewSnapshotBuffer(2)
	w.AdvanceTick()
	w.CaptureBaseline(buf) // tick 1, slot 1%2=1
	staleTick := w.Tick()

	w.AdvanceTick()
	w.CaptureBaseline(buf) // tick 2, slot 0
	w.AdvanceTick()
	w.CaptureBaseline(buf) // tick 3, slot 1 -- overwrites staleTick's slot

	if _, ok := w.GenerateDeltaFromBaseline(100, staleTick, buf); ok {
		t.Fatal("stale baseline tick should no longer be found after its ring slot was overwritten")
	}
}

func TestAnimationFrameExcludedFromDirtyComparison(t *testing.T) {
	w := NewWorld()
	buf := NewSnapshotBuffer(16)
	e := w.SpawnEntity(wire.EntityPlayer)
	w.AdvanceTick()
	w.CaptureBaseline(buf)
	baselineTick := w.Tick()

	e.AnimationPhase = 0.5 // only animation phase changes
	w.AdvanceTick()

	delta, ok := w.GenerateDeltaFromBaseline(7000, baselineTick, buf)
	if !ok {
		t.Fatal("expected baseline to be found")
	}
	if len(delta.Entities) != 0 {
		t.Fatalf("animation-only change should not mark entity dirty, got %+v", delta.Entities)
	}
}
