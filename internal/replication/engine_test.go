package replication

import (
	"testing"

	"duelnet-go/internal/wire"
)

func stateAt(id uint32, x float32) wire.EntityState {
	s := wire.NewEntityState(id, wire.EntityPlayer)
	s.Position = [3]float32{x, 0, 0}
	return s
}

func fullSnapshot(tick uint32, serverTimeMs uint64, states ...wire.EntityState) wire.WorldSnapshot {
	snap := wire.NewWorldSnapshot(tick, serverTimeMs)
	snap.Entities = states
	return snap
}

func TestEngineRequiresMinimumBufferedSnapshots(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.IngestSnapshot(fullSnapshot(1, 0, stateAt(1, 0)), 0)
	e.Update(0, 1.0/60.0)
	if _, ok := e.Sample(1); ok {
		t.Fatal("Sample() should refuse to produce output before MinBufferSnapshots frames arrive")
	}
}

func TestEngineInterpolatesBetweenBracketingFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBufferSnapshots = 2
	e := NewEngine(cfg)

	e.IngestSnapshot(fullSnapshot(1, 0, stateAt(1, 0)), 0)
	e.IngestSnapshot(fullSnapshot(2, 100, stateAt(1, 100)), 0)

	// Force the render clock to sit exactly halfway between the two frames.
	e.haveRenderTime = true
	e.haveOffset = true
	e.serverOffsetMs = 0
	e.renderTimeMs = 50

	sample, ok := e.Sample(1)
	if !ok {
		t.Fatal("Sample() should succeed once enough frames are buffered")
	}
	if sample.Position.X < 49 || sample.Position.X > 51 {
		t.Fatalf("interpolated X = %v, want ~50", sample.Position.X)
	}
}

func TestEngineExtrapolatesPastNewestFrameWithinLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBufferSnapshots = 2
	e := NewEngine(cfg)

	s0 := stateAt(1, 0)
	s0.EncodeVelocity([3]float32{10, 0, 0})
	e.IngestSnapshot(fullSnapshot(1, 0, s0), 0)
	e.IngestSnapshot(fullSnapshot(2, 100, s0), 0)

	e.haveRenderTime = true
	e.haveOffset = true
	e.serverOffsetMs = 0
	e.renderTimeMs = 200 // 100ms past the newest frame

	sample, ok := e.Sample(1)
	if !ok {
		t.Fatal("Sample() should extrapolate past the newest frame")
	}
	if !sample.Extrapolated {
		t.Fatal("sample should be flagged as extrapolated")
	}
	if sample.Position.X < 0.9 || sample.Position.X > 1.1 {
		t.Fatalf("extrapolated X = %v, want ~1.0 (10 units/s * 0.1s)", sample.Position.X)
	}
}

func TestDeltaSnapshotExpandsAgainstKnownCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBufferSnapshots = 2
	e := NewEngine(cfg)

	e.IngestSnapshot(fullSnapshot(1, 0, stateAt(1, 5), stateAt(2, 9)), 0)

	delta := wire.NewDeltaWorldSnapshot(2, 100, 1)
	delta.Entities = []wire.EntityState{stateAt(1, 7)} // only entity 1 changed
	e.IngestSnapshot(delta, 0)

	if len(e.buffer) != 2 {
		t.Fatalf("buffer len = %d, want 2", len(e.buffer))
	}
	expanded := e.buffer[1].entities
	if _, ok := expanded[2]; !ok {
		t.Fatal("delta expansion should carry forward entity 2 from the known cache")
	}
	if expanded[1].Position[0] != 7 {
		t.Fatalf("expanded entity 1 X = %v, want 7", expanded[1].Position[0])
	}
}
