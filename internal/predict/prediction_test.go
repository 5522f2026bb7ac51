package predict

import (
	"testing"

	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
)

type identityMover struct{}

func (identityMover) Move(position geom.Vec3, cmd wire.ClientCommand, dt float32) geom.Vec3 {
	return position
}

func TestReconcileSmoothCorrection(t *testing.T) {
	spawn := geom.Vec3{X: 0, Y: 2, Z: 0}
	p := NewPrediction(60, identityMover{}, spawn)

	p.PrepareTick()
	p.StoreCommand(1)

	startPos := p.position
	serverPos := geom.Vec3{X: startPos.X + 0.5, Y: startPos.Y, Z: startPos.Z}
	p.Reconcile(serverPos, geom.IdentityQuat, 1)

	if d := p.position.Sub(serverPos).Length(); d > 0.01 {
		t.Fatalf("logic position did not shift to server position: diff=%v", d)
	}
	wantError := geom.Vec3{X: -0.5, Y: 0, Z: 0}
	if d := p.positionError.Sub(wantError).Length(); d > 0.01 {
		t.Fatalf("positionError = %+v, want %+v", p.positionError, wantError)
	}

	p.UpdateVisuals(0.0)
	visual := p.PredictedPosition()
	if diff := visual.X - startPos.X; diff < -0.1 || diff > 0.1 {
		t.Fatalf("visual.X = %v, want ~%v (error should cancel the correction instantly)", visual.X, startPos.X)
	}

	p.Update(0.05)
	p.UpdateVisuals(0.0)
	visualAfter := p.PredictedPosition()
	if visualAfter.X <= startPos.X+0.1 {
		t.Fatalf("visual.X after decay = %v, want > %v", visualAfter.X, startPos.X+0.1)
	}
	if visualAfter.X >= serverPos.X {
		t.Fatalf("visual.X after decay = %v, want < server pos %v", visualAfter.X, serverPos.X)
	}
}

func TestUpdateVisualsInterpolatesBetweenPrevAndCurrent(t *testing.T) {
	spawn := geom.Vec3{X: 0, Y: 2, Z: 0}
	p := NewPrediction(60, identityMover{}, spawn)
	start := p.position
	p.PrepareTick()
	p.position = start.Add(geom.Vec3{X: 1, Y: 0, Z: 0})

	p.UpdateVisuals(0.5)
	if d := p.PredictedPosition().X - (start.X + 0.5); d > 0.01 || d < -0.01 {
		t.Fatalf("interpolated X = %v, want %v", p.PredictedPosition().X, start.X+0.5)
	}
}

func TestReconcileIgnoresStaleAck(t *testing.T) {
	p := NewPrediction(60, identityMover{}, geom.Vec3{})
	p.PrepareTick()
	p.StoreCommand(5)
	p.Reconcile(geom.Vec3{X: 10}, geom.IdentityQuat, 5)
	before := p.positionError

	// A stale/duplicate ack for the same or earlier sequence must not
	// reapply a correction.
	p.Reconcile(geom.Vec3{X: 999}, geom.IdentityQuat, 5)
	if p.positionError != before {
		t.Fatalf("stale ack mutated positionError: before=%+v after=%+v", before, p.positionError)
	}
}

type fakePropSink struct {
	spheres map[uint32]bool
	boxes   map[uint32]bool
	removed map[uint32]bool
}

func newFakePropSink() *fakePropSink {
	return &fakePropSink{spheres: map[uint32]bool{}, boxes: map[uint32]bool{}, removed: map[uint32]bool{}}
}

func (f *fakePropSink) UpsertKinematicSphere(id uint32, position geom.Vec3, orientation geom.Quat, radius float32) {
	f.spheres[id] = true
}

func (f *fakePropSink) UpsertKinematicBox(id uint32, position geom.Vec3, orientation geom.Quat, halfExtents geom.Vec3) {
	f.boxes[id] = true
}

func (f *fakePropSink) Remove(id uint32) {
	f.removed[id] = true
}

func TestSyncPropsCreatesAndRemoves(t *testing.T) {
	p := NewPrediction(60, identityMover{}, geom.Vec3{})
	sink := newFakePropSink()

	sphereState := wire.NewEntityState(10, wire.EntityDynamicProp)
	sphereState.Shape = 1
	boxState := wire.NewEntityState(11, wire.EntityDynamicProp)
	boxState.Shape = 0

	snap := wire.NewWorldSnapshot(1, 0)
	snap.Entities = []wire.EntityState{sphereState, boxState}
	p.SyncProps(snap, sink)

	if !sink.spheres[10] {
		t.Fatal("expected a kinematic sphere created for shape==1")
	}
	if !sink.boxes[11] {
		t.Fatal("expected a kinematic box created for shape!=1")
	}

	// Next snapshot drops entity 11.
	snap2 := wire.NewWorldSnapshot(2, 0)
	snap2.Entities = []wire.EntityState{sphereState}
	p.SyncProps(snap2, sink)

	if !sink.removed[11] {
		t.Fatal("expected prop 11 to be removed once absent from the snapshot")
	}
}
