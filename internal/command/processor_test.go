package command

import (
	"testing"

	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
	"duelnet-go/internal/world"
)

// straightLineMover moves along +X by a fixed distance per tick,
// ignoring the command entirely, to keep the test deterministic.
type straightLineMover struct{ distance float32 }

func (m straightLineMover) Move(position geom.Vec3, state *PlayerState, cmd wire.ClientCommand, dt float32) (geom.Vec3, geom.Quat) {
	return position.Add(geom.Vec3{X: m.distance}), geom.IdentityQuat
}

func TestProcessorAppliesCommandToEntity(t *testing.T) {
	w := world.NewWorld()
	entity := w.SpawnEntity(wire.EntityPlayer)

	p := NewProcessor(straightLineMover{distance: 2})
	p.Process(wire.NewClientCommand(1, 1), entity)

	if entity.Position.X != 2 {
		t.Fatalf("entity.Position.X = %v, want 2", entity.Position.X)
	}
}

func TestProcessAllSkipsMissingEntity(t *testing.T) {
	w := world.NewWorld()
	p := NewProcessor(straightLineMover{distance: 1})

	// Should not panic even though entity 999 doesn't exist.
	p.ProcessAll([]PendingCommand{{EntityID: 999, Command: wire.NewClientCommand(1, 1)}}, w)
}

func TestPlayerStateImpulseQueueing(t *testing.T) {
	s := &PlayerState{}
	if s.HasPendingImpulse() {
		t.Fatal("fresh state should have no pending impulse")
	}
	s.QueueImpulseAdd(geom.Vec3{X: 1})
	if !s.HasPendingImpulse() {
		t.Fatal("expected pending impulse after QueueImpulseAdd")
	}
	_, hasSet, add := s.ConsumeImpulse()
	if hasSet {
		t.Fatal("no Set impulse was queued")
	}
	if add.X != 1 {
		t.Fatalf("add.X = %v, want 1", add.X)
	}
	if s.HasPendingImpulse() {
		t.Fatal("impulse should be cleared after Consume")
	}
}

func TestRemovePlayerClearsState(t *testing.T) {
	p := NewProcessor(straightLineMover{distance: 1})
	p.PlayerState(5).ApplyStun(2.0)
	p.RemovePlayer(5)
	if p.PlayerState(5).IsStunned() {
		t.Fatal("expected fresh state after RemovePlayer")
	}
}
