// Package world holds the server's authoritative entity table, tick
// counter, and snapshot/delta generation.
package world

import (
	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
)

// Entity is the live, full-precision representation of one simulated
// object. ToWireState quantizes it down to a wire.EntityState for
// World.GenerateSnapshot and delta generation.
type Entity struct {
	ID             uint32
	Type           wire.EntityType
	Position       geom.Vec3
	Velocity       geom.Vec3
	Orientation    geom.Quat
	Scale          geom.Vec3
	Shape          uint8
	AnimationState uint8
	AnimationPhase float32 // [0,1), wraps; quantized to AnimationFrame on snapshot
	Flags          uint16
}

func newEntity(id uint32, entityType wire.EntityType) *Entity {
	return &Entity{
		ID:          id,
		Type:        entityType,
		Orientation: geom.IdentityQuat,
		Scale:       geom.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// ToWireState quantizes the entity into its on-wire representation.
func (e *Entity) ToWireState() wire.EntityState {
	s := wire.NewEntityState(e.ID, e.Type)
	s.Position = [3]float32{e.Position.X, e.Position.Y, e.Position.Z}
	s.EncodeVelocity([3]float32{e.Velocity.X, e.Velocity.Y, e.Velocity.Z})
	s.EncodeOrientation([4]float32{e.Orientation.X, e.Orientation.Y, e.Orientation.Z, e.Orientation.W})
	s.EncodeScale([3]float32{e.Scale.X, e.Scale.Y, e.Scale.Z})
	s.Shape = e.Shape
	s.AnimationState = e.AnimationState
	s.AnimationFrame = uint8(e.AnimationPhase * 255.0)
	s.Flags = e.Flags
	return s
}

func (e *Entity) HasFlag(flag uint16) bool {
	return e.Flags&flag != 0
}

func (e *Entity) SetFlag(flag uint16, set bool) {
	if set {
		e.Flags |= flag
	} else {
		e.Flags &^= flag
	}
}
