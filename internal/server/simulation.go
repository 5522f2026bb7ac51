package server

import (
	"math"

	"duelnet-go/internal/command"
	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
	"duelnet-go/internal/world"
)

const (
	sprintSpeed = 10.0
	walkSpeed   = 5.0
	gravity     = 9.8
)

// authoritativeMover is the default command.Mover: yaw-relative ground
// movement at walk or sprint speed, orientation set directly from the
// command's view angles. Grounded on crates/server/src/simulation.rs's
// apply_command.
type authoritativeMover struct{}

func (authoritativeMover) Move(position geom.Vec3, state *command.PlayerState, cmd wire.ClientCommand, dt float32) (geom.Vec3, geom.Quat) {
	moveDir := cmd.DecodeMoveDirection()
	yaw, pitch := cmd.DecodeViewAngles()

	speed := float32(walkSpeed)
	if cmd.HasFlag(wire.FlagSprint) {
		speed = sprintSpeed
	}

	moveVec := geom.Vec3{X: moveDir[0], Y: moveDir[1], Z: moveDir[2]}
	orientation := geom.FromEulerYXZ(yaw, -pitch)

	if moveVec.LengthSquared() <= 0.001 {
		return position, orientation
	}

	normalized := moveVec.Scale(1.0 / moveVec.Length())
	sinYaw := float32(math.Sin(float64(yaw)))
	cosYaw := float32(math.Cos(float64(yaw)))
	worldMove := geom.Vec3{
		X: normalized.X*cosYaw + normalized.Z*sinYaw,
		Y: normalized.Y,
		Z: -normalized.X*sinYaw + normalized.Z*cosYaw,
	}

	velocity := worldMove.Scale(speed)
	newPosition := position.Add(velocity.Scale(dt))
	return newPosition, orientation
}

// stepProjectiles applies simple gravity-affected ballistic motion to
// every projectile entity, clamping to the ground plane. Non-projectile
// entities are untouched here; player movement is driven entirely by
// authoritativeMover via the command pipeline. Grounded on
// crates/server/src/simulation.rs's simulate_world/simulate_projectile.
func stepProjectiles(w *world.World, dt float32) {
	w.Each(func(e *world.Entity) {
		if e.Type != wire.EntityProjectile {
			return
		}
		e.Velocity.Y -= gravity * dt
		e.Position = e.Position.Add(e.Velocity.Scale(dt))
		if e.Position.Y < 0.0 {
			e.Position.Y = 0.0
			e.Velocity = geom.Vec3{}
		}
	})
}
