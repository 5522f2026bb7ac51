package client

import (
	"math"

	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
)

const (
	sprintSpeed = 10.0
	walkSpeed   = 5.0
)

// predictionMover duplicates the server's authoritative ground-movement
// math (internal/server's authoritativeMover, grounded on
// crates/server/src/simulation.rs's apply_command) so local prediction
// tracks the eventual server correction as closely as possible. Any
// remaining drift is absorbed by predict.Prediction's reconciliation.
type predictionMover struct{}

func (predictionMover) Move(position geom.Vec3, cmd wire.ClientCommand, dt float32) geom.Vec3 {
	moveDir := cmd.DecodeMoveDirection()
	yaw, _ := cmd.DecodeViewAngles()

	speed := float32(walkSpeed)
	if cmd.HasFlag(wire.FlagSprint) {
		speed = sprintSpeed
	}

	moveVec := geom.Vec3{X: moveDir[0], Y: moveDir[1], Z: moveDir[2]}
	if moveVec.LengthSquared() <= 0.001 {
		return position
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
	return position.Add(velocity.Scale(dt))
}
