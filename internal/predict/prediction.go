// Package predict implements client-side movement prediction and
// server-reconciliation smoothing.
package predict

import (
	"math"

	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
)

const (
	maxPendingCommands   = 128
	errorCorrectionSpeed = 20.0
	errorThreshold       = 0.0001
	snapThreshold        = 1.0
)

// Mover applies one tick's input deterministically, returning the
// resulting position. It abstracts the embedding application's physics
// step (rigid body / character controller) so this package stays
// protocol- and reconciliation-focused rather than owning a physics
// engine itself.
type Mover interface {
	Move(position geom.Vec3, cmd wire.ClientCommand, dt float32) geom.Vec3
}

// PropSink receives dynamic-prop pose updates during SyncProps. Dynamic
// props are never predicted locally; they are mirrored as kinematic
// bodies driven purely by the latest snapshot.
type PropSink interface {
	UpsertKinematicSphere(id uint32, position geom.Vec3, orientation geom.Quat, radius float32)
	UpsertKinematicBox(id uint32, position geom.Vec3, orientation geom.Quat, halfExtents geom.Vec3)
	Remove(id uint32)
}

type pendingCommand struct {
	sequence      uint32
	positionAfter geom.Vec3
}

// Prediction is the client-side predicted movement state for the local
// player. Grounded on original_source's ClientPrediction
// (client/src/net/prediction.rs).
type Prediction struct {
	pending []pendingCommand

	position       geom.Vec3
	prevPosition   geom.Vec3
	visualPosition geom.Vec3
	orientation    geom.Quat
	positionError  geom.Vec3

	lastAckedSequence uint32

	mover Mover
	dt    float32

	propHandles map[uint32]struct{}
}

func NewPrediction(tickRate int, mover Mover, spawnPosition geom.Vec3) *Prediction {
	return &Prediction{
		position:       spawnPosition,
		prevPosition:   spawnPosition,
		visualPosition: spawnPosition,
		orientation:    geom.IdentityQuat,
		mover:          mover,
		dt:             1.0 / float32(tickRate),
		propHandles:    make(map[uint32]struct{}),
	}
}

// PrepareTick snapshots the logical position before this tick's input is
// applied, establishing the interpolation source for UpdateVisuals.
func (p *Prediction) PrepareTick() {
	p.prevPosition = p.position
}

// ApplyInput runs one tick of locally predicted movement.
func (p *Prediction) ApplyInput(cmd wire.ClientCommand) {
	p.position = p.mover.Move(p.position, cmd, p.dt)
	yaw, pitch := cmd.DecodeViewAngles()
	p.orientation = geom.FromEulerYXZ(yaw, -pitch)
}

// Update decays the visual position-error term exponentially, so a
// reconciliation correction fades out rather than popping.
func (p *Prediction) Update(dt float32) {
	decay := float32(math.Exp(float64(-errorCorrectionSpeed * dt)))
	p.positionError = p.positionError.Scale(decay)
}

// UpdateVisuals computes the render position: the sub-tick interpolation
// between the previous and current logical position, plus whatever
// position-error offset reconciliation left outstanding.
func (p *Prediction) UpdateVisuals(alpha float32) {
	interpolated := p.prevPosition.Lerp(p.position, alpha)
	p.visualPosition = interpolated.Add(p.positionError)
}

// StoreCommand remembers the position this command produced, so a later
// server ack can be matched back to the exact predicted state at the time.
func (p *Prediction) StoreCommand(sequence uint32) {
	p.pending = append(p.pending, pendingCommand{sequence: sequence, positionAfter: p.position})
	if len(p.pending) > maxPendingCommands {
		p.pending = p.pending[1:]
	}
}

// Reconcile applies an authoritative server position for a previously
// predicted, now-acknowledged command sequence. Stale or duplicate acks
// (acked_sequence <= last acked) are ignored.
func (p *Prediction) Reconcile(serverPosition geom.Vec3, serverOrientation geom.Quat, ackedSequence uint32) {
	_ = serverOrientation // server orientation is authoritative only for remote view; local orientation stays client-driven

	if ackedSequence <= p.lastAckedSequence {
		return
	}
	p.lastAckedSequence = ackedSequence

	for len(p.pending) > 0 && p.pending[0].sequence < ackedSequence {
		p.pending = p.pending[1:]
	}

	if len(p.pending) == 0 || p.pending[0].sequence != ackedSequence {
		return
	}
	ackedPosition := p.pending[0].positionAfter
	p.pending = p.pending[1:]

	serverError := serverPosition.Sub(ackedPosition)
	errorMagnitude := serverError.Length()
	if errorMagnitude < errorThreshold {
		return
	}

	p.position = p.position.Add(serverError)
	p.prevPosition = p.prevPosition.Add(serverError)
	for i := range p.pending {
		p.pending[i].positionAfter = p.pending[i].positionAfter.Add(serverError)
	}

	if errorMagnitude > snapThreshold {
		p.positionError = geom.Vec3{}
	} else {
		// Smooth correction: visual position must not jump. Solving for
		// NewVisual == OldVisual given NewLogic == OldLogic + serverError
		// yields NewError = OldError - serverError.
		p.positionError = p.positionError.Sub(serverError)
	}
}

func (p *Prediction) PredictedPosition() geom.Vec3    { return p.visualPosition }
func (p *Prediction) PredictedOrientation() geom.Quat { return p.orientation }
func (p *Prediction) PendingCommandCount() int        { return len(p.pending) }

// Reset returns prediction state to a fresh spawn, discarding all
// pending commands and accumulated error.
func (p *Prediction) Reset(spawnPosition geom.Vec3) {
	p.pending = nil
	p.position = spawnPosition
	p.prevPosition = spawnPosition
	p.visualPosition = spawnPosition
	p.orientation = geom.IdentityQuat
	p.positionError = geom.Vec3{}
	p.lastAckedSequence = 0
	p.propHandles = make(map[uint32]struct{})
}

// SyncProps mirrors every DynamicProp entity in the snapshot into sink as
// a kinematic body, creating new handles for props seen for the first
// time and removing handles for props no longer present. Dynamic props
// are never locally predicted.
func (p *Prediction) SyncProps(snapshot wire.WorldSnapshot, sink PropSink) {
	active := make(map[uint32]struct{}, len(snapshot.Entities))

	for _, state := range snapshot.Entities {
		if wire.EntityType(state.EntityType) != wire.EntityDynamicProp {
			continue
		}
		active[state.EntityID] = struct{}{}

		position := geom.Vec3{X: state.Position[0], Y: state.Position[1], Z: state.Position[2]}
		q := state.DecodeOrientation()
		orientation := geom.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}.Normalize()
		scale := state.DecodeScale()

		if _, exists := p.propHandles[state.EntityID]; exists {
			if state.Shape == 1 {
				sink.UpsertKinematicSphere(state.EntityID, position, orientation, scale[0]*0.5)
			} else {
				sink.UpsertKinematicBox(state.EntityID, position, orientation,
					geom.Vec3{X: scale[0] * 0.5, Y: scale[1] * 0.5, Z: scale[2] * 0.5})
			}
			continue
		}

		p.propHandles[state.EntityID] = struct{}{}
		if state.Shape == 1 {
			sink.UpsertKinematicSphere(state.EntityID, position, orientation, scale[0]*0.5)
		} else {
			sink.UpsertKinematicBox(state.EntityID, position, orientation,
				geom.Vec3{X: scale[0] * 0.5, Y: scale[1] * 0.5, Z: scale[2] * 0.5})
		}
	}

	for id := range p.propHandles {
		if _, stillActive := active[id]; !stillActive {
			sink.Remove(id)
			delete(p.propHandles, id)
		}
	}
}
