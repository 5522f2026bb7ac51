package command

import (
	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
	"duelnet-go/internal/world"
)

const tickRate = 1.0 / 60.0

// Mover applies one authoritative movement step for an entity given its
// command, player state, and dt, returning the resulting position and
// orientation. No physics-engine dependency is grounded anywhere in the
// example pack, so the actual collision/physics step is left to the
// caller's implementation of this interface.
type Mover interface {
	Move(position geom.Vec3, state *PlayerState, cmd wire.ClientCommand, dt float32) (geom.Vec3, geom.Quat)
}

// Processor applies drained commands to world entities, tracking the
// persistent per-entity PlayerState a Mover needs across ticks.
type Processor struct {
	mover        Mover
	playerStates map[uint32]*PlayerState
	dt           float32
}

// NewProcessor creates a Processor that delegates actual movement to
// mover, stepping at the canonical 60Hz simulation rate.
func NewProcessor(mover Mover) *Processor {
	return &Processor{mover: mover, playerStates: make(map[uint32]*PlayerState), dt: tickRate}
}

// PlayerState returns (creating if absent) the persistent movement
// state for entityID.
func (p *Processor) PlayerState(entityID uint32) *PlayerState {
	state, ok := p.playerStates[entityID]
	if !ok {
		state = &PlayerState{}
		p.playerStates[entityID] = state
	}
	return state
}

// Process applies a single command to entity.
func (p *Processor) Process(cmd wire.ClientCommand, entity *world.Entity) {
	state := p.PlayerState(entity.ID)
	position, orientation := p.mover.Move(entity.Position, state, cmd, p.dt)
	entity.Position = position
	entity.Orientation = orientation
}

// ProcessAll applies every pending command to the entity it targets, if
// that entity still exists in w.
func (p *Processor) ProcessAll(commands []PendingCommand, w *world.World) {
	for _, pending := range commands {
		entity, ok := w.Get(pending.EntityID)
		if !ok {
			continue
		}
		p.Process(pending.Command, entity)
	}
}

// RemovePlayer discards the persistent movement state for entityID,
// e.g. on disconnect or despawn.
func (p *Processor) RemovePlayer(entityID uint32) {
	delete(p.playerStates, entityID)
}
