package command

import "duelnet-go/internal/geom"

// PlayerState holds the per-entity movement-controller state that
// persists across ticks but isn't part of the replicated entity itself
// (deferred impulses, stun/crouch timers, grounded tracking).
type PlayerState struct {
	StrafeGroundTime   float32
	StunnedDuration    float32
	CrouchAmount       float32
	hasDeferredSet     bool
	deferredImpulseSet geom.Vec3
	DeferredImpulseAdd geom.Vec3
	LastGrounded       bool
	JumpHeldLastFrame  bool
}

// QueueImpulseSet schedules an absolute-velocity impulse to apply on
// the next Move. A previously queued additive impulse is kept;
// ConsumeImpulse returns both.
func (s *PlayerState) QueueImpulseSet(impulse geom.Vec3) {
	s.hasDeferredSet = true
	s.deferredImpulseSet = impulse
}

// QueueImpulseAdd accumulates an additive impulse to apply on the next
// Move.
func (s *PlayerState) QueueImpulseAdd(impulse geom.Vec3) {
	s.DeferredImpulseAdd = s.DeferredImpulseAdd.Add(impulse)
}

// HasPendingImpulse reports whether a deferred impulse is queued.
func (s *PlayerState) HasPendingImpulse() bool {
	return s.hasDeferredSet || s.DeferredImpulseAdd.LengthSquared() > 0.0001
}

// ConsumeImpulse clears and returns the queued impulses.
func (s *PlayerState) ConsumeImpulse() (set geom.Vec3, hasSet bool, add geom.Vec3) {
	set, hasSet = s.deferredImpulseSet, s.hasDeferredSet
	add = s.DeferredImpulseAdd
	s.hasDeferredSet = false
	s.deferredImpulseSet = geom.Vec3{}
	s.DeferredImpulseAdd = geom.Vec3{}
	return
}

// ApplyStun raises the stun timer to at least duration, never lowering
// it.
func (s *PlayerState) ApplyStun(duration float32) {
	if duration > s.StunnedDuration {
		s.StunnedDuration = duration
	}
}

// IsStunned reports whether the stun timer is still active.
func (s *PlayerState) IsStunned() bool { return s.StunnedDuration > 0 }
