package replication

import (
	"sort"

	"duelnet-go/internal/geom"
	"duelnet-go/internal/wire"
)

// EntitySample is the interpolated (or extrapolated) render state for one
// entity at the engine's current render time.
type EntitySample struct {
	Position       geom.Vec3
	Velocity       geom.Vec3
	Orientation    geom.Quat
	AnimationState uint8
	AnimationPhase float32
	Extrapolated   bool
}

// Engine buffers incoming world snapshots and produces smoothly
// interpolated per-entity render state. Grounded on the original
// client's NetworkInterpolation (client/src/net/interpolation.rs).
type Engine struct {
	config Config

	known  map[uint32]wire.EntityState
	buffer []frame // sorted ascending by serverTimeMs

	haveOffset     bool
	serverOffsetMs float64

	haveRenderTime bool
	renderTimeMs   float64
}

func NewEngine(config Config) *Engine {
	return &Engine{
		config: config,
		known:  make(map[uint32]wire.EntityState),
	}
}

// IngestSnapshot buffers an incoming snapshot and refreshes the server
// time offset estimate. localReceiveTimeMs and snapshot server times are
// both in the same millisecond clock base as Update's caller.
func (e *Engine) IngestSnapshot(snap wire.WorldSnapshot, localReceiveTimeMs float64) {
	e.known = expandSnapshot(e.known, snap)

	snapTimeMs := float64(snap.ServerTimeMs)
	f := frame{serverTimeMs: snapTimeMs, entities: copyEntities(e.known)}
	e.insertSorted(f)

	sampleOffset := localReceiveTimeMs - snapTimeMs
	if !e.haveOffset {
		e.serverOffsetMs = sampleOffset
		e.haveOffset = true
	} else {
		e.serverOffsetMs += (sampleOffset - e.serverOffsetMs) * serverTimeOffsetBlendRate
	}
}

func copyEntities(m map[uint32]wire.EntityState) map[uint32]wire.EntityState {
	out := make(map[uint32]wire.EntityState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (e *Engine) insertSorted(f frame) {
	idx := sort.Search(len(e.buffer), func(i int) bool {
		return e.buffer[i].serverTimeMs >= f.serverTimeMs
	})
	e.buffer = append(e.buffer, frame{})
	copy(e.buffer[idx+1:], e.buffer[idx:])
	e.buffer[idx] = f
}

// Update advances the render clock toward (estimated server time - target
// delay) at a bounded correction rate, then trims the buffer.
func (e *Engine) Update(localNowMs float64, dtSeconds float64) {
	if !e.haveOffset {
		return
	}
	targetRenderTimeMs := localNowMs - e.serverOffsetMs - e.config.TargetDelayMs

	if !e.haveRenderTime {
		e.renderTimeMs = targetRenderTimeMs
		e.haveRenderTime = true
	} else {
		diff := targetRenderTimeMs - e.renderTimeMs
		correction := diff * e.config.TimeCorrectionRate
		maxStep := 1.5 * dtSeconds * 1000.0
		if correction > maxStep {
			correction = maxStep
		} else if correction < -maxStep {
			correction = -maxStep
		}
		e.renderTimeMs += correction
	}

	e.cleanup()
}

// cleanup evicts frames older than the fixed 500ms retention window
// relative to the current render time, then trims to MaxBufferSnapshots
// newest frames regardless of age.
func (e *Engine) cleanup() {
	cutoff := e.renderTimeMs - retentionWindowMs
	kept := e.buffer[:0]
	for _, f := range e.buffer {
		if f.serverTimeMs > cutoff {
			kept = append(kept, f)
		}
	}
	e.buffer = kept

	if len(e.buffer) > e.config.MaxBufferSnapshots {
		e.buffer = e.buffer[len(e.buffer)-e.config.MaxBufferSnapshots:]
	}
}

// Sample interpolates (or, past the newest buffered frame, extrapolates)
// entity id's render state at the engine's current render time. ok is
// false until enough snapshots have been buffered or the entity has
// never been seen.
func (e *Engine) Sample(id uint32) (EntitySample, bool) {
	if len(e.buffer) < e.config.MinBufferSnapshots {
		return EntitySample{}, false
	}

	var prevFrame, nextFrame *frame
	var prevState, nextState wire.EntityState
	havePrev, haveNext := false, false

	for i := range e.buffer {
		f := &e.buffer[i]
		s, ok := f.entities[id]
		if !ok {
			continue
		}
		if f.serverTimeMs <= e.renderTimeMs {
			prevFrame, prevState, havePrev = f, s, true
		} else if !haveNext {
			nextFrame, nextState, haveNext = f, s, true
		}
	}

	switch {
	case havePrev && haveNext:
		span := nextFrame.serverTimeMs - prevFrame.serverTimeMs
		var alpha float32
		if span > 0 {
			alpha = float32((e.renderTimeMs - prevFrame.serverTimeMs) / span)
		}
		return lerpStates(prevState, nextState, alpha), true

	case havePrev && !haveNext:
		return e.extrapolate(prevFrame, prevState), true

	case !havePrev && haveNext:
		return decodeState(nextState), true

	default:
		return EntitySample{}, false
	}
}

func (e *Engine) extrapolate(prevFrame *frame, prevState wire.EntityState) EntitySample {
	dtMs := e.renderTimeMs - prevFrame.serverTimeMs
	if dtMs < 0 {
		dtMs = 0
	}
	extrapolating := dtMs > 0
	if dtMs > e.config.ExtrapolationLimitMs {
		dtMs = e.config.ExtrapolationLimitMs
	}

	base := decodeState(prevState)
	if !extrapolating {
		return base
	}
	offset := base.Velocity.Scale(float32(dtMs / 1000.0))
	base.Position = base.Position.Add(offset)
	base.Extrapolated = true
	return base
}

func decodeState(s wire.EntityState) EntitySample {
	vel := s.DecodeVelocity()
	quat := s.DecodeOrientation()
	return EntitySample{
		Position:       geom.Vec3{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]},
		Velocity:       geom.Vec3{X: vel[0], Y: vel[1], Z: vel[2]},
		Orientation:    geom.Quat{X: quat[0], Y: quat[1], Z: quat[2], W: quat[3]},
		AnimationState: s.AnimationState,
		AnimationPhase: float32(s.AnimationFrame) / 255.0,
	}
}

func lerpStates(a, b wire.EntityState, alpha float32) EntitySample {
	sa, sb := decodeState(a), decodeState(b)
	return EntitySample{
		Position:       sa.Position.Lerp(sb.Position, alpha),
		Velocity:       sa.Velocity.Lerp(sb.Velocity, alpha),
		Orientation:    sa.Orientation.Slerp(sb.Orientation, alpha),
		AnimationState: sb.AnimationState,
		AnimationPhase: geom.LerpWrapped(sa.AnimationPhase, sb.AnimationPhase, alpha),
	}
}
