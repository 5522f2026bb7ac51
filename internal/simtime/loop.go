package simtime

import "duelnet-go/internal/world"

// TickFunc runs one simulation step's game logic (draining commands,
// processing events, running game-mode rules) before the world's tick
// counter advances.
type TickFunc func(w *world.World)

// Loop drives a world through fixed-size ticks as wall-clock time
// accumulates, invoking tickFn once per consumed tick.
type Loop struct {
	World    *world.World
	timestep *FixedTimestep
	tickFn   TickFunc
}

// NewLoop creates a Loop running at tickRate ticks per second over a
// fresh World, invoking tickFn on every consumed tick.
func NewLoop(tickRate uint32, tickFn TickFunc) *Loop {
	return &Loop{
		World:    world.NewWorld(),
		timestep: NewFixedTimestep(tickRate),
		tickFn:   tickFn,
	}
}

// Timestep returns the underlying accumulator, for callers that need
// direct access (e.g. to read Alpha for render interpolation).
func (l *Loop) Timestep() *FixedTimestep { return l.timestep }

// Update accumulates delta (seconds) and runs as many fixed ticks as
// have become due, returning how many ticks ran.
func (l *Loop) Update(delta float32) uint32 {
	l.timestep.Accumulate(delta)

	var ticksRun uint32
	for l.timestep.ConsumeTick() {
		l.tickFn(l.World)
		l.World.AdvanceTick()
		ticksRun++
	}
	return ticksRun
}

// InterpolationAlpha returns the fraction of a tick remaining
// unconsumed, for render-side extrapolation between ticks.
func (l *Loop) InterpolationAlpha() float32 {
	return l.timestep.Alpha()
}
