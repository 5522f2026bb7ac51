package simtime

import (
	"testing"

	"duelnet-go/internal/world"
)

func TestSimulationLoopTicks(t *testing.T) {
	tickCount := 0
	loop := NewLoop(60, func(w *world.World) { tickCount++ })

	ticksRun := loop.Update(1.0 / 30.0)

	if ticksRun != 2 {
		t.Fatalf("ticksRun = %d, want 2", ticksRun)
	}
	if tickCount != 2 {
		t.Fatalf("tickCount = %d, want 2", tickCount)
	}
}

func TestLoopAdvancesWorldTick(t *testing.T) {
	loop := NewLoop(60, func(w *world.World) {})
	loop.Update(1.0 / 60.0)
	if loop.World.Tick() != 1 {
		t.Fatalf("World.Tick() = %d, want 1", loop.World.Tick())
	}
}
