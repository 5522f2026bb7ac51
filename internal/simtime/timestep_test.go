package simtime

import "testing"

func TestFixedTimestepAccumulation(t *testing.T) {
	ts := NewFixedTimestep(60)

	ts.Accumulate(1.0 / 30.0)
	if !ts.ShouldTick() {
		t.Fatal("expected ShouldTick after accumulating 2 ticks worth")
	}
	if !ts.ConsumeTick() {
		t.Fatal("expected first ConsumeTick to succeed")
	}
	if !ts.ConsumeTick() {
		t.Fatal("expected second ConsumeTick to succeed")
	}
	if ts.ConsumeTick() {
		t.Fatal("expected third ConsumeTick to fail, accumulator exhausted")
	}
}

func TestAccumulateClampsLargeDelta(t *testing.T) {
	ts := NewFixedTimestep(60)
	ts.Accumulate(10.0)

	ticks := 0
	for ts.ConsumeTick() {
		ticks++
	}
	// 0.25s clamp / (1/60 dt) = 15 ticks.
	if ticks != 15 {
		t.Fatalf("ticks = %d, want 15", ticks)
	}
}

func TestReset(t *testing.T) {
	ts := NewFixedTimestep(60)
	ts.Accumulate(1.0)
	ts.Reset()
	if ts.ShouldTick() {
		t.Fatal("expected no pending tick after Reset")
	}
}
