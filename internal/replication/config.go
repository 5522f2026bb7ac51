// Package replication implements the client-side jitter buffer,
// server-time estimation, and interpolation/extrapolation used to render
// remote entities smoothly between snapshot arrivals.
package replication

// Config tunes the interpolation engine. DefaultConfig matches the
// values baked into the original client's NetworkInterpolation::new.
type Config struct {
	TargetDelayMs        float64
	MinBufferSnapshots   int
	MaxBufferSnapshots   int
	TimeCorrectionRate   float64
	ExtrapolationLimitMs float64
}

func DefaultConfig() Config {
	return Config{
		TargetDelayMs:        100.0,
		MinBufferSnapshots:   3,
		MaxBufferSnapshots:   64,
		TimeCorrectionRate:   0.1,
		ExtrapolationLimitMs: 250.0,
	}
}

// retentionWindowMs is the fixed age cutoff used to evict stale buffered
// frames during cleanup, independent of MaxBufferSnapshots' count-based
// trim.
const retentionWindowMs = 500.0

// serverTimeOffsetBlendRate is the blend factor applied each time a new
// sample of (local receive time - server time) arrives.
const serverTimeOffsetBlendRate = 0.1
