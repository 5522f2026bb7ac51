// Package conn implements per-connection reliability: RTT-smoothing ack
// tracking, receive-side duplicate/ordering tracking, and the three-channel
// ClientConnection built on top of them.
package conn

import (
	"time"

	"duelnet-go/internal/wire"
)

const (
	rttAlpha = 0.125
	rttBeta  = 0.25

	initialSRTTMs    = 100.0
	initialRTTVarMs  = 50.0
	ackBitfieldWidth = 32

	defaultMaxRecentReceived = 128
)

// pendingAck is one in-flight send awaiting acknowledgement, tracked
// purely for RTT measurement (every send is tracked, regardless of
// channel).
type pendingAck struct {
	sequence uint32
	sendTime time.Time
	acked    bool
}

// AckTracker estimates smoothed RTT (Jacobson/Karels) from acknowledged
// wire sequences. Grounded on original_source's AckTracker in
// net/transport.rs and net/tracking.rs (identical implementations there).
type AckTracker struct {
	pending    []pendingAck
	maxPending int
	srttMs     float64
	rttVarMs   float64
}

func NewAckTracker(maxPending int) *AckTracker {
	return &AckTracker{
		pending:    make([]pendingAck, 0, maxPending),
		maxPending: maxPending,
		srttMs:     initialSRTTMs,
		rttVarMs:   initialRTTVarMs,
	}
}

// TrackPacket records a just-sent wire sequence for later RTT accounting.
func (t *AckTracker) TrackPacket(sequence uint32) {
	if len(t.pending) >= t.maxPending {
		t.pending = t.pending[1:]
	}
	t.pending = append(t.pending, pendingAck{sequence: sequence, sendTime: time.Now()})
}

// ProcessAck applies a received (ack, ackBitfield) pair, returning the wire
// sequences newly acknowledged and feeding each one into the RTT estimator.
func (t *AckTracker) ProcessAck(ack, ackBitfield uint32) []uint32 {
	var acked []uint32
	now := time.Now()
	for i := range t.pending {
		p := &t.pending[i]
		if p.acked {
			continue
		}
		if p.sequence == ack {
			acked = append(acked, p.sequence)
			t.updateRTT(now.Sub(p.sendTime))
			p.acked = true
			continue
		}
		if wire.SequenceGreaterThan(ack, p.sequence) {
			diff := ack - p.sequence
			if diff <= ackBitfieldWidth && ackBitfield&(1<<(diff-1)) != 0 {
				acked = append(acked, p.sequence)
				t.updateRTT(now.Sub(p.sendTime))
				p.acked = true
			}
		}
	}
	// Pop every leading entry marked acked (mirrors the Rust original's
	// "pop all leading acked entries from the front of the deque").
	i := 0
	for i < len(t.pending) && t.pending[i].acked {
		i++
	}
	t.pending = t.pending[i:]
	return acked
}

func (t *AckTracker) updateRTT(rtt time.Duration) {
	rttMs := float64(rtt.Microseconds()) / 1000.0
	t.rttVarMs = (1-rttBeta)*t.rttVarMs + rttBeta*absFloat(rttMs-t.srttMs)
	t.srttMs = (1-rttAlpha)*t.srttMs + rttAlpha*rttMs
}

func (t *AckTracker) SRTTMillis() float64    { return t.srttMs }
func (t *AckTracker) RTTVarMillis() float64  { return t.rttVarMs }
func (t *AckTracker) UnackedCount() int      { return len(t.pending) }

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ReceiveTracker maintains the receive-side ack bitfield and a bounded
// dedup window over recently-seen wire sequences. Grounded on
// original_source's ReceiveTracker (net/transport.rs / net/tracking.rs).
type ReceiveTracker struct {
	lastReceived     uint32
	haveReceivedAny  bool
	receivedBitfield uint32
	recentSequences  []uint32
	maxRecent        int
}

func NewReceiveTracker() *ReceiveTracker {
	return &ReceiveTracker{maxRecent: defaultMaxRecentReceived}
}

// RecordReceived registers an arriving wire sequence, returning false if it
// is a duplicate of one already seen within the recent window.
func (r *ReceiveTracker) RecordReceived(sequence uint32) bool {
	for _, s := range r.recentSequences {
		if s == sequence {
			return false
		}
	}
	r.recentSequences = append(r.recentSequences, sequence)
	if len(r.recentSequences) > r.maxRecent {
		r.recentSequences = r.recentSequences[1:]
	}

	if !r.haveReceivedAny {
		r.lastReceived = sequence
		r.haveReceivedAny = true
	} else if wire.SequenceGreaterThan(sequence, r.lastReceived) {
		diff := sequence - r.lastReceived
		if diff <= ackBitfieldWidth {
			// The previous lastReceived packet shifts into the bitfield at
			// its new relative offset (diff-1 bits back from the new ack).
			r.receivedBitfield = (r.receivedBitfield << diff) | (1 << (diff - 1))
		} else {
			r.receivedBitfield = 0
		}
		r.lastReceived = sequence
	} else {
		diff := r.lastReceived - sequence
		if diff > 0 && diff <= ackBitfieldWidth {
			r.receivedBitfield |= 1 << (diff - 1)
		}
	}
	return true
}

// AckData returns the (ack, ackBitfield) pair to stamp on outgoing headers.
func (r *ReceiveTracker) AckData() (ack, bitfield uint32) {
	return r.lastReceived, r.receivedBitfield
}
