package events

// PendingEvent is one scheduled-but-not-yet-retired event.
type PendingEvent struct {
	Tick        uint32
	TimestampMs uint64
	Event       GameEvent
	Sequence    uint32
	Acked       bool
}

// IsExpired reports whether this event should be dropped as stale: an
// Unreliable event is always considered expired (it only ever goes out
// once, opportunistically), an UnreliableExpiring event expires once its
// TTL has elapsed, and a Reliable event never expires on its own.
func (p PendingEvent) IsExpired(currentTimeMs uint64) bool {
	mode := p.Event.Reliability()
	switch mode.Kind {
	case ReliabilityUnreliableExpiring:
		elapsed := uint64(0)
		if currentTimeMs > p.TimestampMs {
			elapsed = currentTimeMs - p.TimestampMs
		}
		return elapsed > mode.TTLMillis
	case ReliabilityUnreliable:
		return true
	case ReliabilityReliable:
		return false
	default:
		return true
	}
}

// Queue schedules outbound GameEvents with per-event reliability,
// wrap-aware ack tracking, and TTL-based cleanup. Grounded on
// original_source's EventQueue (game/src/event/queue.rs).
type Queue struct {
	pending      []PendingEvent
	nextSequence uint32
	maxPending   int
}

func NewQueue(maxPending int) *Queue {
	return &Queue{maxPending: maxPending}
}

// Push schedules an event for delivery on the given tick, returning its
// assigned sequence number. If the queue is at capacity, the oldest
// non-reliable pending event is evicted first to make room.
func (q *Queue) Push(tick uint32, timestampMs uint64, event GameEvent) uint32 {
	sequence := q.nextSequence
	q.nextSequence++

	if len(q.pending) >= q.maxPending {
		q.evictOldestUnreliable()
	}

	q.pending = append(q.pending, PendingEvent{
		Tick:        tick,
		TimestampMs: timestampMs,
		Event:       event,
		Sequence:    sequence,
	})
	return sequence
}

// Ack marks a single sequence as delivered.
func (q *Queue) Ack(sequence uint32) {
	for i := range q.pending {
		if q.pending[i].Sequence == sequence {
			q.pending[i].Acked = true
			return
		}
	}
}

// AckUpTo marks every sequence wrap-aware-less-than-or-equal-to sequence
// as delivered, for cumulative acknowledgement schemes.
func (q *Queue) AckUpTo(sequence uint32) {
	for i := range q.pending {
		if sequenceLTE(q.pending[i].Sequence, sequence) {
			q.pending[i].Acked = true
		}
	}
}

// Cleanup drops every acked event unconditionally, and every unacked
// event whose reliability mode says it has expired.
func (q *Queue) Cleanup(currentTimeMs uint64) {
	kept := q.pending[:0]
	for _, e := range q.pending {
		if e.Acked {
			continue
		}
		if e.IsExpired(currentTimeMs) {
			continue
		}
		kept = append(kept, e)
	}
	q.pending = kept
}

// PendingForSend returns every not-yet-acked event.
func (q *Queue) PendingForSend() []PendingEvent {
	var out []PendingEvent
	for _, e := range q.pending {
		if !e.Acked {
			out = append(out, e)
		}
	}
	return out
}

// ReliablePending returns every not-yet-acked Reliable event.
func (q *Queue) ReliablePending() []PendingEvent {
	var out []PendingEvent
	for _, e := range q.pending {
		if !e.Acked && e.Event.Reliability().IsReliable() {
			out = append(out, e)
		}
	}
	return out
}

// DrainEventsForTick removes and returns every pending event scheduled
// for exactly the given tick.
func (q *Queue) DrainEventsForTick(tick uint32) []GameEvent {
	var result []GameEvent
	kept := q.pending[:0]
	for _, e := range q.pending {
		if e.Tick == tick {
			result = append(result, e.Event)
		} else {
			kept = append(kept, e)
		}
	}
	q.pending = kept
	return result
}

func (q *Queue) Len() int      { return len(q.pending) }
func (q *Queue) IsEmpty() bool { return len(q.pending) == 0 }
func (q *Queue) Clear()        { q.pending = nil }

func (q *Queue) evictOldestUnreliable() {
	for i, e := range q.pending {
		if !e.Event.Reliability().IsReliable() {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// sequenceLTE is the wrap-aware "less than or equal" used for
// cumulative event acks: a <= b iff (b-a) mod 2^32 < 2^31.
func sequenceLTE(a, b uint32) bool {
	diff := b - a
	return diff < sequenceLTEThreshold
}

const sequenceLTEThreshold uint32 = 1 << 31
