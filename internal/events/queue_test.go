package events

import "testing"

func TestEventExpiration(t *testing.T) {
	p := PendingEvent{Tick: 0, TimestampMs: 1000, Event: PlayerKill(1, 2, 0), Sequence: 0}

	if p.IsExpired(5000) {
		t.Fatal("PlayerKill should not be expired after only 4s (ttl 10s)")
	}
	if !p.IsExpired(15000) {
		t.Fatal("PlayerKill should be expired after 14s (ttl 10s)")
	}
}

func TestReliableNeverExpires(t *testing.T) {
	p := PendingEvent{Tick: 0, TimestampMs: 0, Event: ChatMessage(1, 0, "test"), Sequence: 0}
	if p.IsExpired(1_000_000) {
		t.Fatal("ChatMessage (Reliable) should never expire")
	}
}

func TestQueueAckCleanup(t *testing.T) {
	q := NewQueue(64)
	q.Push(0, 0, PlayerDeath(1))
	q.Push(0, 0, ChatMessage(1, 0, "test"))

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	q.Ack(0)
	q.Cleanup(0)

	if q.Len() != 1 {
		t.Fatalf("Len() after ack+cleanup = %d, want 1", q.Len())
	}
}

func TestQueueEvictsOldestUnreliableWhenFull(t *testing.T) {
	q := NewQueue(2)
	first := q.Push(0, 0, PlayerDeath(1))
	q.Push(0, 0, PlayerDeath(2))
	q.Push(0, 0, PlayerDeath(3)) // should evict `first`

	for _, e := range q.pending {
		if e.Sequence == first {
			t.Fatal("oldest unreliable event should have been evicted at capacity")
		}
	}
}

func TestQueueAckUpToIsCumulative(t *testing.T) {
	q := NewQueue(8)
	q.Push(0, 0, PlayerDeath(1)) // sequence 0
	q.Push(0, 0, PlayerDeath(2)) // sequence 1
	q.Push(0, 0, PlayerDeath(3)) // sequence 2

	q.AckUpTo(1)

	acked := map[uint32]bool{}
	for _, e := range q.pending {
		acked[e.Sequence] = e.Acked
	}
	if !acked[0] || !acked[1] {
		t.Fatalf("AckUpTo(1) should ack sequences 0 and 1: %v", acked)
	}
	if acked[2] {
		t.Fatal("AckUpTo(1) should not ack sequence 2")
	}
}

func TestDrainEventsForTick(t *testing.T) {
	q := NewQueue(8)
	q.Push(5, 0, PlayerDeath(1))
	q.Push(6, 0, PlayerDeath(2))
	q.Push(5, 0, PlayerDeath(3))

	drained := q.DrainEventsForTick(5)
	if len(drained) != 2 {
		t.Fatalf("DrainEventsForTick(5) = %d events, want 2", len(drained))
	}
	if q.Len() != 1 {
		t.Fatalf("remaining queue len = %d, want 1", q.Len())
	}
}

func TestEncodeDecodeBundleRoundTrip(t *testing.T) {
	evts := []GameEvent{
		PlayerKill(1, 2, 3),
		ChatMessage(4, 0, "gg"),
		ScoreUpdate([2]uint16{5, 7}),
	}
	data, err := EncodeBundle(evts)
	if err != nil {
		t.Fatalf("EncodeBundle() error = %v", err)
	}
	decoded, err := DecodeBundle(data)
	if err != nil {
		t.Fatalf("DecodeBundle() error = %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("decoded %d events, want 3", len(decoded))
	}
	if decoded[1].Message != "gg" {
		t.Fatalf("decoded[1].Message = %q, want %q", decoded[1].Message, "gg")
	}
	if decoded[2].TeamScores != [2]uint16{5, 7} {
		t.Fatalf("decoded[2].TeamScores = %v, want [5 7]", decoded[2].TeamScores)
	}
}
