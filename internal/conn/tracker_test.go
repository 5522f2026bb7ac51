package conn

import "testing"

func TestAckTrackerProcessAck(t *testing.T) {
	tr := NewAckTracker(16)
	tr.TrackPacket(1)
	tr.TrackPacket(2)
	tr.TrackPacket(3)

	acked := tr.ProcessAck(2, 0b1)
	if len(acked) != 2 {
		t.Fatalf("ProcessAck() acked %d packets, want 2 (seq 1 and 2)", len(acked))
	}
	if tr.UnackedCount() != 1 {
		t.Fatalf("UnackedCount() = %d, want 1", tr.UnackedCount())
	}
}

func TestReceiveTrackerDedup(t *testing.T) {
	rt := NewReceiveTracker()
	if !rt.RecordReceived(1) {
		t.Fatal("first delivery of seq 1 should not be a duplicate")
	}
	if rt.RecordReceived(1) {
		t.Fatal("second delivery of seq 1 should be a duplicate")
	}
	if !rt.RecordReceived(2) {
		t.Fatal("first delivery of seq 2 should not be a duplicate")
	}
	ack, bitfield := rt.AckData()
	if ack != 2 {
		t.Fatalf("AckData() ack = %d, want 2", ack)
	}
	if bitfield&0b1 == 0 {
		t.Fatalf("AckData() bitfield = %b, want bit 0 set for seq 1", bitfield)
	}
}

func TestReceiveTrackerOutOfOrder(t *testing.T) {
	rt := NewReceiveTracker()
	rt.RecordReceived(5)
	rt.RecordReceived(3)
	ack, bitfield := rt.AckData()
	if ack != 5 {
		t.Fatalf("AckData() ack = %d, want 5 (highest seen)", ack)
	}
	// seq 3 arrived after 5; diff = 5-3 = 2, so bit 1 should be set.
	if bitfield&(1<<1) == 0 {
		t.Fatalf("AckData() bitfield = %b, want bit 1 set for seq 3", bitfield)
	}
}
