package wire

import "testing"

func TestSequenceGreaterThan(t *testing.T) {
	if !SequenceGreaterThan(2, 1) {
		t.Error("2 should be greater than 1")
	}
	if SequenceGreaterThan(1, 2) {
		t.Error("1 should not be greater than 2")
	}
	if !SequenceGreaterThan(0, 0xFFFFFFFF) {
		t.Error("0 should be greater than 0xFFFFFFFF (wrap)")
	}
	if SequenceGreaterThan(0xFFFFFFFF, 0) {
		t.Error("0xFFFFFFFF should not be greater than 0 (wrap)")
	}
}

func TestSequenceGreaterThan16(t *testing.T) {
	if !SequenceGreaterThan16(2, 1) {
		t.Error("2 should be greater than 1")
	}
	if !SequenceGreaterThan16(0, 0xFFFF) {
		t.Error("0 should be greater than 0xFFFF (wrap)")
	}
}

func TestEntityStateEncodeRoundTrip(t *testing.T) {
	state := NewEntityState(1, EntityPlayer)
	state.Position = [3]float32{100.5, 50.25, -30.0}
	state.EncodeVelocity([3]float32{10.5, -5.25, 0.0})
	state.EncodeOrientation([4]float32{0, 0, 0, 1})

	vel := state.DecodeVelocity()
	if abs32(vel[0]-10.5) > 0.01 || abs32(vel[1]-(-5.25)) > 0.01 {
		t.Fatalf("velocity round trip = %v", vel)
	}
	quat := state.DecodeOrientation()
	if abs32(quat[3]-1.0) > 0.0001 {
		t.Fatalf("orientation round trip = %v", quat)
	}
}

func TestPacketSerializeRoundTrip(t *testing.T) {
	header := NewPacketHeader(1, 0, 0, ChannelUnreliable, 0)
	payload := Ping(12345)
	packet := NewPacket(header, payload)

	data, err := packet.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	decoded, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if decoded.Header.Sequence != header.Sequence {
		t.Fatalf("Header.Sequence = %d, want %d", decoded.Header.Sequence, header.Sequence)
	}
	if decoded.Payload.Tag != tagPing || decoded.Payload.Timestamp != 12345 {
		t.Fatalf("Payload = %+v, want Ping(12345)", decoded.Payload)
	}
}

func TestPacketTooLarge(t *testing.T) {
	header := NewPacketHeader(0, 0, 0, ChannelReliable, 0)
	payload := ConnectionDenied(string(make([]byte, MaxPacketSize)))
	_, err := NewPacket(header, payload).Serialize()
	if err == nil {
		t.Fatal("Serialize() of an oversized payload should fail")
	}
}

func TestParsePacketTooSmall(t *testing.T) {
	if _, err := ParsePacket([]byte{0x01, 0x02}); err == nil {
		t.Fatal("ParsePacket() on a truncated frame should fail")
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
