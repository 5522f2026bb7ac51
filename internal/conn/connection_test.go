package conn

import (
	"net"
	"testing"
	"time"

	"duelnet-go/internal/wire"
)

func testAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 27015}
}

func TestClientConnectionHandshakeSalts(t *testing.T) {
	cc := NewClientConnection(testAddr(), 0xAAAA)
	cc.SetServerSalt(0xBBBB)
	if cc.CombinedSalt() != 0xAAAA^0xBBBB {
		t.Fatalf("CombinedSalt() = %x, want %x", cc.CombinedSalt(), uint64(0xAAAA^0xBBBB))
	}
}

func TestClientConnectionReliableDedup(t *testing.T) {
	cc := NewClientConnection(testAddr(), 1)
	header := wire.NewPacketHeader(0, 0, 0, wire.ChannelReliable, 7)
	pkt := wire.NewPacket(header, wire.Ping(1))

	delivered := cc.ProcessPacket(pkt)
	if len(delivered) != 1 {
		t.Fatalf("first reliable delivery yielded %d payloads, want 1", len(delivered))
	}

	// Same channel sequence, different wire sequence (a legitimate resend
	// of the same logical message) must still be deduped.
	header2 := wire.NewPacketHeader(1, 0, 0, wire.ChannelReliable, 7)
	pkt2 := wire.NewPacket(header2, wire.Ping(1))
	if delivered2 := cc.ProcessPacket(pkt2); len(delivered2) != 0 {
		t.Fatalf("resend of already-delivered reliable message yielded %d payloads, want 0", len(delivered2))
	}
}

func TestClientConnectionOrderedBuffering(t *testing.T) {
	cc := NewClientConnection(testAddr(), 1)

	// Sequence 1 arrives before sequence 0; it should buffer, not deliver.
	h1 := wire.NewPacketHeader(0, 0, 0, wire.ChannelOrdered, 1)
	if out := cc.ProcessPacket(wire.NewPacket(h1, wire.Ping(2))); len(out) != 0 {
		t.Fatalf("out-of-order packet delivered early: %d payloads", len(out))
	}

	// Sequence 0 arrives; both 0 and the buffered 1 should drain in order.
	h0 := wire.NewPacketHeader(1, 0, 0, wire.ChannelOrdered, 0)
	out := cc.ProcessPacket(wire.NewPacket(h0, wire.Ping(1)))
	if len(out) != 2 {
		t.Fatalf("draining ordered buffer yielded %d payloads, want 2", len(out))
	}
	if out[0].Timestamp != 1 || out[1].Timestamp != 2 {
		t.Fatalf("ordered payloads arrived out of order: %+v", out)
	}
}

func TestClientConnectionResendAfterRTO(t *testing.T) {
	cc := NewClientConnection(testAddr(), 1)
	pkt := cc.BuildPacket(wire.Ping(99), wire.ChannelReliable)
	if pkt.Header.Channel != wire.ChannelReliable {
		t.Fatalf("BuildPacket() channel = %v, want reliable", pkt.Header.Channel)
	}

	if resends := cc.CollectResends(); len(resends) != 0 {
		t.Fatalf("CollectResends() fired before RTO elapsed: %d packets", len(resends))
	}

	// Force the RTO window to have already elapsed.
	cc.pendingMu.Lock()
	for _, p := range cc.pendingReliable {
		p.lastSentAt = time.Now().Add(-time.Second)
	}
	cc.pendingMu.Unlock()

	resends := cc.CollectResends()
	if len(resends) != 1 {
		t.Fatalf("CollectResends() after RTO = %d packets, want 1", len(resends))
	}
	if resends[0].Payload.Timestamp != 99 {
		t.Fatalf("resent payload = %+v, want Ping(99)", resends[0].Payload)
	}
}

func TestConnectionManagerLifecycle(t *testing.T) {
	mgr := NewConnectionManager()
	addr := testAddr()

	cc, created := mgr.GetOrCreatePending(addr, 42)
	if !created {
		t.Fatal("GetOrCreatePending() should create a new connection on first call")
	}
	if _, created := mgr.GetOrCreatePending(addr, 42); created {
		t.Fatal("GetOrCreatePending() should return the existing connection on second call")
	}

	id := mgr.AssignClientID(cc)
	if got, ok := mgr.GetByClientID(id); !ok || got != cc {
		t.Fatalf("GetByClientID(%d) = %v, %v; want original connection", id, got, ok)
	}

	mgr.Remove(cc)
	if _, ok := mgr.GetByAddr(addr); ok {
		t.Fatal("connection should be gone from the address index after Remove")
	}
	if mgr.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", mgr.Count())
	}
}
