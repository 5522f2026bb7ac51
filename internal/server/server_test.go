package server

import (
	"context"
	"net"
	"testing"
	"time"

	"duelnet-go/internal/conn"
	"duelnet-go/internal/events"
	"duelnet-go/internal/wire"
)

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BindAddr = "127.0.0.1:0"
	srv, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.conn.Close() })
	return srv
}

// readPacket reads and decodes one packet from client with a short deadline,
// failing the test if nothing arrives in time.
func readPacket(t *testing.T, client *net.UDPConn) wire.Packet {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, wire.MaxPacketSize)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	pkt, err := wire.ParsePacket(buf[:n])
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	return pkt
}

// TestHandshakeSequence drives the full ConnectionRequest -> Challenge ->
// ChallengeResponse -> ConnectionAccepted exchange over a real loopback
// socket, matching the four-step handshake in crates/server/src/server.rs.
func TestHandshakeSequence(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.receiveLoop(ctx)

	client, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer client.Close()

	const clientSalt uint64 = 0xC0FFEE
	reqHeader := wire.NewPacketHeader(0, 0, 0, wire.ChannelReliable, 0)
	reqPkt := wire.NewPacket(reqHeader, wire.ConnectionRequest(clientSalt))
	reqData, err := reqPkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize request: %v", err)
	}
	if _, err := client.Write(reqData); err != nil {
		t.Fatalf("write request: %v", err)
	}

	waitForIncoming(t, srv)
	srv.tickOnce()

	challengePkt := readPacket(t, client)
	if challengePkt.Payload.Tag != wire.TagConnectionChallenge {
		t.Fatalf("expected ConnectionChallenge, got tag %v", challengePkt.Payload.Tag)
	}
	combinedSalt := clientSalt ^ challengePkt.Payload.ServerSalt

	respHeader := wire.NewPacketHeader(1, 0, 0, wire.ChannelReliable, 0)
	respPkt := wire.NewPacket(respHeader, wire.ChallengeResponse(combinedSalt))
	respData, err := respPkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize response: %v", err)
	}
	if _, err := client.Write(respData); err != nil {
		t.Fatalf("write response: %v", err)
	}

	waitForIncoming(t, srv)
	srv.tickOnce()

	acceptedPkt := readPacket(t, client)
	if acceptedPkt.Payload.Tag != wire.TagConnectionAccepted {
		t.Fatalf("expected ConnectionAccepted, got tag %v", acceptedPkt.Payload.Tag)
	}
	if acceptedPkt.Payload.ClientID == 0 {
		t.Fatal("assigned client id should be nonzero")
	}
	if srv.connections.Count() != 1 {
		t.Fatalf("connections.Count() = %d, want 1", srv.connections.Count())
	}
}

// waitForIncoming polls until the receive goroutine has queued at least one
// datagram, bounding the loopback scheduling race without a fixed sleep.
func waitForIncoming(t *testing.T, srv *GameServer) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(srv.incoming) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for datagram to reach the receive loop")
}

// TestServerFullWhenAtCapacityDeniesConnection checks the MaxClients gate
// fires before any handshake state is created.
func TestServerFullWhenAtCapacityDeniesConnection(t *testing.T) {
	srv := newTestServer(t)
	srv.config.MaxClients = 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.receiveLoop(ctx)

	client, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer client.Close()

	reqHeader := wire.NewPacketHeader(0, 0, 0, wire.ChannelReliable, 0)
	reqPkt := wire.NewPacket(reqHeader, wire.ConnectionRequest(1))
	reqData, _ := reqPkt.Serialize()
	if _, err := client.Write(reqData); err != nil {
		t.Fatalf("write request: %v", err)
	}

	waitForIncoming(t, srv)
	srv.tickOnce()

	deniedPkt := readPacket(t, client)
	if deniedPkt.Payload.Tag != wire.TagConnectionDenied {
		t.Fatalf("expected ConnectionDenied, got tag %v", deniedPkt.Payload.Tag)
	}
	if srv.connections.Count() != 0 {
		t.Fatal("a denied connection attempt must not be tracked")
	}
}

// connectTestClient pushes a GameServer's internal connection state straight
// to StateConnected with a live entity, bypassing the wire handshake so
// tick-loop behavior can be tested in isolation.
func connectTestClient(t *testing.T, srv *GameServer) (*conn.ClientConnection, uint32) {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:1")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}
	cc, created := srv.connections.GetOrCreatePending(addr, 1)
	if !created {
		t.Fatal("expected a fresh pending connection")
	}
	cc.SetState(conn.StateConnected)
	entity := srv.world.SpawnEntity(wire.EntityPlayer)
	cc.SetEntity(entity.ID)
	clientID := srv.connections.AssignClientID(cc)
	srv.entityOwner[entity.ID] = clientID
	srv.eventQueues[clientID] = events.NewQueue(maxEventQueuePending)
	return cc, entity.ID
}

func TestCommandAckFilterOnlyAdvancesOnNewerSequence(t *testing.T) {
	srv := newTestServer(t)
	cc, entityID := connectTestClient(t, srv)

	cmdOld := wire.NewClientCommand(1, 5)
	cmdStale := wire.NewClientCommand(1, 3)
	cmdNew := wire.NewClientCommand(1, 7)

	srv.commands.Push(entityID, cmdOld)
	srv.commands.Push(entityID, cmdStale)
	srv.commands.Push(entityID, cmdNew)

	srv.simulateTick()

	if got := cc.LastCommandAck(); got != 7 {
		t.Fatalf("LastCommandAck() = %d, want 7 (stale/duplicate sequences must not move it)", got)
	}
}

func TestGenerateClientSnapshotFallsBackToFullWithoutBaseline(t *testing.T) {
	srv := newTestServer(t)
	cc, _ := connectTestClient(t, srv)

	srv.world.AdvanceTick()
	snap := srv.generateClientSnapshot(cc, srv.world.Tick(), 32, 1000)
	if snap.IsDelta {
		t.Fatal("first snapshot for a client with no acked baseline must be full")
	}
}

func TestGenerateClientSnapshotUsesDeltaOnceBaselineIsFresh(t *testing.T) {
	srv := newTestServer(t)
	cc, _ := connectTestClient(t, srv)

	srv.world.AdvanceTick()
	srv.world.CaptureBaseline(srv.snapshots)
	currentTick := srv.world.AdvanceTick()
	cc.NoteSnapshotAck(currentTick - 1)

	snap := srv.generateClientSnapshot(cc, currentTick, 32, 2000)
	if !snap.IsDelta {
		t.Fatal("snapshot should be a delta once the client has a recent acked baseline")
	}
}

func TestForgetClientClearsEntityOwnerAndEventQueue(t *testing.T) {
	srv := newTestServer(t)
	cc, entityID := connectTestClient(t, srv)

	srv.forgetClient(cc, DisconnectTimeout)

	if _, ok := srv.entityOwner[entityID]; ok {
		t.Fatal("entityOwner entry should be removed on disconnect")
	}
	if _, ok := srv.eventQueues[cc.ClientID]; ok {
		t.Fatal("event queue should be removed on disconnect")
	}
	if _, ok := srv.world.Get(entityID); ok {
		t.Fatal("entity should be despawned on disconnect")
	}
}

func TestDisconnectReasonString(t *testing.T) {
	cases := map[DisconnectReason]string{
		DisconnectGraceful: "disconnected",
		DisconnectTimeout:  "timed out",
		DisconnectKicked:   "kicked",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Errorf("DisconnectReason(%d).String() = %q, want %q", reason, got, want)
		}
	}
}
