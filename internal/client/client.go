package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"duelnet-go/internal/conn"
	"duelnet-go/internal/events"
	"duelnet-go/internal/geom"
	"duelnet-go/internal/predict"
	"duelnet-go/internal/replication"
	"duelnet-go/internal/wire"
)

// QueueStatus is a decoded QueueStatus payload, surfaced to callers on
// the Client.QueueUpdate channel.
type QueueStatus struct {
	Position        uint32
	EstimatedWaitSecs uint32
}

// rawDatagram is one UDP read handed from the receive goroutine to the
// client's update loop, mirroring internal/server's split between the
// blocking reader and the single state-mutating goroutine.
type rawDatagram struct {
	data []byte
}

// Client is the client side of one connection to a GameServer: handshake
// and lifecycle, outbound command pacing, inbound snapshot ingestion
// into a replication.Engine, client-side movement prediction, and the
// event/lobby/queue request helpers.
type Client struct {
	udpConn    *net.UDPConn
	serverAddr *net.UDPAddr
	config     Config
	log        *logrus.Logger

	peer *conn.ClientConnection

	clientID uint32
	entityID uint32
	hasEntity bool

	interpolation *replication.Engine
	prediction    *predict.Prediction

	commandSequence     uint32
	lastCommandAt       time.Time
	commandInterval     time.Duration
	lastPingAt          time.Time
	connectionStartedAt time.Time

	estimatedServerTick uint32
	lastServerAck       uint32
	clockOffsetMs       int64

	incoming chan rawDatagram

	// Inbound notifications, buffered so a slow consumer never blocks
	// the update loop; callers that don't care simply never drain them.
	Events      chan events.GameEvent
	Lobbies     chan []wire.LobbyInfo
	QueueUpdate chan QueueStatus
}

// New resolves serverAddr, binds an ephemeral local UDP socket, and
// prepares (but does not start) a Client. spawnPosition seeds the
// client-side prediction state until the first server correction.
func New(config Config, serverAddr string, log *logrus.Logger, mover predict.Mover, spawnPosition geom.Vec3) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("client: resolve server address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("client: bind local socket: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	if mover == nil {
		mover = predictionMover{}
	}

	now := time.Now()
	return &Client{
		udpConn:         udpConn,
		serverAddr:      addr,
		config:          config,
		log:             log,
		peer:            conn.NewClientConnection(addr, randomSalt()),
		interpolation:   replication.NewEngine(replication.DefaultConfig()),
		prediction:      predict.NewPrediction(int(config.ServerTickRate), mover, spawnPosition),
		commandInterval: time.Second / time.Duration(config.CommandRate),
		lastCommandAt:   now,
		lastPingAt:      now,
		incoming:        make(chan rawDatagram, 256),
		Events:          make(chan events.GameEvent, 256),
		Lobbies:         make(chan []wire.LobbyInfo, 8),
		QueueUpdate:     make(chan QueueStatus, 8),
	}, nil
}

func randomSalt() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// State reports the connection lifecycle state.
func (c *Client) State() conn.State { return c.peer.State() }

// IsConnected reports whether the handshake has completed.
func (c *Client) IsConnected() bool { return c.peer.State() == conn.StateConnected }

// ClientID returns the server-assigned id, valid once IsConnected.
func (c *Client) ClientID() uint32 { return c.clientID }

// Connect sends the initial ConnectionRequest and marks the connection
// attempt as started; Run's update loop drives the rest of the
// handshake and the timeout check.
func (c *Client) Connect() error {
	c.peer.SetState(conn.StateConnecting)
	c.connectionStartedAt = time.Now()
	return c.sendConnectionRequest()
}

func (c *Client) sendConnectionRequest() error {
	pkt := c.peer.BuildPacket(wire.ConnectionRequest(c.peer.ClientSalt()), wire.ChannelReliable)
	return c.send(pkt)
}

// Disconnect notifies the server (if connected) and resets local state.
func (c *Client) Disconnect() error {
	var err error
	if c.peer.State() == conn.StateConnected {
		pkt := c.peer.BuildPacket(wire.Disconnect(), wire.ChannelReliable)
		err = c.send(pkt)
	}
	c.reset()
	return err
}

func (c *Client) reset() {
	c.peer = conn.NewClientConnection(c.serverAddr, randomSalt())
	c.clientID = 0
	c.entityID = 0
	c.hasEntity = false
	c.interpolation = replication.NewEngine(replication.DefaultConfig())
	c.commandSequence = 0
	c.lastServerAck = 0
	c.estimatedServerTick = 0
}

// Close releases the local UDP socket.
func (c *Client) Close() error { return c.udpConn.Close() }

func (c *Client) send(pkt wire.Packet) error {
	data, err := pkt.Serialize()
	if err != nil {
		return err
	}
	_, err = c.udpConn.WriteToUDP(data, c.serverAddr)
	return err
}

// Run starts the receive goroutine and drives the update loop at
// config.CommandRate until ctx is canceled. input is polled once per
// tick; a nil return means no command is sent this tick (e.g. the UI
// hasn't produced fresh input yet) but the network/prediction state
// machine still advances.
func (c *Client) Run(ctx context.Context, input func() *InputState) error {
	go c.receiveLoop(ctx)

	ticker := time.NewTicker(c.commandInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dt := float32(c.commandInterval.Seconds())
			c.update(dt, input())
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context) {
	buf := make([]byte, wire.MaxPacketSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.udpConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _, err := c.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case c.incoming <- rawDatagram{data: data}:
		default:
		}
	}
}

// update is the per-tick state machine: drain the socket, check
// handshake timeout, and (once connected) advance prediction and
// interpolation and pace outbound commands/pings. Mirrors the original
// NetworkClient::update.
func (c *Client) update(dt float32, input *InputState) {
	c.drainIncoming()

	switch c.peer.State() {
	case conn.StateConnecting, conn.StateChallengeResponse:
		if time.Since(c.connectionStartedAt) > c.config.ConnectionTimeout {
			c.log.Warn("connection attempt timed out")
			c.reset()
		}

	case conn.StateConnected:
		nowMs := float64(time.Now().UnixMilli())
		c.interpolation.Update(nowMs, float64(dt))
		c.prediction.Update(dt)

		if input != nil && time.Since(c.lastCommandAt) >= c.commandInterval {
			c.sendCommand(*input)
			c.lastCommandAt = time.Now()
		}

		if time.Since(c.lastPingAt) >= c.config.PingInterval {
			c.sendPing()
			c.lastPingAt = time.Now()
		}

		if c.peer.IsTimedOut(c.config.ConnectionTimeout) {
			c.log.Warn("server connection lost")
			c.reset()
		}

	default:
	}
}

func (c *Client) drainIncoming() {
	for {
		select {
		case dg := <-c.incoming:
			c.handleDatagram(dg)
		default:
			return
		}
	}
}

func (c *Client) handleDatagram(dg rawDatagram) {
	pkt, err := wire.ParsePacket(dg.data)
	if err != nil {
		c.log.WithError(err).Debug("dropping malformed packet")
		return
	}
	if !pkt.Header.IsValid() {
		return
	}
	for _, payload := range c.peer.ProcessPacket(pkt) {
		c.handlePayload(payload)
	}
}

func (c *Client) handlePayload(payload wire.PacketType) {
	switch payload.Tag {
	case wire.TagConnectionChallenge:
		c.handleChallenge(payload.ServerSalt, payload.Challenge)
	case wire.TagConnectionAccepted:
		c.handleConnectionAccepted(payload.ClientID, payload.EntityID)
	case wire.TagConnectionDenied:
		c.handleConnectionDenied(payload.Reason)
	case wire.TagWorldSnapshot:
		c.handleSnapshot(payload.Snapshot)
	case wire.TagPong:
		c.handlePong(payload.Timestamp)
	case wire.TagDisconnect:
		c.log.Info("disconnected by server")
		c.reset()
	case wire.TagLobbyList:
		c.pushLobbies(payload.Lobbies)
	case wire.TagQueueStatus:
		c.pushQueueStatus(payload.QueuePosition, payload.QueueWaitSecs)
	case wire.TagEventBundle:
		c.handleEventBundle(payload.EventBundle)
	}
}

func (c *Client) handleChallenge(serverSalt, challenge uint64) error {
	c.peer.SetServerSalt(serverSalt)
	c.peer.SetState(conn.StateChallengeResponse)

	expected := c.peer.CombinedSalt()
	if challenge != expected {
		c.log.Warn("challenge mismatch")
		return nil
	}

	pkt := c.peer.BuildPacket(wire.ChallengeResponse(expected), wire.ChannelReliable)
	return c.send(pkt)
}

func (c *Client) handleConnectionAccepted(clientID, entityID uint32) {
	c.log.WithField("client_id", clientID).Info("connected")
	c.clientID = clientID
	c.entityID = entityID
	c.hasEntity = true
	c.peer.SetState(conn.StateConnected)
}

func (c *Client) handleConnectionDenied(reason string) {
	c.log.WithField("reason", reason).Warn("connection denied")
	c.reset()
}

func (c *Client) handleSnapshot(snap wire.WorldSnapshot) {
	c.estimatedServerTick = snap.Tick + c.config.InterpolationDelayTicks
	c.lastServerAck = snap.LastCommandAck

	localMs := time.Now().UnixMilli()
	c.clockOffsetMs = int64(snap.ServerTimeMs) - localMs

	c.interpolation.IngestSnapshot(snap, float64(localMs))

	if c.hasEntity {
		if local, ok := findEntity(snap, c.entityID); ok {
			pos := geom.Vec3{X: local.Position[0], Y: local.Position[1], Z: local.Position[2]}
			q := local.DecodeOrientation()
			orient := geom.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
			c.prediction.Reconcile(pos, orient, snap.LastCommandAck)
		}
	}

	c.sendSnapshotAck(snap.Tick)
}

func findEntity(snap wire.WorldSnapshot, id uint32) (wire.EntityState, bool) {
	for _, e := range snap.Entities {
		if e.EntityID == id {
			return e, true
		}
	}
	return wire.EntityState{}, false
}

func (c *Client) handlePong(timestamp uint64) {
	now := uint64(time.Now().UnixMilli())
	rtt := now - timestamp
	c.log.WithField("rtt_ms", rtt).Debug("ping")
}

func (c *Client) pushLobbies(lobbies []wire.LobbyInfo) {
	select {
	case c.Lobbies <- lobbies:
	default:
	}
}

func (c *Client) pushQueueStatus(position, waitSecs uint32) {
	select {
	case c.QueueUpdate <- QueueStatus{Position: position, EstimatedWaitSecs: waitSecs}:
	default:
	}
}

func (c *Client) handleEventBundle(data []byte) {
	evts, err := events.DecodeBundle(data)
	if err != nil {
		c.log.WithError(err).Debug("failed to decode event bundle")
		return
	}
	for _, evt := range evts {
		select {
		case c.Events <- evt:
		default:
		}
	}
}

// sendCommand encodes input into a ClientCommand, applies it to local
// prediction immediately, and sends it unreliably (a dropped command is
// superseded by the next one, never worth retransmitting).
func (c *Client) sendCommand(input InputState) error {
	cmd := input.toCommand(c.estimatedServerTick, c.commandSequence)
	c.commandSequence++

	c.prediction.PrepareTick()
	c.prediction.ApplyInput(cmd)
	c.prediction.StoreCommand(cmd.CommandSequence)

	pkt := c.peer.BuildPacket(wire.ClientCommandPayload(cmd), wire.ChannelUnreliable)
	return c.send(pkt)
}

func (c *Client) sendPing() error {
	timestamp := uint64(time.Now().UnixMilli())
	pkt := c.peer.BuildPacket(wire.Ping(timestamp), wire.ChannelUnreliable)
	return c.send(pkt)
}

func (c *Client) sendSnapshotAck(tick uint32) error {
	pkt := c.peer.BuildPacket(wire.SnapshotAck(tick), wire.ChannelUnreliable)
	return c.send(pkt)
}

// SendChatMessage relays a chat message to the server for broadcast.
func (c *Client) SendChatMessage(channel uint8, message string) error {
	evt := events.ChatMessage(c.clientID, channel, message)
	encoded, err := events.EncodeBundle([]events.GameEvent{evt})
	if err != nil {
		return err
	}
	pkt := c.peer.BuildPacket(wire.EventBundlePayload(encoded), wire.ChannelReliable)
	return c.send(pkt)
}

// RequestLobbyList asks the server for the current public lobby list;
// the response arrives on the Lobbies channel.
func (c *Client) RequestLobbyList() error {
	pkt := c.peer.BuildPacket(wire.LobbyListPayload(nil), wire.ChannelReliable)
	return c.send(pkt)
}

// JoinLobby requests to join the named lobby.
func (c *Client) JoinLobby(lobbyID uint64) error {
	pkt := c.peer.BuildPacket(wire.LobbyJoin(lobbyID), wire.ChannelReliable)
	return c.send(pkt)
}

// LeaveLobby requests to leave the client's current lobby.
func (c *Client) LeaveLobby() error {
	pkt := c.peer.BuildPacket(wire.LobbyLeave(), wire.ChannelReliable)
	return c.send(pkt)
}

// JoinQueue enters the default matchmaking queue; QueueStatus updates
// arrive on the QueueUpdate channel.
func (c *Client) JoinQueue() error {
	pkt := c.peer.BuildPacket(wire.QueueJoin(), wire.ChannelReliable)
	return c.send(pkt)
}

// LeaveQueue withdraws from the matchmaking queue.
func (c *Client) LeaveQueue() error {
	pkt := c.peer.BuildPacket(wire.QueueLeave(), wire.ChannelReliable)
	return c.send(pkt)
}

// Sample returns the current interpolated render state for a remote
// entity; the local player's own entity is driven by Prediction instead.
func (c *Client) Sample(entityID uint32) (replication.EntitySample, bool) {
	return c.interpolation.Sample(entityID)
}

// Prediction exposes the local player's predicted movement state.
func (c *Client) Prediction() *predict.Prediction { return c.prediction }

// EstimatedServerTick is the server tick this client is currently
// targeting for newly sent commands (current snapshot tick plus the
// configured interpolation delay).
func (c *Client) EstimatedServerTick() uint32 { return c.estimatedServerTick }

// ClockOffsetMs is serverTime - localTime in milliseconds, refreshed on
// every snapshot.
func (c *Client) ClockOffsetMs() int64 { return c.clockOffsetMs }

// RTTMillis exposes the current smoothed round-trip estimate.
func (c *Client) RTTMillis() float64 { return c.peer.RTTMillis() }
