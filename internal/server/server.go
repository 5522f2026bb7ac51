// Package server implements the authoritative game server: connection
// handshake and lifecycle, the fixed-rate tick loop, command
// application, and snapshot generation. Grounded throughout on
// original_source's crates/server/src/server.go (sic: server.rs) for
// the handshake/tick sequencing and the teacher's source/server/
// server.go for the buffer-reuse receive loop and ticker-driven update
// idiom.
package server

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"duelnet-go/internal/command"
	"duelnet-go/internal/conn"
	"duelnet-go/internal/dispatch"
	"duelnet-go/internal/events"
	"duelnet-go/internal/geom"
	"duelnet-go/internal/lobby"
	"duelnet-go/internal/lossinjector"
	"duelnet-go/internal/telemetry"
	"duelnet-go/internal/wire"
	"duelnet-go/internal/world"
)

// DisconnectReason explains why a client left, for logging/telemetry.
type DisconnectReason int

const (
	DisconnectGraceful DisconnectReason = iota
	DisconnectTimeout
	DisconnectKicked
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectGraceful:
		return "disconnected"
	case DisconnectTimeout:
		return "timed out"
	case DisconnectKicked:
		return "kicked"
	default:
		return "unknown"
	}
}

// matchLobbySize is the queue's target group size for the default
// deathmatch match queue.
const matchLobbySize = 8

// maxEventQueuePending bounds each client's outbound GameEvent queue.
const maxEventQueuePending = 256

// rawDatagram is one UDP read, handed from the receive goroutine to the
// tick loop over a channel.
type rawDatagram struct {
	data []byte
	addr *net.UDPAddr
}

// GameServer ties every subsystem together: the UDP endpoint, per-client
// reliability state, the authoritative world, the command pipeline, the
// lobby/queue bookkeeping, and (optionally) network condition
// simulation and telemetry.
type GameServer struct {
	config Config
	log    *logrus.Logger
	conn   *net.UDPConn

	connections *conn.ConnectionManager
	world       *world.World
	snapshots   *world.SnapshotBuffer
	commands    *command.Buffer
	processor   *command.Processor
	eventQueues map[uint32]*events.Queue // keyed by client id
	entityOwner map[uint32]uint32        // entity id -> client id

	lobbies *lobby.Manager
	matchQ  *lobby.Queue

	simulator *lossinjector.Simulator
	bus       *dispatch.Bus
	metrics   *telemetry.Metrics

	incoming chan rawDatagram
	tick     uint32
}

// New binds the UDP socket and wires up every subsystem. log and
// metrics may be nil; metrics being nil simply disables instrumentation.
func New(config Config, log *logrus.Logger, metrics *telemetry.Metrics) (*GameServer, error) {
	addr, err := net.ResolveUDPAddr("udp", config.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("server: resolve bind address: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: bind UDP socket: %w", err)
	}

	if log == nil {
		log = logrus.New()
	}

	var sim *lossinjector.Simulator
	if config.GlobalPacketLoss != nil {
		sim = lossinjector.New()
	}

	return &GameServer{
		config:      config,
		log:         log,
		conn:        udpConn,
		connections: conn.NewConnectionManager(),
		world:       world.NewWorld(),
		snapshots:   world.NewSnapshotBuffer(config.SnapshotBufferSize),
		commands:    command.NewBuffer(1024),
		processor:   command.NewProcessor(authoritativeMover{}),
		eventQueues: make(map[uint32]*events.Queue),
		entityOwner: make(map[uint32]uint32),
		lobbies:     lobby.NewManager(),
		matchQ:      lobby.NewQueue(matchLobbySize),
		simulator:   sim,
		bus:         dispatch.New(),
		metrics:     metrics,
		incoming:    make(chan rawDatagram, 1024),
	}, nil
}

// LocalAddr returns the bound UDP address.
func (s *GameServer) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Bus exposes the in-process notification bus so other components
// (telemetry, game-mode logic) can subscribe before Run starts.
func (s *GameServer) Bus() *dispatch.Bus { return s.bus }

// Run drives the receive goroutine and the fixed-rate tick loop until
// ctx is canceled. It always returns a non-nil error; ctx cancellation
// surfaces as ctx.Err().
func (s *GameServer) Run(ctx context.Context) error {
	go s.receiveLoop(ctx)

	tickInterval := time.Second / time.Duration(s.config.TickRate)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.tickOnce()
		}
	}
}

// receiveLoop blocking-reads datagrams and forwards them to the tick
// loop. It never touches shared state directly, matching the single
// cooperative mutator model: only tickOnce (on the Run goroutine) reads
// or writes connections/world/etc.
func (s *GameServer) receiveLoop(ctx context.Context) {
	buf := make([]byte, wire.MaxPacketSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case s.incoming <- rawDatagram{data: data, addr: addr}:
		default:
			// Channel saturated; drop rather than block the reader.
		}
	}
}

// tickOnce implements the server tick loop: drain the endpoint,
// retransmit anything past its RTO, then run one simulation tick.
func (s *GameServer) tickOnce() {
	s.drainIncoming()
	s.drainSimulatedReleases()
	s.processResends()

	s.simulateTick()
}

// drainIncoming processes every datagram currently queued, without
// blocking — "poll the endpoint" in spec terms.
func (s *GameServer) drainIncoming() {
	for {
		select {
		case dg := <-s.incoming:
			s.handleDatagram(dg)
		default:
			return
		}
	}
}

func (s *GameServer) handleDatagram(dg rawDatagram) {
	if s.metrics != nil {
		s.metrics.RecordReceive(len(dg.data))
	}

	if s.simulator != nil {
		s.simulator.EnqueueInbound(dg.data, dg.addr)
		return
	}

	s.processPacketBytes(dg.data, dg.addr)
}

// drainSimulatedReleases delivers/sends any packet whose simulated
// latency has elapsed, for both directions.
func (s *GameServer) drainSimulatedReleases() {
	if s.simulator == nil {
		return
	}
	for _, released := range s.simulator.TakeInbound() {
		s.processPacketBytes(released.Payload, released.Addr)
	}
	for _, released := range s.simulator.TakeOutbound() {
		s.writeDatagram(released.Payload, released.Addr)
	}
}

func (s *GameServer) processPacketBytes(data []byte, addr *net.UDPAddr) {
	pkt, err := wire.ParsePacket(data)
	if err != nil {
		s.log.WithError(err).Debug("dropping malformed packet")
		return
	}
	if !pkt.Header.IsValid() {
		s.log.Debug("dropping packet with bad magic/version")
		return
	}

	cc, known := s.connections.GetByAddr(addr)
	if !known {
		if pkt.Payload.Tag == wire.TagConnectionRequest {
			s.handleConnectionRequest(addr, pkt.Payload.ClientSalt)
		}
		return
	}

	for _, payload := range cc.ProcessPacket(pkt) {
		s.handlePayload(cc, payload)
	}
}

func (s *GameServer) handlePayload(cc *conn.ClientConnection, payload wire.PacketType) {
	switch payload.Tag {
	case wire.TagChallengeResponse:
		s.handleChallengeResponse(cc, payload.CombinedSalt)
	case wire.TagClientCommand:
		s.handleClientCommand(cc, payload.Command)
	case wire.TagPing:
		s.handlePing(cc, payload.Timestamp)
	case wire.TagSnapshotAck:
		cc.NoteSnapshotAck(payload.ReceivedTick)
	case wire.TagDisconnect:
		s.disconnectClient(cc, DisconnectGraceful)
	case wire.TagLobbyList:
		s.handleLobbyListRequest(cc)
	case wire.TagLobbyJoin:
		s.handleLobbyJoin(cc, payload.LobbyID)
	case wire.TagLobbyLeave:
		s.handleLobbyLeave(cc)
	case wire.TagQueueJoin:
		s.handleQueueJoin(cc)
	case wire.TagQueueLeave:
		s.matchQ.Dequeue(cc.ClientID)
	case wire.TagEventBundle:
		s.handleEventBundle(payload.EventBundle)
	}
}

// handleEventBundle relays chat messages a client sends to every
// connected client's event queue, the sender's own included; non-chat
// event kinds are never client-originated and are ignored here.
func (s *GameServer) handleEventBundle(data []byte) {
	evts, err := events.DecodeBundle(data)
	if err != nil {
		s.log.WithError(err).Debug("failed to decode inbound event bundle")
		return
	}
	nextTick := s.world.Tick() + 1
	nowMs := uint64(time.Now().UnixMilli())
	for _, evt := range evts {
		if evt.Kind != events.EventChatMessage {
			continue
		}
		s.broadcastEvent(nextTick, nowMs, evt)
	}
}

// broadcastEvent schedules evt for delivery to every connected client's
// outbound event queue at the given tick.
func (s *GameServer) broadcastEvent(tick uint32, nowMs uint64, evt events.GameEvent) {
	for _, q := range s.eventQueues {
		q.Push(tick, nowMs, evt)
	}
}

// flushEventQueues cleans up and sends any events scheduled for tick on
// every client's queue.
func (s *GameServer) flushEventQueues(tick uint32, nowMs uint64) {
	for clientID, q := range s.eventQueues {
		q.Cleanup(nowMs)
		evts := q.DrainEventsForTick(tick)
		if len(evts) == 0 {
			continue
		}
		encoded, err := events.EncodeBundle(evts)
		if err != nil {
			s.log.WithError(err).Debug("failed to encode outbound event bundle")
			continue
		}
		cc, ok := s.connections.GetByClientID(clientID)
		if !ok {
			continue
		}
		pkt := cc.BuildPacket(wire.EventBundlePayload(encoded), wire.ChannelReliable)
		s.sendPacket(pkt, cc.Addr)
	}
}

func (s *GameServer) handleConnectionRequest(addr *net.UDPAddr, clientSalt uint64) {
	s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicClientConnecting, Data: addr.String()})

	if s.connections.Count() >= s.config.MaxClients {
		denied := wire.ConnectionDenied("server full")
		header := wire.NewPacketHeader(0, 0, 0, wire.ChannelUnreliable, 0)
		s.sendPacket(wire.NewPacket(header, denied), addr)
		s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicConnectionDenied, Data: "server full"})
		return
	}

	cc, created := s.connections.GetOrCreatePending(addr, clientSalt)
	if !created {
		return
	}
	if s.config.GlobalPacketLoss != nil && s.simulator != nil {
		s.simulator.SetConfig(addr, *s.config.GlobalPacketLoss)
	}

	serverSalt := randomSalt()
	cc.SetServerSalt(serverSalt)
	challenge := cc.CombinedSalt()

	pkt := cc.BuildPacket(wire.ConnectionChallenge(serverSalt, challenge), wire.ChannelReliable)
	s.sendPacket(pkt, addr)
	cc.SetState(conn.StateChallengeResponse)
}

func (s *GameServer) handleChallengeResponse(cc *conn.ClientConnection, combinedSalt uint64) {
	if cc.State() != conn.StateChallengeResponse {
		return
	}
	if combinedSalt != cc.CombinedSalt() {
		s.log.WithField("addr", cc.Addr.String()).Warn("invalid challenge response")
		return
	}

	cc.SetState(conn.StateConnected)

	entity := s.world.SpawnEntity(wire.EntityPlayer)
	entity.Position = defaultSpawnPosition
	cc.SetEntity(entity.ID)

	clientID := s.connections.AssignClientID(cc)
	s.entityOwner[entity.ID] = clientID
	s.eventQueues[clientID] = events.NewQueue(maxEventQueuePending)

	pkt := cc.BuildPacket(wire.ConnectionAccepted(clientID, entity.ID), wire.ChannelReliable)
	s.sendPacket(pkt, cc.Addr)

	s.bus.Publish(dispatch.Notification{
		Topic: dispatch.TopicClientConnected, ClientID: clientID, EntityID: entity.ID,
		Data: cc.Addr.String(),
	})
	s.broadcastEvent(s.world.Tick()+1, uint64(time.Now().UnixMilli()),
		events.ChatMessage(0, 0, fmt.Sprintf("player %d joined", clientID)))
}

func (s *GameServer) handleClientCommand(cc *conn.ClientConnection, cmd wire.ClientCommand) {
	if cc.State() != conn.StateConnected || !cc.HasEntity {
		return
	}
	s.commands.Push(cc.EntityID, cmd)
}

func (s *GameServer) handlePing(cc *conn.ClientConnection, timestamp uint64) {
	pkt := cc.BuildPacket(wire.Pong(timestamp), wire.ChannelUnreliable)
	s.sendPacket(pkt, cc.Addr)
}

func (s *GameServer) handleLobbyListRequest(cc *conn.ClientConnection) {
	infos := s.lobbies.ListPublic()
	wireInfos := make([]wire.LobbyInfo, len(infos))
	for i, info := range infos {
		wireInfos[i] = toWireLobbyInfo(info)
	}
	pkt := cc.BuildPacket(wire.LobbyListPayload(wireInfos), wire.ChannelReliable)
	s.sendPacket(pkt, cc.Addr)
}

func (s *GameServer) handleLobbyJoin(cc *conn.ClientConnection, lobbyID uint64) {
	if err := s.lobbies.JoinLobby(lobbyID, cc.ClientID, ""); err != nil {
		s.log.WithError(err).WithField("client_id", cc.ClientID).Debug("lobby join rejected")
		return
	}
	cc.SetLobby(lobbyID)
	s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicLobbyCreated, ClientID: cc.ClientID, LobbyID: lobbyID})
}

func (s *GameServer) handleLobbyLeave(cc *conn.ClientConnection) {
	if lobbyID, ok := s.lobbies.LeaveLobby(cc.ClientID); ok {
		cc.ClearLobby()
		s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicLobbyClosed, ClientID: cc.ClientID, LobbyID: lobbyID})
	}
}

func (s *GameServer) handleQueueJoin(cc *conn.ClientConnection) {
	s.matchQ.Enqueue(cc.ClientID)
	pos, _ := s.matchQ.Position(cc.ClientID)
	wait, _ := s.matchQ.EstimatedWaitSecs(cc.ClientID)
	pkt := cc.BuildPacket(wire.QueueStatus(pos, wait), wire.ChannelReliable)
	s.sendPacket(pkt, cc.Addr)

	if matched := s.matchQ.PopMatch(); matched != nil {
		lobbyID := s.lobbies.CreateLobby(matched[0], lobby.DefaultSettings())
		for _, playerID := range matched[1:] {
			s.lobbies.JoinLobby(lobbyID, playerID, "")
		}
		s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicLobbyCreated, LobbyID: lobbyID})
	}
}

func (s *GameServer) processResends() {
	for _, cc := range s.connections.All() {
		for _, pkt := range cc.CollectResends() {
			s.sendPacket(pkt, cc.Addr)
		}
	}
}

// simulateTick steps the simulation once (the tick loop is driven one
// whole tick per timer fire at the configured rate, rather than via a
// variable-delta accumulator, since the ticker itself already beats at
// tick rate).
func (s *GameServer) simulateTick() {
	s.tick = s.world.Tick() + 1
	dt := 1.0 / float32(s.config.TickRate)

	pending := s.commands.DrainForTick(s.tick)
	for _, p := range pending {
		clientID, ok := s.entityOwner[p.EntityID]
		if !ok {
			continue
		}
		cc, ok := s.connections.GetByClientID(clientID)
		if !ok {
			continue
		}
		if !wire.SequenceGreaterThan(p.Command.CommandSequence, cc.LastCommandAck()) {
			continue
		}
		cc.SetLastCommandAck(p.Command.CommandSequence)
		entity, ok := s.world.Get(p.EntityID)
		if !ok {
			continue
		}
		s.processor.Process(p.Command, entity)
	}

	stepProjectiles(s.world, dt)

	currentTick := s.world.AdvanceTick()
	s.world.CaptureBaseline(s.snapshots)

	serverTimeMs := uint64(time.Now().UnixMilli())
	maxDeltaAge := s.config.SnapshotBufferSize / 2

	s.flushEventQueues(currentTick, serverTimeMs)

	for _, cc := range s.connections.All() {
		if cc.State() != conn.StateConnected {
			continue
		}
		snapshot := s.generateClientSnapshot(cc, currentTick, maxDeltaAge, serverTimeMs)
		pkt := cc.BuildPacket(wire.WorldSnapshotPayload(snapshot), wire.ChannelUnreliable)
		s.sendPacket(pkt, cc.Addr)
	}

	timedOut := s.connections.CleanupTimedOut(s.config.Timeout)
	for _, cc := range timedOut {
		s.forgetClient(cc, DisconnectTimeout)
	}

	if s.metrics != nil {
		s.metrics.SetConnectedClients(s.connections.Count())
		for _, cc := range s.connections.All() {
			s.metrics.SetRTT(fmt.Sprint(cc.ClientID), cc.RTTMillis())
		}
	}
}

func (s *GameServer) generateClientSnapshot(cc *conn.ClientConnection, currentTick, maxDeltaAge uint32, serverTimeMs uint64) wire.WorldSnapshot {
	lastAcked := cc.LastAckedTick()
	baselineAge := currentTick - lastAcked

	if lastAcked > 0 && baselineAge < maxDeltaAge {
		if delta, ok := s.world.GenerateDeltaFromBaseline(serverTimeMs, lastAcked, s.snapshots); ok {
			delta.LastCommandAck = cc.LastCommandAck()
			return delta
		}
	}

	full := s.world.GenerateSnapshot(serverTimeMs)
	full.LastCommandAck = cc.LastCommandAck()
	return full
}

func (s *GameServer) disconnectClient(cc *conn.ClientConnection, reason DisconnectReason) {
	s.forgetClient(cc, reason)
}

func (s *GameServer) forgetClient(cc *conn.ClientConnection, reason DisconnectReason) {
	s.connections.Remove(cc)
	if cc.HasEntity {
		s.world.DespawnEntity(cc.EntityID)
		s.processor.RemovePlayer(cc.EntityID)
		delete(s.entityOwner, cc.EntityID)
	}
	delete(s.eventQueues, cc.ClientID)
	s.matchQ.Dequeue(cc.ClientID)
	if lobbyID, ok := s.lobbies.LeaveLobby(cc.ClientID); ok {
		s.bus.Publish(dispatch.Notification{Topic: dispatch.TopicLobbyClosed, ClientID: cc.ClientID, LobbyID: lobbyID})
	}
	if s.metrics != nil {
		s.metrics.DeleteRTT(fmt.Sprint(cc.ClientID))
	}
	s.bus.Publish(dispatch.Notification{
		Topic: dispatch.TopicClientDisconnected, ClientID: cc.ClientID, EntityID: cc.EntityID,
		Data: reason.String(),
	})
	s.broadcastEvent(s.world.Tick()+1, uint64(time.Now().UnixMilli()),
		events.ChatMessage(0, 0, fmt.Sprintf("player %d %s", cc.ClientID, reason)))
}

func (s *GameServer) shutdown() {
	for _, cc := range s.connections.All() {
		pkt := cc.BuildPacket(wire.Disconnect(), wire.ChannelReliable)
		s.sendPacket(pkt, cc.Addr)
	}
	s.conn.Close()
}

// sendPacket serializes and sends pkt, routing it through the loss
// injector when one is configured.
func (s *GameServer) sendPacket(pkt wire.Packet, addr *net.UDPAddr) {
	data, err := pkt.Serialize()
	if err != nil {
		s.log.WithError(err).Debug("dropping oversized outbound packet")
		return
	}
	if s.simulator != nil {
		if _, configured := s.simulator.GetConfig(addr); configured {
			s.simulator.EnqueueOutbound(data, addr)
			return
		}
	}
	s.writeDatagram(data, addr)
}

func (s *GameServer) writeDatagram(data []byte, addr *net.UDPAddr) {
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.log.WithError(err).WithField("addr", addr.String()).Debug("write failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSend(len(data))
	}
}

var defaultSpawnPosition = geom.Vec3{X: 0, Y: 1.0, Z: 0}

func randomSalt() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func toWireLobbyInfo(info lobby.Info) wire.LobbyInfo {
	return wire.LobbyInfo{
		ID:          info.ID,
		Name:        info.Name,
		PlayerCount: info.PlayerCount,
		MaxPlayers:  info.MaxPlayers,
		HasPassword: info.HasPassword,
		MapName:     info.MapName,
		GameMode:    info.GameMode,
	}
}
