package conn

import (
	"fmt"
	"net"
	"sync"
	"time"

	"duelnet-go/internal/wire"
)

// DefaultTimeout is the canonical connection idle timeout (matches the
// connection.rs original; a 10s draft value appears in an older transport
// prototype but was never the value actually used end-to-end).
const DefaultTimeout = 120 * time.Second

// reliableHistorySize bounds the dedup window of delivered reliable
// channel sequences kept per connection.
const reliableHistorySize = 256

// maxAckTrackedPackets bounds the AckTracker's in-flight window.
const maxAckTrackedPackets = 1024

// minResendInterval is the minimum spacing between retransmits of an unacked
// reliable/ordered send; retries are unlimited, gated only by RTO.
const minResendInterval = 50 * time.Millisecond

// State is the connection lifecycle state machine driven by the handshake.
type State uint8

const (
	StateConnecting State = iota
	StateChallengeResponse
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateChallengeResponse:
		return "challenge_response"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// pendingSend is an unacked reliable or ordered send awaiting retransmit.
type pendingSend struct {
	payload    wire.PacketType
	channel    wire.Channel
	channelSeq uint16
	lastSentAt time.Time
}

// inflightRecord maps a wire sequence back to the (channel, channelSeq)
// pair it carried, so an incoming ack can retire the right pending entry.
type inflightRecord struct {
	channel    wire.Channel
	channelSeq uint16
}

// ClientConnection is the per-peer reliability and lifecycle state for one
// connected client. Mirrors the teacher's Session type in its dual-mutex
// shape: `mu` guards general connection state, `pendingMu` separately
// guards the in-flight resend maps to avoid a single broad lock covering
// both the fast packet-processing path and the slower periodic resend scan.
type ClientConnection struct {
	mu sync.RWMutex

	Addr       *net.UDPAddr
	ClientID   uint32
	EntityID   uint32
	HasEntity  bool
	LobbyID    uint64
	HasLobby   bool
	state      State
	clientSalt uint64
	serverSalt uint64

	lastCommandAck uint32
	lastAckedTick  uint32
	lastReceiveAt  time.Time

	sendSequence uint32
	ackTracker   *AckTracker
	recvTracker  *ReceiveTracker

	nextReliableSeq uint16
	nextOrderedSeq  uint16

	nextExpectedOrdered uint16
	orderedBuffer       map[uint16]wire.PacketType

	receivedReliableHistory []uint16

	pendingMu       sync.Mutex
	inflight        map[uint32]inflightRecord
	pendingReliable map[uint16]*pendingSend
	pendingOrdered  map[uint16]*pendingSend
}

func NewClientConnection(addr *net.UDPAddr, clientSalt uint64) *ClientConnection {
	return &ClientConnection{
		Addr:            addr,
		state:           StateConnecting,
		clientSalt:      clientSalt,
		lastReceiveAt:   time.Now(),
		ackTracker:      NewAckTracker(maxAckTrackedPackets),
		recvTracker:     NewReceiveTracker(),
		orderedBuffer:   make(map[uint16]wire.PacketType),
		inflight:        make(map[uint32]inflightRecord),
		pendingReliable: make(map[uint16]*pendingSend),
		pendingOrdered:  make(map[uint16]*pendingSend),
	}
}

func (c *ClientConnection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *ClientConnection) SetState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *ClientConnection) SetServerSalt(salt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverSalt = salt
}

// CombinedSalt is the XOR of client and server salts, compared during the
// ChallengeResponse step of the handshake.
func (c *ClientConnection) CombinedSalt() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientSalt ^ c.serverSalt
}

func (c *ClientConnection) ClientSalt() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientSalt
}

func (c *ClientConnection) SetEntity(entityID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EntityID = entityID
	c.HasEntity = true
}

func (c *ClientConnection) SetLobby(lobbyID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LobbyID = lobbyID
	c.HasLobby = true
}

func (c *ClientConnection) ClearLobby() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HasLobby = false
	c.LobbyID = 0
}

func (c *ClientConnection) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReceiveAt = time.Now()
}

func (c *ClientConnection) IsTimedOut(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastReceiveAt) > timeout
}

func (c *ClientConnection) LastCommandAck() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCommandAck
}

func (c *ClientConnection) SetLastCommandAck(seq uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wire.SequenceGreaterThan(seq, c.lastCommandAck) || c.lastCommandAck == 0 {
		c.lastCommandAck = seq
	}
}

func (c *ClientConnection) LastAckedTick() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAckedTick
}

// NoteSnapshotAck updates the last acked tick, but only monotonically
// forward — a stale or reordered SnapshotAck must never move it backward.
func (c *ClientConnection) NoteSnapshotAck(receivedTick uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if receivedTick > c.lastAckedTick {
		c.lastAckedTick = receivedTick
	}
}

// RTTMillis exposes the current smoothed RTT estimate for telemetry.
func (c *ClientConnection) RTTMillis() float64 {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.ackTracker.SRTTMillis()
}

// rto computes the current retransmission timeout: 1.5x smoothed RTT,
// floored at 50ms. srtt starts at the 100ms seed, so before any ack has
// landed this is 150ms; the flat 200ms branch is taken only when srtt is
// not positive.
func (c *ClientConnection) rto() time.Duration {
	srtt := c.ackTracker.SRTTMillis()
	if srtt <= 0 {
		return 200 * time.Millisecond
	}
	rto := time.Duration(srtt*1.5) * time.Millisecond
	if rto < 50*time.Millisecond {
		return 50 * time.Millisecond
	}
	return rto
}

// nextSendSequence advances and returns the next wire sequence.
func (c *ClientConnection) nextSendSequence() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.sendSequence
	c.sendSequence++
	return seq
}

// BuildPacket stamps a payload with a fresh wire sequence, the current
// ack/ack-bitfield, and (for reliable/ordered channels) a channel
// sequence, registering it for resend tracking as needed. The caller is
// responsible for actually sending the returned bytes; BuildPacket only
// assigns sequence numbers and bookkeeps retransmission state.
func (c *ClientConnection) BuildPacket(payload wire.PacketType, channel wire.Channel) wire.Packet {
	seq := c.nextSendSequence()
	ack, ackBitfield := c.recvTracker.AckData()

	var channelSeq uint16
	switch channel {
	case wire.ChannelReliable:
		channelSeq = c.nextChannelSeq(&c.nextReliableSeq)
	case wire.ChannelOrdered:
		channelSeq = c.nextChannelSeq(&c.nextOrderedSeq)
	}

	header := wire.NewPacketHeader(seq, ack, ackBitfield, channel, channelSeq)

	c.pendingMu.Lock()
	c.ackTracker.TrackPacket(seq)
	if channel != wire.ChannelUnreliable {
		c.inflight[seq] = inflightRecord{channel: channel, channelSeq: channelSeq}
		entry := &pendingSend{payload: payload, channel: channel, channelSeq: channelSeq, lastSentAt: time.Now()}
		if channel == wire.ChannelReliable {
			c.pendingReliable[channelSeq] = entry
		} else {
			c.pendingOrdered[channelSeq] = entry
		}
	}
	c.pendingMu.Unlock()

	return wire.NewPacket(header, payload)
}

func (c *ClientConnection) nextChannelSeq(counter *uint16) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := *counter
	*counter++
	return seq
}

// ProcessPacket consumes an inbound, already-decoded packet: it updates
// the receive tracker and retires any acknowledged sends, then returns
// zero or more application-level payloads ready for dispatch (an
// unreliable or reliable-unordered packet yields exactly its own payload;
// an ordered packet may yield itself plus any buffered successors now
// unblocked; a pure duplicate yields nothing).
func (c *ClientConnection) ProcessPacket(pkt wire.Packet) []wire.PacketType {
	c.Touch()

	c.pendingMu.Lock()
	acked := c.ackTracker.ProcessAck(pkt.Header.Ack, pkt.Header.AckBitfield)
	for _, seq := range acked {
		if rec, ok := c.inflight[seq]; ok {
			delete(c.inflight, seq)
			switch rec.channel {
			case wire.ChannelReliable:
				delete(c.pendingReliable, rec.channelSeq)
			case wire.ChannelOrdered:
				delete(c.pendingOrdered, rec.channelSeq)
			}
		}
	}
	c.pendingMu.Unlock()

	isNew := c.recvTracker.RecordReceived(pkt.Header.Sequence)

	switch pkt.Header.Channel {
	case wire.ChannelUnreliable:
		return []wire.PacketType{pkt.Payload}

	case wire.ChannelReliable:
		if !isNew || c.seenReliable(pkt.Header.ChannelSeq) {
			return nil
		}
		c.rememberReliable(pkt.Header.ChannelSeq)
		return []wire.PacketType{pkt.Payload}

	case wire.ChannelOrdered:
		if !isNew {
			return nil
		}
		return c.admitOrdered(pkt.Header.ChannelSeq, pkt.Payload)

	default:
		return nil
	}
}

func (c *ClientConnection) seenReliable(channelSeq uint16) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.receivedReliableHistory {
		if s == channelSeq {
			return true
		}
	}
	return false
}

func (c *ClientConnection) rememberReliable(channelSeq uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receivedReliableHistory = append(c.receivedReliableHistory, channelSeq)
	if len(c.receivedReliableHistory) > reliableHistorySize {
		c.receivedReliableHistory = c.receivedReliableHistory[1:]
	}
}

// admitOrdered buffers an out-of-order arrival and drains the buffer
// contiguously once the expected sequence shows up.
func (c *ClientConnection) admitOrdered(channelSeq uint16, payload wire.PacketType) []wire.PacketType {
	c.mu.Lock()
	defer c.mu.Unlock()

	if channelSeq != c.nextExpectedOrdered && !wire.SequenceGreaterThan16(channelSeq, c.nextExpectedOrdered) {
		// Already delivered (stale duplicate relative to the ordered cursor).
		return nil
	}
	c.orderedBuffer[channelSeq] = payload

	var drained []wire.PacketType
	for {
		next, ok := c.orderedBuffer[c.nextExpectedOrdered]
		if !ok {
			break
		}
		delete(c.orderedBuffer, c.nextExpectedOrdered)
		drained = append(drained, next)
		c.nextExpectedOrdered++
	}
	return drained
}

// CollectResends returns packets whose RTO has elapsed and which should be
// retransmitted verbatim (with a fresh wire sequence, still carrying their
// original channel sequence so the peer's dedup logic recognizes them).
func (c *ClientConnection) CollectResends() []wire.Packet {
	c.pendingMu.Lock()
	rto := c.rto()
	now := time.Now()
	var due []*pendingSend
	for _, p := range c.pendingReliable {
		if now.Sub(p.lastSentAt) >= rto {
			due = append(due, p)
		}
	}
	for _, p := range c.pendingOrdered {
		if now.Sub(p.lastSentAt) >= rto {
			due = append(due, p)
		}
	}
	for _, p := range due {
		p.lastSentAt = now
	}
	c.pendingMu.Unlock()

	packets := make([]wire.Packet, 0, len(due))
	for _, p := range due {
		seq := c.nextSendSequence()
		ack, ackBitfield := c.recvTracker.AckData()
		header := wire.NewPacketHeader(seq, ack, ackBitfield, p.channel, p.channelSeq)

		c.pendingMu.Lock()
		c.ackTracker.TrackPacket(seq)
		c.inflight[seq] = inflightRecord{channel: p.channel, channelSeq: p.channelSeq}
		c.pendingMu.Unlock()

		packets = append(packets, wire.NewPacket(header, p.payload))
	}
	return packets
}

func (c *ClientConnection) String() string {
	return fmt.Sprintf("ClientConnection{addr=%s client=%d state=%s}", c.Addr, c.ClientID, c.State())
}
