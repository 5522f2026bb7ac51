package wire

import "fmt"

// payloadTag identifies which PacketType variant follows in the frame.
type payloadTag byte

const (
	tagConnectionRequest payloadTag = iota
	tagConnectionChallenge
	tagChallengeResponse
	tagConnectionAccepted
	tagConnectionDenied
	tagClientCommand
	tagWorldSnapshot
	tagSnapshotAck
	tagPing
	tagPong
	tagDisconnect
	tagLobbyList
	tagLobbyJoin
	tagLobbyLeave
	tagQueueJoin
	tagQueueLeave
	tagQueueStatus
	tagEventBundle
)

// PacketType is the tagged payload union carried by every Packet. Only the
// fields of the variant named by Tag are meaningful.
type PacketType struct {
	Tag payloadTag

	ClientSalt      uint64 // ConnectionRequest
	ServerSalt      uint64 // ConnectionChallenge
	Challenge       uint64 // ConnectionChallenge
	CombinedSalt    uint64 // ChallengeResponse
	ClientID        uint32 // ConnectionAccepted
	EntityID        uint32 // ConnectionAccepted
	Reason          string // ConnectionDenied
	Command         ClientCommand
	Snapshot        WorldSnapshot
	ReceivedTick    uint32 // SnapshotAck
	Timestamp       uint64 // Ping/Pong
	Lobbies         []LobbyInfo
	LobbyID         uint64 // LobbyJoin
	QueuePosition   uint32 // QueueStatus
	QueueWaitSecs   uint32 // QueueStatus
	EventBundle     []byte // msgpack-encoded GameEvent batch, see internal/events
}

func ConnectionRequest(clientSalt uint64) PacketType {
	return PacketType{Tag: tagConnectionRequest, ClientSalt: clientSalt}
}

func ConnectionChallenge(serverSalt, challenge uint64) PacketType {
	return PacketType{Tag: tagConnectionChallenge, ServerSalt: serverSalt, Challenge: challenge}
}

func ChallengeResponse(combinedSalt uint64) PacketType {
	return PacketType{Tag: tagChallengeResponse, CombinedSalt: combinedSalt}
}

func ConnectionAccepted(clientID, entityID uint32) PacketType {
	return PacketType{Tag: tagConnectionAccepted, ClientID: clientID, EntityID: entityID}
}

func ConnectionDenied(reason string) PacketType {
	return PacketType{Tag: tagConnectionDenied, Reason: reason}
}

func ClientCommandPayload(cmd ClientCommand) PacketType {
	return PacketType{Tag: tagClientCommand, Command: cmd}
}

func WorldSnapshotPayload(s WorldSnapshot) PacketType {
	return PacketType{Tag: tagWorldSnapshot, Snapshot: s}
}

func SnapshotAck(receivedTick uint32) PacketType {
	return PacketType{Tag: tagSnapshotAck, ReceivedTick: receivedTick}
}

func Ping(timestamp uint64) PacketType {
	return PacketType{Tag: tagPing, Timestamp: timestamp}
}

func Pong(timestamp uint64) PacketType {
	return PacketType{Tag: tagPong, Timestamp: timestamp}
}

func Disconnect() PacketType {
	return PacketType{Tag: tagDisconnect}
}

func LobbyListPayload(lobbies []LobbyInfo) PacketType {
	return PacketType{Tag: tagLobbyList, Lobbies: lobbies}
}

func LobbyJoin(lobbyID uint64) PacketType {
	return PacketType{Tag: tagLobbyJoin, LobbyID: lobbyID}
}

func LobbyLeave() PacketType {
	return PacketType{Tag: tagLobbyLeave}
}

func QueueJoin() PacketType {
	return PacketType{Tag: tagQueueJoin}
}

func QueueLeave() PacketType {
	return PacketType{Tag: tagQueueLeave}
}

func QueueStatus(position, estimatedWaitSecs uint32) PacketType {
	return PacketType{Tag: tagQueueStatus, QueuePosition: position, QueueWaitSecs: estimatedWaitSecs}
}

func EventBundlePayload(encoded []byte) PacketType {
	return PacketType{Tag: tagEventBundle, EventBundle: encoded}
}

// LobbyInfo describes one joinable lobby for a LobbyList response.
type LobbyInfo struct {
	ID          uint64
	Name        string
	PlayerCount uint8
	MaxPlayers  uint8
	HasPassword bool
	MapName     string
	GameMode    string
}

// Exported aliases for payloadTag values, for callers outside this
// package that need to discriminate a decoded PacketType's Tag (e.g.
// internal/server's inbound packet dispatch).
const (
	TagConnectionRequest   = tagConnectionRequest
	TagConnectionChallenge = tagConnectionChallenge
	TagChallengeResponse   = tagChallengeResponse
	TagConnectionAccepted  = tagConnectionAccepted
	TagConnectionDenied    = tagConnectionDenied
	TagClientCommand       = tagClientCommand
	TagWorldSnapshot       = tagWorldSnapshot
	TagSnapshotAck         = tagSnapshotAck
	TagPing                = tagPing
	TagPong                = tagPong
	TagDisconnect          = tagDisconnect
	TagLobbyList           = tagLobbyList
	TagLobbyJoin           = tagLobbyJoin
	TagLobbyLeave          = tagLobbyLeave
	TagQueueJoin           = tagQueueJoin
	TagQueueLeave          = tagQueueLeave
	TagQueueStatus         = tagQueueStatus
	TagEventBundle         = tagEventBundle
)

func (l LobbyInfo) encode(bs *BitStream) {
	bs.WriteUint64(l.ID)
	bs.WriteString(l.Name)
	bs.WriteByte(l.PlayerCount)
	bs.WriteByte(l.MaxPlayers)
	if l.HasPassword {
		bs.WriteByte(1)
	} else {
		bs.WriteByte(0)
	}
	bs.WriteString(l.MapName)
	bs.WriteString(l.GameMode)
}

func decodeLobbyInfo(bs *BitStream) (LobbyInfo, error) {
	var l LobbyInfo
	var err error
	if l.ID, err = bs.ReadUint64(); err != nil {
		return l, err
	}
	if l.Name, err = bs.ReadString(); err != nil {
		return l, err
	}
	if l.PlayerCount, err = bs.ReadByte(); err != nil {
		return l, err
	}
	if l.MaxPlayers, err = bs.ReadByte(); err != nil {
		return l, err
	}
	hasPw, err := bs.ReadByte()
	if err != nil {
		return l, err
	}
	l.HasPassword = hasPw != 0
	if l.MapName, err = bs.ReadString(); err != nil {
		return l, err
	}
	if l.GameMode, err = bs.ReadString(); err != nil {
		return l, err
	}
	return l, nil
}

func (p PacketType) encode(bs *BitStream) error {
	bs.WriteByte(byte(p.Tag))
	switch p.Tag {
	case tagConnectionRequest:
		bs.WriteUint64(p.ClientSalt)
	case tagConnectionChallenge:
		bs.WriteUint64(p.ServerSalt)
		bs.WriteUint64(p.Challenge)
	case tagChallengeResponse:
		bs.WriteUint64(p.CombinedSalt)
	case tagConnectionAccepted:
		bs.WriteUint32(p.ClientID)
		bs.WriteUint32(p.EntityID)
	case tagConnectionDenied:
		bs.WriteString(p.Reason)
	case tagClientCommand:
		p.Command.encode(bs)
	case tagWorldSnapshot:
		p.Snapshot.encode(bs)
	case tagSnapshotAck:
		bs.WriteUint32(p.ReceivedTick)
	case tagPing, tagPong:
		bs.WriteUint64(p.Timestamp)
	case tagDisconnect, tagLobbyLeave, tagQueueJoin, tagQueueLeave:
		// no payload
	case tagLobbyList:
		bs.WriteUint16(uint16(len(p.Lobbies)))
		for _, l := range p.Lobbies {
			l.encode(bs)
		}
	case tagLobbyJoin:
		bs.WriteUint64(p.LobbyID)
	case tagQueueStatus:
		bs.WriteUint32(p.QueuePosition)
		bs.WriteUint32(p.QueueWaitSecs)
	case tagEventBundle:
		bs.WriteUint16(uint16(len(p.EventBundle)))
		bs.WriteBytes(p.EventBundle)
	default:
		return fmt.Errorf("wire: unknown payload tag %d", p.Tag)
	}
	return nil
}

func decodePayload(bs *BitStream) (PacketType, error) {
	var p PacketType
	tagByte, err := bs.ReadByte()
	if err != nil {
		return p, err
	}
	p.Tag = payloadTag(tagByte)
	switch p.Tag {
	case tagConnectionRequest:
		p.ClientSalt, err = bs.ReadUint64()
	case tagConnectionChallenge:
		if p.ServerSalt, err = bs.ReadUint64(); err != nil {
			return p, err
		}
		p.Challenge, err = bs.ReadUint64()
	case tagChallengeResponse:
		p.CombinedSalt, err = bs.ReadUint64()
	case tagConnectionAccepted:
		if p.ClientID, err = bs.ReadUint32(); err != nil {
			return p, err
		}
		p.EntityID, err = bs.ReadUint32()
	case tagConnectionDenied:
		p.Reason, err = bs.ReadString()
	case tagClientCommand:
		p.Command, err = decodeClientCommand(bs)
	case tagWorldSnapshot:
		p.Snapshot, err = decodeWorldSnapshot(bs)
	case tagSnapshotAck:
		p.ReceivedTick, err = bs.ReadUint32()
	case tagPing, tagPong:
		p.Timestamp, err = bs.ReadUint64()
	case tagDisconnect, tagLobbyLeave, tagQueueJoin, tagQueueLeave:
		// no payload
	case tagLobbyList:
		var count uint16
		if count, err = bs.ReadUint16(); err != nil {
			return p, err
		}
		p.Lobbies = make([]LobbyInfo, count)
		for i := range p.Lobbies {
			if p.Lobbies[i], err = decodeLobbyInfo(bs); err != nil {
				return p, err
			}
		}
	case tagLobbyJoin:
		p.LobbyID, err = bs.ReadUint64()
	case tagQueueStatus:
		if p.QueuePosition, err = bs.ReadUint32(); err != nil {
			return p, err
		}
		p.QueueWaitSecs, err = bs.ReadUint32()
	case tagEventBundle:
		var n uint16
		if n, err = bs.ReadUint16(); err != nil {
			return p, err
		}
		p.EventBundle, err = bs.ReadBytes(int(n))
	default:
		return p, fmt.Errorf("wire: unknown payload tag %d", p.Tag)
	}
	return p, err
}
