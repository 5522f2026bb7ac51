package wire

import "fmt"

// Packet is a header plus a typed payload; Serialize/ParsePacket are the
// only two places that cross the byte-stream boundary.
type Packet struct {
	Header  PacketHeader
	Payload PacketType
}

func NewPacket(header PacketHeader, payload PacketType) Packet {
	return Packet{Header: header, Payload: payload}
}

// ErrPayloadTooLarge is returned by Serialize when the encoded frame would
// exceed MaxPacketSize.
type ErrPayloadTooLarge struct {
	Size int
}

func (e ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("wire: encoded packet is %d bytes, exceeds max %d", e.Size, MaxPacketSize)
}

// Serialize encodes the packet to bytes. Malformed/too-large output is
// reported as an error rather than silently truncated.
func (p Packet) Serialize() ([]byte, error) {
	bs := NewEmptyBitStream()
	p.Header.encode(bs)
	if err := p.Payload.encode(bs); err != nil {
		return nil, err
	}
	data := bs.GetData()
	if len(data) > MaxPacketSize {
		return nil, ErrPayloadTooLarge{Size: len(data)}
	}
	return data, nil
}

// minHeaderSize is the encoded size of PacketHeader plus a one-byte
// payload tag; frames smaller than this are not even worth attempting to
// decode and are dropped silently by the endpoint layer.
const minHeaderSize = 4 + 4 + 4 + 4 + 4 + 1 + 2 + 1

// ParsePacket decodes a frame previously produced by Serialize. Callers
// must check Header.IsValid() themselves; ParsePacket only reports
// structural decode failures (truncated/malformed frames), not magic or
// version mismatches.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < minHeaderSize {
		return Packet{}, fmt.Errorf("wire: frame too small (%d bytes)", len(data))
	}
	bs := NewBitStream(data)
	header, err := decodeHeader(bs)
	if err != nil {
		return Packet{}, err
	}
	payload, err := decodePayload(bs)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Header: header, Payload: payload}, nil
}
