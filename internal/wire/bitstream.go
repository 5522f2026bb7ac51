// Package wire implements the on-the-wire framing for the netcode core: a
// cursor-based byte reader/writer, the fixed packet header, the typed
// payload union, and the fixed-point codecs for motion and orientation.
package wire

import (
	"encoding/binary"
	"fmt"
)

// BitStream is a cursor over a byte buffer supporting sequential reads and
// appending writes. It panics on nothing; read failures are returned as
// errors so callers can drop malformed frames silently per the protocol's
// error-handling policy.
type BitStream struct {
	data   []byte
	offset int
}

func NewBitStream(data []byte) *BitStream {
	return &BitStream{data: data}
}

func NewEmptyBitStream() *BitStream {
	return &BitStream{data: make([]byte, 0, 64)}
}

func (bs *BitStream) ReadByte() (byte, error) {
	if bs.offset >= len(bs.data) {
		return 0, fmt.Errorf("wire: buffer overflow reading byte")
	}
	b := bs.data[bs.offset]
	bs.offset++
	return b, nil
}

func (bs *BitStream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || bs.offset+n > len(bs.data) {
		return nil, fmt.Errorf("wire: buffer overflow reading %d bytes", n)
	}
	result := bs.data[bs.offset : bs.offset+n]
	bs.offset += n
	return result, nil
}

func (bs *BitStream) ReadUint16() (uint16, error) {
	data, err := bs.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

func (bs *BitStream) ReadUint32() (uint32, error) {
	data, err := bs.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(data), nil
}

func (bs *BitStream) ReadUint64() (uint64, error) {
	data, err := bs.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

func (bs *BitStream) ReadInt16() (int16, error) {
	v, err := bs.ReadUint16()
	return int16(v), err
}

func (bs *BitStream) ReadInt8() (int8, error) {
	b, err := bs.ReadByte()
	return int8(b), err
}

func (bs *BitStream) ReadFloat32() (float32, error) {
	v, err := bs.ReadUint32()
	if err != nil {
		return 0, err
	}
	return float32FromBits(v), nil
}

func (bs *BitStream) ReadString() (string, error) {
	length, err := bs.ReadUint16()
	if err != nil {
		return "", err
	}
	data, err := bs.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (bs *BitStream) WriteByte(b byte) {
	bs.data = append(bs.data, b)
}

func (bs *BitStream) WriteBytes(data []byte) {
	bs.data = append(bs.data, data...)
}

func (bs *BitStream) WriteUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteUint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteUint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	bs.data = append(bs.data, buf[:]...)
}

func (bs *BitStream) WriteInt16(v int16) {
	bs.WriteUint16(uint16(v))
}

func (bs *BitStream) WriteInt8(v int8) {
	bs.WriteByte(byte(v))
}

func (bs *BitStream) WriteFloat32(v float32) {
	bs.WriteUint32(float32Bits(v))
}

func (bs *BitStream) WriteString(s string) {
	bs.WriteUint16(uint16(len(s)))
	bs.data = append(bs.data, s...)
}

func (bs *BitStream) GetData() []byte {
	return bs.data
}

func (bs *BitStream) Reset() {
	bs.data = bs.data[:0]
	bs.offset = 0
}

func (bs *BitStream) Remaining() int {
	return len(bs.data) - bs.offset
}
