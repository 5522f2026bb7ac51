package wire

import "duelnet-go/internal/geom"

// ClientCommand is one tick's worth of input from a client.
type ClientCommand struct {
	Tick             uint32
	CommandSequence  uint32
	MoveDirection    [3]int8  // scaled by 1/127
	ViewAngles       [2]int16 // yaw, pitch; scaled by 1/10000 radian
	InputFlags       uint16
}

func NewClientCommand(tick, sequence uint32) ClientCommand {
	return ClientCommand{Tick: tick, CommandSequence: sequence}
}

func (c *ClientCommand) EncodeMoveDirection(dir [3]float32) {
	for i := 0; i < 3; i++ {
		c.MoveDirection[i] = int8(clampF32(dir[i], -1.0, 1.0) * 127.0)
	}
}

func (c *ClientCommand) DecodeMoveDirection() [3]float32 {
	var out [3]float32
	for i := 0; i < 3; i++ {
		out[i] = float32(c.MoveDirection[i]) / 127.0
	}
	return out
}

// EncodeViewAngles stores yaw/pitch in radians. Yaw is normalized into
// [-pi, pi] before quantizing since it wraps continuously; pitch is left
// as-is because movement controllers clamp it to a bounded range already.
func (c *ClientCommand) EncodeViewAngles(yaw, pitch float32) {
	normalizedYaw := geom.NormalizeAngle(yaw)
	c.ViewAngles[0] = int16(normalizedYaw * 10000.0)
	c.ViewAngles[1] = int16(pitch * 10000.0)
}

func (c *ClientCommand) DecodeViewAngles() (yaw, pitch float32) {
	return float32(c.ViewAngles[0]) / 10000.0, float32(c.ViewAngles[1]) / 10000.0
}

func (c *ClientCommand) HasFlag(flag uint16) bool {
	return c.InputFlags&flag != 0
}

func (c *ClientCommand) SetFlag(flag uint16, value bool) {
	if value {
		c.InputFlags |= flag
	} else {
		c.InputFlags &^= flag
	}
}

func (c ClientCommand) encode(bs *BitStream) {
	bs.WriteUint32(c.Tick)
	bs.WriteUint32(c.CommandSequence)
	for _, d := range c.MoveDirection {
		bs.WriteInt8(d)
	}
	for _, a := range c.ViewAngles {
		bs.WriteInt16(a)
	}
	bs.WriteUint16(c.InputFlags)
}

func decodeClientCommand(bs *BitStream) (ClientCommand, error) {
	var c ClientCommand
	var err error
	if c.Tick, err = bs.ReadUint32(); err != nil {
		return c, err
	}
	if c.CommandSequence, err = bs.ReadUint32(); err != nil {
		return c, err
	}
	for i := 0; i < 3; i++ {
		if c.MoveDirection[i], err = bs.ReadInt8(); err != nil {
			return c, err
		}
	}
	for i := 0; i < 2; i++ {
		if c.ViewAngles[i], err = bs.ReadInt16(); err != nil {
			return c, err
		}
	}
	if c.InputFlags, err = bs.ReadUint16(); err != nil {
		return c, err
	}
	return c, nil
}
