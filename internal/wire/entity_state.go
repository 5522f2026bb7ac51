package wire

// EntityType tags the kind of entity an EntityState describes.
type EntityType uint8

const (
	EntityPlayer EntityType = iota
	EntityProjectile
	EntityDynamicProp
	EntityStatic
	EntityTrigger
)

// Input flags carried on ClientCommand.InputFlags.
const (
	FlagSprint uint16 = 1 << iota
	FlagJump
	FlagJumpHeld
	FlagCrouch
	FlagFire1
	FlagFire2
	FlagUse
	FlagReload
)

const maxVelocity = 327.67

// EntityState is the on-wire, quantized representation of one entity.
type EntityState struct {
	EntityID        uint32
	EntityType      uint8
	Position        [3]float32
	Velocity        [3]int16 // scaled by 100, clamp +/-327.67
	Orientation     [4]int16 // scaled by 32767
	Scale           [3]int16 // scaled by 1000
	Shape           uint8
	AnimationState  uint8
	AnimationFrame  uint8 // fractional phase in [0,1), encoded as a byte
	Flags           uint16
}

func NewEntityState(id uint32, entityType EntityType) EntityState {
	return EntityState{
		EntityID:    id,
		EntityType:  uint8(entityType),
		Orientation: [4]int16{0, 0, 0, 32767},
		Scale:       [3]int16{1000, 1000, 1000},
	}
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *EntityState) EncodeVelocity(v [3]float32) {
	for i := 0; i < 3; i++ {
		e.Velocity[i] = int16(clampF32(v[i], -maxVelocity, maxVelocity) * 100.0)
	}
}

func (e *EntityState) DecodeVelocity() [3]float32 {
	var out [3]float32
	for i := 0; i < 3; i++ {
		out[i] = float32(e.Velocity[i]) / 100.0
	}
	return out
}

func (e *EntityState) EncodeOrientation(q [4]float32) {
	for i := 0; i < 4; i++ {
		e.Orientation[i] = int16(clampF32(q[i], -1.0, 1.0) * 32767.0)
	}
}

func (e *EntityState) DecodeOrientation() [4]float32 {
	var out [4]float32
	for i := 0; i < 4; i++ {
		out[i] = float32(e.Orientation[i]) / 32767.0
	}
	return out
}

func (e *EntityState) EncodeScale(s [3]float32) {
	for i := 0; i < 3; i++ {
		e.Scale[i] = int16(clampF32(s[i], 0, 32.767) * 1000.0)
	}
}

func (e *EntityState) DecodeScale() [3]float32 {
	var out [3]float32
	for i := 0; i < 3; i++ {
		out[i] = float32(e.Scale[i]) / 1000.0
	}
	return out
}

func (e EntityState) encode(bs *BitStream) {
	bs.WriteUint32(e.EntityID)
	bs.WriteByte(e.EntityType)
	for _, f := range e.Position {
		bs.WriteFloat32(f)
	}
	for _, v := range e.Velocity {
		bs.WriteInt16(v)
	}
	for _, q := range e.Orientation {
		bs.WriteInt16(q)
	}
	for _, s := range e.Scale {
		bs.WriteInt16(s)
	}
	bs.WriteByte(e.Shape)
	bs.WriteByte(e.AnimationState)
	bs.WriteByte(e.AnimationFrame)
	bs.WriteUint16(e.Flags)
}

func decodeEntityState(bs *BitStream) (EntityState, error) {
	var e EntityState
	var err error
	if e.EntityID, err = bs.ReadUint32(); err != nil {
		return e, err
	}
	if e.EntityType, err = bs.ReadByte(); err != nil {
		return e, err
	}
	for i := 0; i < 3; i++ {
		if e.Position[i], err = bs.ReadFloat32(); err != nil {
			return e, err
		}
	}
	for i := 0; i < 3; i++ {
		if e.Velocity[i], err = bs.ReadInt16(); err != nil {
			return e, err
		}
	}
	for i := 0; i < 4; i++ {
		if e.Orientation[i], err = bs.ReadInt16(); err != nil {
			return e, err
		}
	}
	for i := 0; i < 3; i++ {
		if e.Scale[i], err = bs.ReadInt16(); err != nil {
			return e, err
		}
	}
	if e.Shape, err = bs.ReadByte(); err != nil {
		return e, err
	}
	if e.AnimationState, err = bs.ReadByte(); err != nil {
		return e, err
	}
	if e.AnimationFrame, err = bs.ReadByte(); err != nil {
		return e, err
	}
	if e.Flags, err = bs.ReadUint16(); err != nil {
		return e, err
	}
	return e, nil
}

// StatesEqual compares two EntityStates for the purposes of delta
// inclusion. AnimationFrame is deliberately excluded: animation phase
// advances every tick and interpolates locally on the client, so including
// it would make nearly every entity "dirty" every tick and defeat delta
// compression.
func StatesEqual(a, b EntityState) bool {
	return a.EntityID == b.EntityID &&
		a.EntityType == b.EntityType &&
		a.Position == b.Position &&
		a.Velocity == b.Velocity &&
		a.Orientation == b.Orientation &&
		a.Scale == b.Scale &&
		a.Shape == b.Shape &&
		a.AnimationState == b.AnimationState &&
		a.Flags == b.Flags
}
