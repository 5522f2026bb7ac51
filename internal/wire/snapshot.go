package wire

// WorldSnapshot is the authoritative-state payload broadcast to clients,
// either as a full snapshot (IsDelta == false, BaselineTick == 0) or as a
// delta against a named baseline tick.
type WorldSnapshot struct {
	Tick            uint32
	ServerTimeMs    uint64
	LastCommandAck  uint32
	BaselineTick    uint32
	IsDelta         bool
	Entities        []EntityState
	RemovedEntities []uint32
}

func NewWorldSnapshot(tick uint32, serverTimeMs uint64) WorldSnapshot {
	return WorldSnapshot{Tick: tick, ServerTimeMs: serverTimeMs}
}

func NewDeltaWorldSnapshot(tick uint32, serverTimeMs uint64, baselineTick uint32) WorldSnapshot {
	return WorldSnapshot{
		Tick:         tick,
		ServerTimeMs: serverTimeMs,
		BaselineTick: baselineTick,
		IsDelta:      true,
	}
}

func (s WorldSnapshot) encode(bs *BitStream) {
	bs.WriteUint32(s.Tick)
	bs.WriteUint64(s.ServerTimeMs)
	bs.WriteUint32(s.LastCommandAck)
	bs.WriteUint32(s.BaselineTick)
	if s.IsDelta {
		bs.WriteByte(1)
	} else {
		bs.WriteByte(0)
	}
	bs.WriteUint16(uint16(len(s.Entities)))
	for _, e := range s.Entities {
		e.encode(bs)
	}
	bs.WriteUint16(uint16(len(s.RemovedEntities)))
	for _, id := range s.RemovedEntities {
		bs.WriteUint32(id)
	}
}

func decodeWorldSnapshot(bs *BitStream) (WorldSnapshot, error) {
	var s WorldSnapshot
	var err error
	if s.Tick, err = bs.ReadUint32(); err != nil {
		return s, err
	}
	if s.ServerTimeMs, err = bs.ReadUint64(); err != nil {
		return s, err
	}
	if s.LastCommandAck, err = bs.ReadUint32(); err != nil {
		return s, err
	}
	if s.BaselineTick, err = bs.ReadUint32(); err != nil {
		return s, err
	}
	deltaFlag, err := bs.ReadByte()
	if err != nil {
		return s, err
	}
	s.IsDelta = deltaFlag != 0
	entCount, err := bs.ReadUint16()
	if err != nil {
		return s, err
	}
	s.Entities = make([]EntityState, entCount)
	for i := range s.Entities {
		if s.Entities[i], err = decodeEntityState(bs); err != nil {
			return s, err
		}
	}
	removedCount, err := bs.ReadUint16()
	if err != nil {
		return s, err
	}
	s.RemovedEntities = make([]uint32, removedCount)
	for i := range s.RemovedEntities {
		if s.RemovedEntities[i], err = bs.ReadUint32(); err != nil {
			return s, err
		}
	}
	return s, nil
}
