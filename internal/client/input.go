package client

import "duelnet-go/internal/wire"

// InputState is one tick's worth of raw input, in the shape a frontend
// (a game loop, a bot, a test harness) returns from the input callback
// that Client.Run polls once per tick. Mirrors
// the original NetworkClient's InputState struct field-for-field.
type InputState struct {
	MoveDirection [3]float32
	ViewYaw       float32
	ViewPitch     float32
	Sprint        bool
	Jump          bool
	Crouch        bool
	Fire1         bool
	Fire2         bool
	Use           bool
	Reload        bool
}

// toCommand encodes input into a wire ClientCommand stamped with tick
// and sequence.
func (i InputState) toCommand(tick, sequence uint32) wire.ClientCommand {
	cmd := wire.NewClientCommand(tick, sequence)
	cmd.EncodeMoveDirection(i.MoveDirection)
	cmd.EncodeViewAngles(i.ViewYaw, i.ViewPitch)

	if i.Sprint {
		cmd.SetFlag(wire.FlagSprint, true)
	}
	if i.Jump {
		cmd.SetFlag(wire.FlagJump, true)
	}
	if i.Crouch {
		cmd.SetFlag(wire.FlagCrouch, true)
	}
	if i.Fire1 {
		cmd.SetFlag(wire.FlagFire1, true)
	}
	if i.Fire2 {
		cmd.SetFlag(wire.FlagFire2, true)
	}
	if i.Use {
		cmd.SetFlag(wire.FlagUse, true)
	}
	if i.Reload {
		cmd.SetFlag(wire.FlagReload, true)
	}

	return cmd
}
