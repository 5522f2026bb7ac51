// Package command implements the server-side inbound command pipeline:
// a fixed-capacity FIFO buffer of not-yet-applied ClientCommands and a
// processor that applies them against the authoritative world.
package command

import "duelnet-go/internal/wire"

// PendingCommand pairs an inbound command with the entity it should be
// applied to.
type PendingCommand struct {
	EntityID uint32
	Command  wire.ClientCommand
}

// Buffer is a fixed-capacity FIFO queue of pending commands, kept in
// arrival order. Commands travel on the unreliable channel, so nothing
// guarantees that arrival order is tick order; Buffer does not re-sort
// them, and DrainForTick stops at the first command with a later tick.
type Buffer struct {
	commands []PendingCommand
	maxSize  int
}

// NewBuffer creates an empty Buffer holding at most maxSize commands.
func NewBuffer(maxSize int) *Buffer {
	return &Buffer{maxSize: maxSize}
}

// Push appends a command, evicting the oldest pending command first if
// the buffer is already at capacity.
func (b *Buffer) Push(entityID uint32, cmd wire.ClientCommand) {
	if len(b.commands) >= b.maxSize {
		b.commands = b.commands[1:]
	}
	b.commands = append(b.commands, PendingCommand{EntityID: entityID, Command: cmd})
}

// DrainForTick pops and returns every leading command whose tick is at
// or before tick, stopping at the first command scheduled for a later
// tick.
func (b *Buffer) DrainForTick(tick uint32) []PendingCommand {
	var result []PendingCommand
	i := 0
	for i < len(b.commands) && b.commands[i].Command.Tick <= tick {
		result = append(result, b.commands[i])
		i++
	}
	b.commands = b.commands[i:]
	return result
}

func (b *Buffer) Clear()        { b.commands = nil }
func (b *Buffer) Len() int      { return len(b.commands) }
func (b *Buffer) IsEmpty() bool { return len(b.commands) == 0 }
