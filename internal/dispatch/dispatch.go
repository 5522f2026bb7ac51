// Package dispatch implements the server's in-process pub/sub bus: the
// tick loop and its subsystems (world, command processor, lobby, event
// queue) publish lifecycle notifications here, and anything interested
// (telemetry, the lobby manager, game-mode logic) subscribes without the
// publisher needing to know who's listening. This is distinct from
// internal/events, which schedules GameEvents for wire delivery to
// clients; Topic here never leaves the process.
package dispatch

// Topic discriminates the notifications carried over the bus.
type Topic int

const (
	TopicClientConnecting Topic = iota
	TopicClientConnected
	TopicClientDisconnected
	TopicConnectionDenied
	TopicEntitySpawned
	TopicEntityDespawned
	TopicPlayerKilled
	TopicLobbyCreated
	TopicLobbyClosed
	TopicRoundStarted
	TopicRoundEnded
	TopicServerError
)

// Notification is a single published message.
type Notification struct {
	Topic     Topic
	ClientID  uint32
	EntityID  uint32
	LobbyID   uint64
	Data      interface{}
	Timestamp int64
}

// Handler receives notifications for the topics it was registered under.
type Handler func(n Notification)

// Bus is a synchronous, single-threaded-call in-process pub/sub bus.
// Callers on a shared tick loop should invoke Publish only from the tick
// goroutine; it does not lock its own state.
type Bus struct {
	handlers map[Topic][]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers handler to run whenever topic is published.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish invokes every handler registered for n.Topic, in registration
// order. Handlers run synchronously on the caller's goroutine.
func (b *Bus) Publish(n Notification) {
	for _, handler := range b.handlers[n.Topic] {
		handler(n)
	}
}

// HandlerCount returns how many handlers are registered for topic, for
// tests and diagnostics.
func (b *Bus) HandlerCount(topic Topic) int {
	return len(b.handlers[topic])
}
