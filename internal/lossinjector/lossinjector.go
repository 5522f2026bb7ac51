// Package lossinjector simulates adverse network conditions (packet
// loss, one-way latency, jitter) for local testing of the reliability
// layer without a real lossy link. It sits between the UDP socket and
// internal/conn: inbound datagrams are enqueued and released after a
// simulated delay (or dropped outright), and the same applies to
// outbound sends.
package lossinjector

import (
	"container/heap"
	"math/rand"
	"net"
	"sync"
	"time"
)

// PacketLossSimulation describes the adverse conditions applied to one
// remote address.
type PacketLossSimulation struct {
	Enabled      bool
	LossPercent  float32
	MinLatencyMs uint32
	MaxLatencyMs uint32
	JitterMs     uint32
}

// ShouldDrop reports whether a packet under this config should be
// silently discarded.
func (s PacketLossSimulation) ShouldDrop() bool {
	if !s.Enabled || s.LossPercent <= 0 {
		return false
	}
	return rand.Float32()*100 < s.LossPercent
}

// DelayMs returns a randomized one-way delay for a packet under this
// config, combining a uniform latency range with additive jitter.
func (s PacketLossSimulation) DelayMs() uint32 {
	if !s.Enabled || s.MaxLatencyMs == 0 {
		return 0
	}
	base := s.MinLatencyMs
	rng := s.MaxLatencyMs - s.MinLatencyMs
	if s.MaxLatencyMs < s.MinLatencyMs {
		rng = 0
	}
	jitter := uint32(0)
	if s.JitterMs > 0 {
		jitter = uint32(rand.Float32() * float32(s.JitterMs))
	}
	return base + uint32(rand.Float32()*float32(rng)) + jitter
}

// delayedPacket is one item sitting in a release-time-ordered queue.
type delayedPacket struct {
	releaseTime time.Time
	payload     []byte
	addr        *net.UDPAddr
}

// delayedQueue implements container/heap.Interface as a min-heap keyed
// on releaseTime, mirroring the original's reversed-comparator
// BinaryHeap.
type delayedQueue []*delayedPacket

func (q delayedQueue) Len() int            { return len(q) }
func (q delayedQueue) Less(i, j int) bool  { return q[i].releaseTime.Before(q[j].releaseTime) }
func (q delayedQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *delayedQueue) Push(x interface{}) { *q = append(*q, x.(*delayedPacket)) }
func (q *delayedQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Simulator queues inbound and outbound packets behind per-address loss
// and latency configuration. The zero value is not usable; construct
// with New.
type Simulator struct {
	mu      sync.Mutex
	configs map[string]PacketLossSimulation
	inbound delayedQueue
	outbound delayedQueue
}

// New creates an empty Simulator with no per-address configuration.
func New() *Simulator {
	return &Simulator{configs: make(map[string]PacketLossSimulation)}
}

// SetConfig installs (or, if config.Enabled is false, removes) the
// simulated-conditions config for addr.
func (s *Simulator) SetConfig(addr *net.UDPAddr, config PacketLossSimulation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	if config.Enabled {
		s.configs[key] = config
	} else {
		delete(s.configs, key)
	}
}

// GetConfig returns the config installed for addr, if any.
func (s *Simulator) GetConfig(addr *net.UDPAddr) (PacketLossSimulation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[addr.String()]
	return cfg, ok
}

func (s *Simulator) shouldDrop(addr *net.UDPAddr) bool {
	cfg, ok := s.configs[addr.String()]
	if !ok {
		return false
	}
	return cfg.ShouldDrop()
}

func (s *Simulator) delayFor(addr *net.UDPAddr) time.Duration {
	cfg, ok := s.configs[addr.String()]
	if !ok {
		return 0
	}
	return time.Duration(cfg.DelayMs()) * time.Millisecond
}

// EnqueueInbound schedules a just-received datagram for delivery,
// applying loss and latency simulation for addr. It reports whether the
// packet was admitted (false means it was dropped).
func (s *Simulator) EnqueueInbound(payload []byte, addr *net.UDPAddr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldDrop(addr) {
		return false
	}
	delay := s.delayFor(addr)
	heap.Push(&s.inbound, &delayedPacket{releaseTime: time.Now().Add(delay), payload: payload, addr: addr})
	return true
}

// EnqueueOutbound schedules a datagram for send, applying loss and
// latency simulation for addr. It reports whether the packet was
// admitted (false means it was dropped).
func (s *Simulator) EnqueueOutbound(payload []byte, addr *net.UDPAddr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldDrop(addr) {
		return false
	}
	delay := s.delayFor(addr)
	heap.Push(&s.outbound, &delayedPacket{releaseTime: time.Now().Add(delay), payload: payload, addr: addr})
	return true
}

// ReleasedPacket is a datagram whose simulated delay has elapsed and
// which is now ready to be processed or sent.
type ReleasedPacket struct {
	Payload []byte
	Addr    *net.UDPAddr
}

// TakeInbound pops every inbound packet whose release time has
// elapsed, in release-time order.
func (s *Simulator) TakeInbound() []ReleasedPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return takeReady(&s.inbound)
}

// TakeOutbound pops every outbound packet whose release time has
// elapsed, in release-time order.
func (s *Simulator) TakeOutbound() []ReleasedPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return takeReady(&s.outbound)
}

func takeReady(q *delayedQueue) []ReleasedPacket {
	var out []ReleasedPacket
	now := time.Now()
	for q.Len() > 0 && (*q)[0].releaseTime.Compare(now) <= 0 {
		item := heap.Pop(q).(*delayedPacket)
		out = append(out, ReleasedPacket{Payload: item.payload, Addr: item.addr})
	}
	return out
}
