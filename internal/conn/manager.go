package conn

import (
	"net"
	"sync"
	"time"
)

// ConnectionManager owns every ClientConnection, keyed by both remote
// address (for inbound routing) and assigned client id (for outbound
// lookups by game logic). Mirrors the teacher's pattern of a single
// manager type fronting a map of per-peer session objects guarded by its
// own mutex, distinct from each session's internal locking.
type ConnectionManager struct {
	mu          sync.RWMutex
	byAddr      map[string]*ClientConnection
	byClientID  map[uint32]*ClientConnection
	nextClientID uint32
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byAddr:       make(map[string]*ClientConnection),
		byClientID:   make(map[uint32]*ClientConnection),
		nextClientID: 1,
	}
}

// GetByAddr looks up an existing connection for a remote address.
func (m *ConnectionManager) GetByAddr(addr *net.UDPAddr) (*ClientConnection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byAddr[addr.String()]
	return c, ok
}

// GetByClientID looks up an existing connection by its assigned client id.
func (m *ConnectionManager) GetByClientID(id uint32) (*ClientConnection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byClientID[id]
	return c, ok
}

// GetOrCreatePending returns the in-progress connection for addr, creating
// a fresh one (in StateConnecting) seeded with clientSalt if none exists
// yet. The second return value is true only when a new connection was
// created by this call.
func (m *ConnectionManager) GetOrCreatePending(addr *net.UDPAddr, clientSalt uint64) (*ClientConnection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := addr.String()
	if existing, ok := m.byAddr[key]; ok {
		return existing, false
	}
	cc := NewClientConnection(addr, clientSalt)
	m.byAddr[key] = cc
	return cc, true
}

// AssignClientID finalizes a connection's identity once the handshake
// completes, registering it for client-id lookups.
func (m *ConnectionManager) AssignClientID(cc *ClientConnection) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextClientID
	m.nextClientID++
	cc.ClientID = id
	m.byClientID[id] = cc
	return id
}

// Remove drops a connection from both indices.
func (m *ConnectionManager) Remove(cc *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byAddr, cc.Addr.String())
	delete(m.byClientID, cc.ClientID)
}

// All returns a snapshot slice of every currently tracked connection.
func (m *ConnectionManager) All() []*ClientConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ClientConnection, 0, len(m.byAddr))
	for _, c := range m.byAddr {
		out = append(out, c)
	}
	return out
}

// CleanupTimedOut removes and returns every connection that has exceeded
// timeout since its last received packet.
func (m *ConnectionManager) CleanupTimedOut(timeout time.Duration) []*ClientConnection {
	m.mu.Lock()
	defer m.mu.Unlock()
	var timedOut []*ClientConnection
	for key, c := range m.byAddr {
		if c.IsTimedOut(timeout) {
			timedOut = append(timedOut, c)
			delete(m.byAddr, key)
			delete(m.byClientID, c.ClientID)
		}
	}
	return timedOut
}

// Count returns the number of tracked connections.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byAddr)
}
