package lobby

import "errors"

var (
	ErrAlreadyInLobby = errors.New("already in a lobby")
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrInvalidPassword = errors.New("invalid password")
)

// Manager owns every live Lobby and tracks which lobby each player is
// currently in.
type Manager struct {
	lobbies       map[ID]*Lobby
	playerLobbies map[PlayerID]ID
	nextLobbyID   ID
}

func NewManager() *Manager {
	return &Manager{
		lobbies:       make(map[ID]*Lobby),
		playerLobbies: make(map[PlayerID]ID),
	}
}

// CreateLobby creates a new Lobby hosted by host and returns its id.
func (m *Manager) CreateLobby(host PlayerID, settings Settings) ID {
	id := m.nextLobbyID
	m.nextLobbyID++

	m.lobbies[id] = newLobby(id, host, settings)
	m.playerLobbies[host] = id
	return id
}

// JoinLobby adds playerID to lobbyID, checking capacity and password.
func (m *Manager) JoinLobby(lobbyID ID, playerID PlayerID, password string) error {
	if _, ok := m.playerLobbies[playerID]; ok {
		return ErrAlreadyInLobby
	}

	lobby, ok := m.lobbies[lobbyID]
	if !ok {
		return ErrLobbyNotFound
	}
	if lobby.IsFull() {
		return ErrLobbyFull
	}
	if lobby.HasPassword() && password != lobby.Settings.Password {
		return ErrInvalidPassword
	}

	lobby.AddPlayer(playerID)
	m.playerLobbies[playerID] = lobbyID
	return nil
}

// LeaveLobby removes playerID from whatever lobby it's in, returning
// the lobby id it left (and ok=false if it wasn't in one). An emptied
// lobby is removed entirely.
func (m *Manager) LeaveLobby(playerID PlayerID) (ID, bool) {
	lobbyID, ok := m.playerLobbies[playerID]
	if !ok {
		return 0, false
	}
	delete(m.playerLobbies, playerID)

	lobby, ok := m.lobbies[lobbyID]
	if !ok {
		return lobbyID, true
	}
	lobby.RemovePlayer(playerID)
	if lobby.IsEmpty() {
		delete(m.lobbies, lobbyID)
	}
	return lobbyID, true
}

func (m *Manager) Get(lobbyID ID) (*Lobby, bool) {
	lobby, ok := m.lobbies[lobbyID]
	return lobby, ok
}

func (m *Manager) PlayerLobby(playerID PlayerID) (ID, bool) {
	id, ok := m.playerLobbies[playerID]
	return id, ok
}

// ListPublic returns info for every public lobby still in the Waiting
// state.
func (m *Manager) ListPublic() []Info {
	var out []Info
	for _, lobby := range m.lobbies {
		if lobby.Settings.Public && lobby.State == StateWaiting {
			out = append(out, lobby.ToInfo())
		}
	}
	return out
}

func (m *Manager) LobbyCount() int { return len(m.lobbies) }
