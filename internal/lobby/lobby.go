// Package lobby implements pre-match lobby bookkeeping (creation,
// joining, password checks, host handoff) and a matchmaking queue —
// the lobby control messages spec.md's wire payload union mentions
// without elaborating on server-side semantics for.
package lobby

import "time"

type PlayerID = uint32
type ID = uint64

// State is the lifecycle stage of a Lobby.
type State int

const (
	StateWaiting State = iota
	StateCountdown
	StateInGame
	StateFinished
)

// Settings configures a Lobby at creation time.
type Settings struct {
	Name          string
	MaxPlayers    uint8
	Password      string
	HasPassword   bool
	MapName       string
	GameMode      string
	CountdownSecs uint8
	Public        bool
}

// DefaultSettings mirrors the original's Default impl.
func DefaultSettings() Settings {
	return Settings{
		Name:          "Game Lobby",
		MaxPlayers:    16,
		MapName:       "default",
		GameMode:      "deathmatch",
		CountdownSecs: 10,
		Public:        true,
	}
}

// Lobby is one pre-match room.
type Lobby struct {
	ID             ID
	Settings       Settings
	State          State
	Players        []PlayerID
	Host           PlayerID
	CreatedAt      time.Time
	countdownStart time.Time
	inCountdown    bool
}

func newLobby(id ID, host PlayerID, settings Settings) *Lobby {
	return &Lobby{
		ID:        id,
		Settings:  settings,
		State:     StateWaiting,
		Players:   []PlayerID{host},
		Host:      host,
		CreatedAt: time.Now(),
	}
}

func (l *Lobby) PlayerCount() uint8 { return uint8(len(l.Players)) }
func (l *Lobby) IsFull() bool       { return len(l.Players) >= int(l.Settings.MaxPlayers) }
func (l *Lobby) IsEmpty() bool      { return len(l.Players) == 0 }
func (l *Lobby) HasPassword() bool  { return l.Settings.HasPassword }

// AddPlayer adds player_id, reporting false if the lobby is full or the
// player is already in it.
func (l *Lobby) AddPlayer(playerID PlayerID) bool {
	if l.IsFull() {
		return false
	}
	for _, p := range l.Players {
		if p == playerID {
			return false
		}
	}
	l.Players = append(l.Players, playerID)
	return true
}

// RemovePlayer removes playerID, promoting the next remaining player to
// host if the departing player was the host.
func (l *Lobby) RemovePlayer(playerID PlayerID) bool {
	for i, p := range l.Players {
		if p != playerID {
			continue
		}
		l.Players = append(l.Players[:i], l.Players[i+1:]...)
		if l.Host == playerID && len(l.Players) > 0 {
			l.Host = l.Players[0]
		}
		return true
	}
	return false
}

func (l *Lobby) StartCountdown() {
	if l.State == StateWaiting {
		l.State = StateCountdown
		l.countdownStart = time.Now()
		l.inCountdown = true
	}
}

func (l *Lobby) CancelCountdown() {
	if l.State == StateCountdown {
		l.State = StateWaiting
		l.inCountdown = false
	}
}

// CountdownRemaining returns the seconds left in the countdown, or
// false if no countdown is active.
func (l *Lobby) CountdownRemaining() (uint8, bool) {
	if l.State != StateCountdown || !l.inCountdown {
		return 0, false
	}
	elapsed := uint8(time.Since(l.countdownStart).Seconds())
	if elapsed >= l.Settings.CountdownSecs {
		return 0, true
	}
	return l.Settings.CountdownSecs - elapsed, true
}

// Info is the public summary of a Lobby sent in lobby-listing messages.
type Info struct {
	ID          ID
	Name        string
	PlayerCount uint8
	MaxPlayers  uint8
	HasPassword bool
	MapName     string
	GameMode    string
}

func (l *Lobby) ToInfo() Info {
	return Info{
		ID:          l.ID,
		Name:        l.Settings.Name,
		PlayerCount: l.PlayerCount(),
		MaxPlayers:  l.Settings.MaxPlayers,
		HasPassword: l.HasPassword(),
		MapName:     l.Settings.MapName,
		GameMode:    l.Settings.GameMode,
	}
}
