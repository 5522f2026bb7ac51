package lobby

import "testing"

func TestLobbyLifecycle(t *testing.T) {
	manager := NewManager()

	lobbyID := manager.CreateLobby(1, DefaultSettings())
	if err := manager.JoinLobby(lobbyID, 2, ""); err != nil {
		t.Fatalf("JoinLobby(2) error = %v, want nil", err)
	}
	if err := manager.JoinLobby(lobbyID, 1, ""); err == nil {
		t.Fatal("JoinLobby(1) should fail: already in a lobby")
	}

	lobby, _ := manager.Get(lobbyID)
	if len(lobby.Players) != 2 {
		t.Fatalf("len(lobby.Players) = %d, want 2", len(lobby.Players))
	}

	manager.LeaveLobby(1)
	lobby, _ = manager.Get(lobbyID)
	if lobby.Host != 2 {
		t.Fatalf("lobby.Host = %d, want 2", lobby.Host)
	}
}

func TestQueue(t *testing.T) {
	queue := NewQueue(4)

	queue.Enqueue(1)
	queue.Enqueue(2)
	queue.Enqueue(3)

	pos, ok := queue.Position(2)
	if !ok || pos != 2 {
		t.Fatalf("Position(2) = (%d, %v), want (2, true)", pos, ok)
	}
	if queue.PopMatch() != nil {
		t.Fatal("PopMatch() should be nil with only 3 queued")
	}

	queue.Enqueue(4)
	matchPlayers := queue.PopMatch()
	if len(matchPlayers) != 4 {
		t.Fatalf("PopMatch() returned %d players, want 4", len(matchPlayers))
	}
	for i, want := range []PlayerID{1, 2, 3, 4} {
		if matchPlayers[i] != want {
			t.Fatalf("matchPlayers[%d] = %d, want %d", i, matchPlayers[i], want)
		}
	}
	if !queue.IsEmpty() {
		t.Fatal("queue should be empty after PopMatch")
	}
}

func TestLobbyPassword(t *testing.T) {
	manager := NewManager()

	settings := DefaultSettings()
	settings.Password = "secret"
	settings.HasPassword = true

	lobbyID := manager.CreateLobby(1, settings)

	if err := manager.JoinLobby(lobbyID, 2, ""); err == nil {
		t.Fatal("JoinLobby with no password should fail")
	}
	if err := manager.JoinLobby(lobbyID, 2, "wrong"); err == nil {
		t.Fatal("JoinLobby with wrong password should fail")
	}
	if err := manager.JoinLobby(lobbyID, 2, "secret"); err != nil {
		t.Fatalf("JoinLobby with correct password should succeed, got %v", err)
	}
}
