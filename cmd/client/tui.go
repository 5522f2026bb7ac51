package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"duelnet-go/internal/client"
	"duelnet-go/internal/events"
	"duelnet-go/internal/wire"
)

// uiPhase is the text UI's own tiny state machine, separate from
// conn.State: it additionally covers the pre-connection address-entry
// screen that has no wire-protocol equivalent.
type uiPhase int

const (
	phaseAddressEntry uiPhase = iota
	phaseConnecting
	phaseDashboard
)

// tickMsg drives the periodic status refresh; bubbletea has no
// built-in polling primitive so the model re-arms its own tea.Tick.
type tickMsg time.Time

func pollTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// dialFunc performs the actual Client construction/handshake off the UI
// goroutine, supplied by main so this file stays free of server/transport
// concerns.
type dialFunc func(addr string) tea.Cmd

// model is the bubbletea program for duelnet-client's server browser:
// an address-entry prompt, then a live connection dashboard once a
// Client exists.
type model struct {
	phase uiPhase
	dial  dialFunc

	addrInput string
	errMsg    string

	cl *client.Client

	lobbies     []wire.LobbyInfo
	chatInput   string
	chatHistory []string
}

func newModel(initialAddr string, dial dialFunc) model {
	m := model{addrInput: initialAddr, phase: phaseAddressEntry, dial: dial}
	if initialAddr != "" {
		m.phase = phaseConnecting
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.phase == phaseConnecting {
		return tea.Batch(m.dial(m.addrInput), pollTick())
	}
	return nil
}

// clientAttachedMsg is sent by dial once the Client has been created
// and Connect/Run have been started, handing the live handle to the UI.
type clientAttachedMsg struct{ cl *client.Client }

// connectFailedMsg reports a Connect/New failure back to the UI.
type connectFailedMsg struct{ err error }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case clientAttachedMsg:
		m.cl = msg.cl
		m.phase = phaseDashboard
		return m, pollTick()

	case connectFailedMsg:
		m.errMsg = msg.err.Error()
		m.phase = phaseAddressEntry
		return m, nil

	case tickMsg:
		if m.cl != nil {
			select {
			case lobbies := <-m.cl.Lobbies:
				m.lobbies = lobbies
			default:
			}
			select {
			case evt := <-m.cl.Events:
				if evt.Kind == events.EventChatMessage {
					m.chatHistory = append(m.chatHistory, fmt.Sprintf("[%d] %s", evt.SenderID, evt.Message))
					if len(m.chatHistory) > 10 {
						m.chatHistory = m.chatHistory[1:]
					}
				}
			default:
			}
		}
		return m, pollTick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.phase == phaseDashboard {
			return m, tea.Quit
		}
	case tea.KeyEnter:
		switch m.phase {
		case phaseAddressEntry:
			if strings.TrimSpace(m.addrInput) == "" {
				return m, nil
			}
			m.phase = phaseConnecting
			return m, m.dial(m.addrInput)
		case phaseDashboard:
			if m.cl != nil && strings.TrimSpace(m.chatInput) != "" {
				m.cl.SendChatMessage(0, m.chatInput)
				m.chatInput = ""
			}
		}
		return m, nil
	case tea.KeyBackspace:
		switch m.phase {
		case phaseAddressEntry:
			m.addrInput = trimLast(m.addrInput)
		case phaseDashboard:
			m.chatInput = trimLast(m.chatInput)
		}
		return m, nil
	case tea.KeyRunes:
		switch m.phase {
		case phaseAddressEntry:
			m.addrInput += string(msg.Runes)
		case phaseDashboard:
			if string(msg.Runes) == "q" {
				return m, tea.Quit
			}
			m.chatInput += string(msg.Runes)
		}
		return m, nil
	}
	return m, nil
}

func trimLast(s string) string {
	if len(s) == 0 {
		return s
	}
	return s[:len(s)-1]
}

func (m model) View() string {
	switch m.phase {
	case phaseAddressEntry:
		var b strings.Builder
		b.WriteString("duelnet server browser\n\n")
		if m.errMsg != "" {
			b.WriteString("error: " + m.errMsg + "\n\n")
		}
		b.WriteString("server address> " + m.addrInput + "\n")
		b.WriteString("\n(enter to connect, ctrl-c to quit)\n")
		return b.String()

	case phaseConnecting:
		return fmt.Sprintf("connecting to %s...\n", m.addrInput)

	default:
		var b strings.Builder
		fmt.Fprintf(&b, "connected: client_id=%d rtt=%.1fms tick=%d\n\n",
			m.cl.ClientID(), m.cl.RTTMillis(), m.cl.EstimatedServerTick())

		b.WriteString("lobbies:\n")
		for _, l := range m.lobbies {
			fmt.Fprintf(&b, "  %s (%d/%d)\n", l.Name, l.PlayerCount, l.MaxPlayers)
		}
		if len(m.lobbies) == 0 {
			b.WriteString("  (none)\n")
		}

		b.WriteString("\nchat:\n")
		for _, line := range m.chatHistory {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\nsay> " + m.chatInput + "\n")
		b.WriteString("\n(q or esc to quit)\n")
		return b.String()
	}
}
