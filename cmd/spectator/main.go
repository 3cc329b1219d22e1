package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
)

const leaderboardRows = 10

type stateMsg struct {
	Tick        uint64
	Players     int
	Cells       int
	Food        int
	Leaderboard []sim.LeaderboardEntry
}

type initMsg struct{ ID string }

type disconnectedMsg struct{ Err error }

type TickMsg time.Time

type model struct {
	addr      string
	startTime time.Time
	selfID    string

	state     stateMsg
	frames    int
	lastFrame time.Time
	err       error

	updates chan tea.Msg
}

func initialModel(addr string, updates chan tea.Msg) model {
	return model{
		addr:      addr,
		startTime: time.Now(),
		updates:   updates,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		return m, tickCmd()
	case initMsg:
		m.selfID = msg.ID
		return m, waitForUpdate(m.updates)
	case stateMsg:
		m.state = msg
		m.frames++
		m.lastFrame = time.Now()
		return m, waitForUpdate(m.updates)
	case disconnectedMsg:
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server:   %s\n", m.addr)
	if m.err != nil {
		fmt.Fprintf(&b, "Status:   disconnected (%v)\n", m.err)
	} else if m.frames == 0 {
		b.WriteString("Status:   waiting for state\n")
	} else {
		fmt.Fprintf(&b, "Status:   live, %d frames\n", m.frames)
	}
	fmt.Fprintf(&b, "Tick:     %d\n", m.state.Tick)
	fmt.Fprintf(&b, "Players:  %d (%d cells)\n", m.state.Players, m.state.Cells)
	fmt.Fprintf(&b, "Food:     %d\n\n", m.state.Food)

	b.WriteString("Leaderboard:\n")
	if len(m.state.Leaderboard) == 0 {
		b.WriteString("  (empty)\n")
	}
	for i, entry := range sim.TopEntries(m.state.Leaderboard, leaderboardRows) {
		marker := " "
		if entry.ID == m.selfID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %2d. %-16s %8d\n", marker, i+1, entry.Name, entry.Score)
	}

	b.WriteString("\nPress q to quit.\n")
	return b.String()
}

func summarize(msg proto.ServerMessage) stateMsg {
	cells := 0
	for _, player := range msg.Players {
		cells += len(player.Cells)
	}
	return stateMsg{
		Tick:        msg.Tick,
		Players:     len(msg.Players),
		Cells:       cells,
		Food:        len(msg.Food),
		Leaderboard: msg.Leaderboard,
	}
}

// stream forwards decoded frames to updates. State frames are offered
// without blocking so a slow terminal only ever renders the latest tick.
func stream(conn *websocket.Conn, updates chan<- tea.Msg) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			updates <- disconnectedMsg{Err: err}
			return
		}
		msg, err := proto.DecodeServerMessage(payload, messageType == websocket.BinaryMessage)
		if err != nil {
			continue
		}
		switch msg.Type {
		case proto.TypeInit:
			updates <- initMsg{ID: msg.ID}
		case proto.TypeState:
			select {
			case updates <- summarize(msg):
			default:
			}
		}
	}
}

func dialURL(addr, codec string) (string, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/ws"
	}
	if codec != "" {
		query := parsed.Query()
		query.Set("codec", codec)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "Websocket endpoint of the game server")
	codec := flag.String("codec", "", "Frame codec to request (json or msgpack)")
	name := flag.String("name", "", "If set, join the game under this name and highlight the player")
	flag.Parse()

	if _, err := proto.ParseCodec(*codec); err != nil {
		log.Fatalf("invalid codec: %v", err)
	}
	target, err := dialURL(*addr, *codec)
	if err != nil {
		log.Fatalf("invalid address: %v", err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", target, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	if *name != "" {
		if err := conn.WriteJSON(proto.ClientMessage{Ver: proto.Version, Type: proto.TypeJoin, Name: *name}); err != nil {
			log.Fatalf("failed to join: %v", err)
		}
	}

	updates := make(chan tea.Msg, 1)
	go stream(conn, updates)

	p := tea.NewProgram(initialModel(target, updates), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "spectator: %v\n", err)
		os.Exit(1)
	}
}
