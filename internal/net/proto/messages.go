package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Client message type identifiers.
const (
	TypeJoin  = "join"
	TypeMove  = "move"
	TypeSplit = "split"
	TypeEject = "eject"
)

// Server message type identifiers.
const (
	TypeInit  = "init"
	TypeState = "state"
)

var (
	ErrUnsupportedVersion   = errors.New("unsupported protocol version")
	ErrUnknownType          = errors.New("unknown message type")
	ErrMissingCoordinates   = errors.New("move requires x and y")
	ErrNonFiniteCoordinates = errors.New("coordinates must be finite")
	ErrMalformed            = errors.New("malformed message")
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver  int      `json:"ver,omitempty" msgpack:"ver,omitempty"`
	Type string   `json:"type" msgpack:"type"`
	Name string   `json:"name,omitempty" msgpack:"name,omitempty"`
	X    *float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Y    *float64 `json:"y,omitempty" msgpack:"y,omitempty"`
}

// DecodeClientMessage converts a raw frame into a validated message. Binary
// frames are MessagePack, text frames JSON.
func DecodeClientMessage(payload []byte, binary bool) (ClientMessage, error) {
	var msg ClientMessage
	var err error
	if binary {
		err = msgpack.Unmarshal(payload, &msg)
	} else {
		err = json.Unmarshal(payload, &msg)
	}
	if err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	return msg, nil
}

// Validate checks the version, type and coordinates of a decoded message.
func (m ClientMessage) Validate() error {
	if m.Ver != 0 && m.Ver != Version {
		return fmt.Errorf("%w %d", ErrUnsupportedVersion, m.Ver)
	}
	switch m.Type {
	case TypeJoin, TypeSplit, TypeEject:
		return nil
	case TypeMove:
		if m.X == nil || m.Y == nil {
			return ErrMissingCoordinates
		}
		if !finite(*m.X) || !finite(*m.Y) {
			return ErrNonFiniteCoordinates
		}
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownType, m.Type)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RejectReason maps a decode error to the short reason recorded in logs and
// metrics.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrMissingCoordinates):
		return "missing_coordinates"
	case errors.Is(err, ErrNonFiniteCoordinates):
		return "non_finite"
	default:
		return "malformed"
	}
}

// ClientCommand converts a validated message into the simulation command it
// carries. Join is not a staged command of its own; callers route it through
// the hub.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeMove:
		if msg.X == nil || msg.Y == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandMove,
			Move: &sim.MoveCommand{X: *msg.X, Y: *msg.Y},
		}, true
	case TypeSplit:
		return sim.Command{Type: sim.CommandSplit}, true
	case TypeEject:
		return sim.Command{Type: sim.CommandEject}, true
	default:
		return sim.Command{}, false
	}
}

// InitMessage tells a client which player id it controls.
type InitMessage struct {
	Ver  int    `json:"ver" msgpack:"ver"`
	Type string `json:"type" msgpack:"type"`
	ID   string `json:"id" msgpack:"id"`
}

// StateMessage is the per-tick world broadcast.
type StateMessage struct {
	Ver         int                    `json:"ver" msgpack:"ver"`
	Type        string                 `json:"type" msgpack:"type"`
	Players     map[string]sim.Player  `json:"players" msgpack:"players"`
	Food        []sim.Food             `json:"food" msgpack:"food"`
	Leaderboard []sim.LeaderboardEntry `json:"leaderboard" msgpack:"leaderboard"`
	Tick        uint64                 `json:"t" msgpack:"t"`
}

// NewInitMessage builds the join acknowledgement for id.
func NewInitMessage(id string) InitMessage {
	return InitMessage{Ver: Version, Type: TypeInit, ID: id}
}

// NewStateMessage keys the snapshot's players by id for transport.
func NewStateMessage(snapshot sim.Snapshot) StateMessage {
	players := make(map[string]sim.Player, len(snapshot.Players))
	for _, player := range snapshot.Players {
		players[player.ID] = player
	}
	food := snapshot.Food
	if food == nil {
		food = []sim.Food{}
	}
	leaderboard := snapshot.Leaderboard
	if leaderboard == nil {
		leaderboard = []sim.LeaderboardEntry{}
	}
	return StateMessage{
		Ver:         Version,
		Type:        TypeState,
		Players:     players,
		Food:        food,
		Leaderboard: leaderboard,
		Tick:        snapshot.Tick,
	}
}

// ServerMessage is the union of every server-to-client message, used by
// clients that need to decode frames without knowing their type first.
type ServerMessage struct {
	Ver         int                    `json:"ver" msgpack:"ver"`
	Type        string                 `json:"type" msgpack:"type"`
	ID          string                 `json:"id,omitempty" msgpack:"id,omitempty"`
	Players     map[string]sim.Player  `json:"players,omitempty" msgpack:"players,omitempty"`
	Food        []sim.Food             `json:"food,omitempty" msgpack:"food,omitempty"`
	Leaderboard []sim.LeaderboardEntry `json:"leaderboard,omitempty" msgpack:"leaderboard,omitempty"`
	Tick        uint64                 `json:"t,omitempty" msgpack:"t,omitempty"`
}

// DecodeServerMessage parses an init or state frame.
func DecodeServerMessage(payload []byte, binary bool) (ServerMessage, error) {
	var msg ServerMessage
	var err error
	if binary {
		err = msgpack.Unmarshal(payload, &msg)
	} else {
		err = json.Unmarshal(payload, &msg)
	}
	if err != nil {
		return msg, fmt.Errorf("decode server message: %w", err)
	}
	if msg.Type != TypeInit && msg.Type != TypeState {
		return msg, fmt.Errorf("%w %q", ErrUnknownType, msg.Type)
	}
	return msg, nil
}

// Codec selects the frame encoding for one connection.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// ParseCodec accepts the ?codec= query value; empty means JSON.
func ParseCodec(raw string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(CodecJSON):
		return CodecJSON, nil
	case string(CodecMsgpack), "mpk":
		return CodecMsgpack, nil
	default:
		return "", fmt.Errorf("unknown codec %q", raw)
	}
}

// Binary reports whether frames must be sent as websocket binary messages.
func (c Codec) Binary() bool {
	return c == CodecMsgpack
}

// Marshal encodes v with the codec.
func (c Codec) Marshal(v any) ([]byte, error) {
	if c.Binary() {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// EncodeInit renders the init message for id.
func EncodeInit(codec Codec, id string) ([]byte, error) {
	return codec.Marshal(NewInitMessage(id))
}

// EncodeState renders the state broadcast for snapshot.
func EncodeState(codec Codec, snapshot sim.Snapshot) ([]byte, error) {
	return codec.Marshal(NewStateMessage(snapshot))
}
