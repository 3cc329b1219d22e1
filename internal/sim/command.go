package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandJoin  CommandType = "Join"
	CommandMove  CommandType = "Move"
	CommandSplit CommandType = "Split"
	CommandEject CommandType = "Eject"
	CommandReset CommandType = "Reset"
)

// JoinCommand asks the world to spawn a new player. The assigned id is sent
// on Reply, which must be buffered.
type JoinCommand struct {
	Name  string          `json:"name"`
	Reply chan JoinResult `json:"-"`
}

type JoinResult struct {
	PlayerID string
	Err      error
}

// MoveCommand carries the world-space point the player's cells steer toward.
type MoveCommand struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorldSettings is the subset of world configuration exposed to operators.
// Zero values fall back to the world defaults.
type WorldSettings struct {
	Seed      string  `json:"seed"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	FoodCount int     `json:"foodCount"`
	MaxCells  int     `json:"maxCells"`
}

// ResetCommand rebuilds the world. Reply, when set, receives the normalized
// settings and must be buffered.
type ResetCommand struct {
	Settings WorldSettings    `json:"settings"`
	Reply    chan ResetResult `json:"-"`
}

type ResetResult struct {
	Settings WorldSettings
	Dropped  []string
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64        `json:"originTick"`
	ActorID    string        `json:"actorId"`
	Type       CommandType   `json:"type"`
	IssuedAt   time.Time     `json:"issuedAt"`
	Join       *JoinCommand  `json:"join,omitempty"`
	Move       *MoveCommand  `json:"move,omitempty"`
	Reset      *ResetCommand `json:"reset,omitempty"`
}
