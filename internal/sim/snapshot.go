package sim

// Cell mirrors one player cell for transport.
type Cell struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"radius" msgpack:"radius"`
	VX     float64 `json:"vx" msgpack:"vx"`
	VY     float64 `json:"vy" msgpack:"vy"`
}

type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Player is the deep-copied view of a player exposed to non-simulation
// callers.
type Player struct {
	ID     string `json:"id" msgpack:"id"`
	Name   string `json:"name" msgpack:"name"`
	Color  string `json:"color" msgpack:"color"`
	Cells  []Cell `json:"cells" msgpack:"cells"`
	Target Point  `json:"target" msgpack:"target"`
}

// Mass sums π·r² over the player's cells.
func (p Player) Mass() float64 {
	total := 0.0
	for _, cell := range p.Cells {
		total += cellMass(cell.Radius)
	}
	return total
}

// Food mirrors a pellet. Velocity is only present for ejected pellets.
type Food struct {
	ID     string   `json:"id" msgpack:"id"`
	X      float64  `json:"x" msgpack:"x"`
	Y      float64  `json:"y" msgpack:"y"`
	Radius float64  `json:"radius" msgpack:"radius"`
	Color  string   `json:"color" msgpack:"color"`
	VX     *float64 `json:"vx,omitempty" msgpack:"vx,omitempty"`
	VY     *float64 `json:"vy,omitempty" msgpack:"vy,omitempty"`
}

// Snapshot captures the state exposed to non-simulation callers. Players and
// Food are in world iteration order.
type Snapshot struct {
	Tick        uint64             `json:"t"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	Players     []Player           `json:"players"`
	Food        []Food             `json:"food"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Player looks up a player by id.
func (s Snapshot) Player(id string) (Player, bool) {
	for _, player := range s.Players {
		if player.ID == id {
			return player, true
		}
	}
	return Player{}, false
}
