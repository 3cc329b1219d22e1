package world

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/parkjaeuk0210/nebulous-game/logging"
	logginggameplay "github.com/parkjaeuk0210/nebulous-game/logging/gameplay"
	logginglifecycle "github.com/parkjaeuk0210/nebulous-game/logging/lifecycle"
)

const (
	DefaultPlayerName = "Player"
	MaxNameLength     = 24
)

// NormalizeName trims whitespace and control characters, truncates to
// MaxNameLength runes and substitutes DefaultPlayerName for empty input.
func NormalizeName(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return DefaultPlayerName
	}
	runes := []rune(cleaned)
	if len(runes) > MaxNameLength {
		cleaned = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	return cleaned
}

// Join creates a player with a single starter cell at a random position
// inside the bounds and returns it.
func (w *World) Join(name string) *Player {
	if w == nil {
		return nil
	}
	radius := w.config.StartRadius
	cell := &Cell{
		X:      RandomRange(w.rng, radius, w.config.Width-radius),
		Y:      RandomRange(w.rng, radius, w.config.Height-radius),
		Radius: radius,
	}
	player := &Player{
		ID:    w.newPlayerID(),
		Name:  NormalizeName(name),
		Color: w.ids.PlayerColor(),
		Cells: []*Cell{cell},
	}
	w.AddPlayer(player)

	logginglifecycle.PlayerJoined(
		context.Background(),
		w.publisher,
		w.tick,
		logging.PlayerRef(player.ID),
		logginglifecycle.PlayerJoinedPayload{Name: player.Name, SpawnX: cell.X, SpawnY: cell.Y},
	)
	return player
}

// SetTarget overwrites the point the player's cells steer toward. Unknown
// ids are ignored.
func (w *World) SetTarget(id string, x, y float64) bool {
	player, ok := w.Player(id)
	if !ok {
		return false
	}
	player.Target = Vec2{X: x, Y: y}
	return true
}

// Split halves the mass of every cell above the split threshold and launches
// the new half toward the target. Splitting stops once the player reaches
// the cell cap. It returns the number of cells created.
func (w *World) Split(id string) int {
	player, ok := w.Player(id)
	if !ok {
		return 0
	}
	limit := w.config.MaxCells
	before := len(player.Cells)
	if before >= limit {
		return 0
	}

	speed := w.config.SplitSpeed
	for i := 0; i < before; i++ {
		if len(player.Cells) >= limit {
			break
		}
		cell := player.Cells[i]
		if cell.Radius <= w.config.SplitMinRadius {
			continue
		}
		cos, sin := headingToward(cell.X, cell.Y, player.Target)
		half := cell.Radius / math.Sqrt2

		cell.Radius = half
		cell.VX = -cos * speed
		cell.VY = -sin * speed

		player.Cells = append(player.Cells, &Cell{
			X:      cell.X,
			Y:      cell.Y,
			Radius: half,
			VX:     cos * speed,
			VY:     sin * speed,
		})
	}

	created := len(player.Cells) - before
	if created > 0 {
		logginggameplay.PlayerSplit(
			context.Background(),
			w.publisher,
			w.tick,
			logging.PlayerRef(player.ID),
			logginggameplay.SplitPayload{CellsBefore: before, CellsAfter: len(player.Cells)},
		)
	}
	return created
}

// Eject fires a pellet out of every cell above the eject threshold toward
// the target, shrinking the cell by the pellet's mass. It returns the number
// of pellets spawned.
func (w *World) Eject(id string) int {
	player, ok := w.Player(id)
	if !ok {
		return 0
	}

	pelletRadius := w.config.EjectRadius
	pelletMass := Mass(pelletRadius)
	speed := w.config.EjectSpeed
	pellets := 0
	for _, cell := range player.Cells {
		if cell.Radius <= w.config.EjectMinRadius {
			continue
		}
		remaining := cell.Mass() - pelletMass
		if remaining <= 0 {
			continue
		}
		cos, sin := headingToward(cell.X, cell.Y, player.Target)
		w.AddFood(&Food{
			ID:      w.newFoodID(),
			X:       Clamp(cell.X+cos*cell.Radius, 0, w.config.Width),
			Y:       Clamp(cell.Y+sin*cell.Radius, 0, w.config.Height),
			Radius:  pelletRadius,
			Color:   player.Color,
			VX:      cos * speed,
			VY:      sin * speed,
			Ejected: true,
		})
		cell.Radius = RadiusForMass(remaining)
		pellets++
	}

	if pellets > 0 {
		logginggameplay.MassEjected(
			context.Background(),
			w.publisher,
			w.tick,
			logging.PlayerRef(player.ID),
			logginggameplay.EjectPayload{Pellets: pellets, Mass: float64(pellets) * pelletMass},
		)
	}
	return pellets
}

// Leave removes the player. Unknown ids are ignored.
func (w *World) Leave(id, reason string) bool {
	if !w.RemovePlayer(id) {
		return false
	}
	logginglifecycle.PlayerDisconnected(
		context.Background(),
		w.publisher,
		w.tick,
		logging.PlayerRef(id),
		logginglifecycle.PlayerDisconnectedPayload{Reason: reason},
	)
	return true
}

// headingToward returns the unit direction from (x, y) to target. A target
// on top of the point yields the +X axis.
func headingToward(x, y float64, target Vec2) (float64, float64) {
	angle := math.Atan2(target.Y-y, target.X-x)
	return math.Cos(angle), math.Sin(angle)
}
