package world

import (
	"context"

	"github.com/parkjaeuk0210/nebulous-game/logging"
	logginggameplay "github.com/parkjaeuk0210/nebulous-game/logging/gameplay"
	logginglifecycle "github.com/parkjaeuk0210/nebulous-game/logging/lifecycle"
)

// CollisionStats counts what a single ResolveCollisions pass changed.
type CollisionStats struct {
	FoodEaten   int
	Absorptions int
	Merges      int
}

// ResolveCollisions runs the three contact passes in order: food
// consumption, cross-player absorption and same-player merging.
func (w *World) ResolveCollisions() CollisionStats {
	if w == nil {
		return CollisionStats{}
	}
	players := w.Players()
	return CollisionStats{
		FoodEaten:   w.consumeFood(players),
		Absorptions: w.absorbCells(players),
		Merges:      w.mergeCells(players),
	}
}

func (w *World) consumeFood(players []*Player) int {
	w.compactFood()
	if len(w.foodOrder) == 0 {
		return 0
	}
	eaten := 0
	for _, player := range players {
		for _, cell := range player.Cells {
			for _, food := range w.foodOrder {
				if !w.foodLive(food) {
					continue
				}
				if !overlaps(cell.X, cell.Y, cell.Radius, food.X, food.Y, food.Radius) {
					continue
				}
				w.RemoveFood(food.ID)
				cell.Radius = CombinedRadius(cell.Radius, food.Radius)
				eaten++
			}
		}
	}
	w.compactFood()
	return eaten
}

// absorbCells evaluates every ordered pair of distinct players, so each
// unordered pair is visited twice per tick. Cells are walked from the back
// so removals never shift an index still to be visited.
func (w *World) absorbCells(players []*Player) int {
	ratio := w.config.AbsorbRatio
	absorbed := 0
	for i, p1 := range players {
		for j, p2 := range players {
			if i == j {
				continue
			}
			for ci := len(p1.Cells) - 1; ci >= 0; ci-- {
				for cj := len(p2.Cells) - 1; cj >= 0; cj-- {
					c1 := p1.Cells[ci]
					c2 := p2.Cells[cj]
					if !overlaps(c1.X, c1.Y, c1.Radius, c2.X, c2.Y, c2.Radius) {
						continue
					}
					if c1.Radius > c2.Radius*ratio {
						w.reportAbsorb(p1, p2, c1.Radius, c2.Radius)
						c1.Radius = CombinedRadius(c1.Radius, c2.Radius)
						p2.Cells = removeCell(p2.Cells, cj)
						absorbed++
					} else if c2.Radius > c1.Radius*ratio {
						w.reportAbsorb(p2, p1, c2.Radius, c1.Radius)
						c2.Radius = CombinedRadius(c1.Radius, c2.Radius)
						p1.Cells = removeCell(p1.Cells, ci)
						absorbed++
						break
					}
				}
			}
		}
	}
	return absorbed
}

func (w *World) reportAbsorb(winner, loser *Player, winnerRadius, loserRadius float64) {
	logginggameplay.CellAbsorbed(
		context.Background(),
		w.publisher,
		w.tick,
		logging.PlayerRef(winner.ID),
		logging.PlayerRef(loser.ID),
		logginggameplay.AbsorbPayload{
			WinnerRadius: winnerRadius,
			LoserRadius:  loserRadius,
			ResultRadius: CombinedRadius(winnerRadius, loserRadius),
		},
	)
}

// mergeCells fuses touching cells of the same player with a small per-pair
// probability. The merge RNG is only consulted for touching pairs.
func (w *World) mergeCells(players []*Player) int {
	merges := 0
	for _, player := range players {
		if len(player.Cells) <= 1 {
			continue
		}
		for i := 0; i < len(player.Cells); i++ {
			for j := i + 1; j < len(player.Cells); j++ {
				c1 := player.Cells[i]
				c2 := player.Cells[j]
				if distance(c1.X, c1.Y, c2.X, c2.Y) >= c1.Radius+c2.Radius {
					continue
				}
				if w.mergeRNG.Float64() >= w.config.MergeChance {
					continue
				}
				m1, m2 := c1.Mass(), c2.Mass()
				c1.X = (c1.X*m1 + c2.X*m2) / (m1 + m2)
				c1.Y = (c1.Y*m1 + c2.Y*m2) / (m1 + m2)
				c1.Radius = RadiusForMass(m1 + m2)
				player.Cells = removeCell(player.Cells, j)
				merges++

				logginggameplay.CellsMerged(
					context.Background(),
					w.publisher,
					w.tick,
					logging.PlayerRef(player.ID),
					logginggameplay.MergePayload{ResultRadius: c1.Radius, CellsLeft: len(player.Cells)},
				)
				break
			}
		}
	}
	return merges
}

// removeEliminated drops every player left without cells and returns their
// ids in join order.
func (w *World) removeEliminated() []string {
	var eliminated []string
	for _, player := range w.Players() {
		if len(player.Cells) > 0 {
			continue
		}
		w.RemovePlayer(player.ID)
		eliminated = append(eliminated, player.ID)
		logginglifecycle.PlayerEliminated(context.Background(), w.publisher, w.tick, logging.PlayerRef(player.ID))
	}
	return eliminated
}
