package world

import "math"

// CellSpeed is the steering acceleration magnitude for a cell of the given
// radius before the acceleration factor is applied. Larger cells are slower,
// down to the configured floor.
func (cfg Config) CellSpeed(radius float64) float64 {
	return math.Max(cfg.MinSpeed, cfg.BaseSpeed-radius/cfg.SpeedRadiusDivisor)
}

// Integrate advances every cell and every ejected pellet by one tick.
func (w *World) Integrate() {
	if w == nil {
		return
	}
	for _, id := range w.order {
		player := w.players[id]
		if player == nil {
			continue
		}
		for _, cell := range player.Cells {
			w.moveCell(cell, player.Target)
		}
	}
	w.compactFood()
	for _, food := range w.foodOrder {
		if food.Ejected {
			w.moveFood(food)
		}
	}
}

func (w *World) moveCell(cell *Cell, target Vec2) {
	cfg := w.config
	dx := target.X - cell.X
	dy := target.Y - cell.Y
	dist := math.Hypot(dx, dy)
	if dist > cfg.MoveEpsilon {
		speed := cfg.CellSpeed(cell.Radius)
		cell.VX += dx / dist * speed * cfg.Acceleration
		cell.VY += dy / dist * speed * cfg.Acceleration
	}

	cell.VX *= cfg.CellFriction
	cell.VY *= cfg.CellFriction

	cell.X += cell.VX
	cell.Y += cell.VY
	w.containCell(cell)
}

func (w *World) containCell(cell *Cell) {
	cell.X = Clamp(cell.X, cell.Radius, w.config.Width-cell.Radius)
	cell.Y = Clamp(cell.Y, cell.Radius, w.config.Height-cell.Radius)
}

func (w *World) moveFood(food *Food) {
	food.VX *= w.config.FoodFriction
	food.VY *= w.config.FoodFriction

	food.X = Clamp(food.X+food.VX, 0, w.config.Width)
	food.Y = Clamp(food.Y+food.VY, 0, w.config.Height)
}
