package world

import (
	"context"

	logginglifecycle "github.com/parkjaeuk0210/nebulous-game/logging/lifecycle"
)

// StepResult summarizes one tick of world advancement.
type StepResult struct {
	Tick        uint64
	FoodEaten   int
	Absorptions int
	Merges      int
	Eliminated  []string
	FoodSpawned int
}

// Step advances the world by one tick: integrate motion, resolve contacts,
// drop eliminated players and top the food back up.
func (w *World) Step() StepResult {
	if w == nil {
		return StepResult{}
	}
	w.tick++
	w.Integrate()
	stats := w.ResolveCollisions()

	// Growth from eating or merging can push a cell past a wall.
	for _, player := range w.Players() {
		for _, cell := range player.Cells {
			w.containCell(cell)
		}
	}

	eliminated := w.removeEliminated()
	spawned := w.replenishFood()
	return StepResult{
		Tick:        w.tick,
		FoodEaten:   stats.FoodEaten,
		Absorptions: stats.Absorptions,
		Merges:      stats.Merges,
		Eliminated:  eliminated,
		FoodSpawned: spawned,
	}
}

// Reset rebuilds the world from cfg, dropping every player and pellet. The
// tick counter keeps running. It returns the ids of the dropped players.
func (w *World) Reset(cfg Config) []string {
	if w == nil {
		return nil
	}
	dropped := append([]string(nil), w.order...)
	normalized := cfg.normalized()

	w.config = normalized
	w.seed = normalized.Seed
	w.rng = w.subsystemRNG("world")
	w.mergeRNG = w.subsystemRNG("merge")
	if seeded, ok := w.ids.(*SeededIDs); ok {
		seeded.rng = w.subsystemRNG("ids")
	}
	w.players = make(map[string]*Player)
	w.order = nil
	w.food = make(map[string]*Food, normalized.FoodTarget())
	w.foodOrder = make([]*Food, 0, normalized.FoodTarget())
	w.foodDirty = false
	w.replenishFood()

	logginglifecycle.WorldReset(
		context.Background(),
		w.publisher,
		w.tick,
		logginglifecycle.WorldResetPayload{Seed: w.seed, FoodCount: len(w.food), Dropped: len(dropped)},
	)
	return dropped
}
