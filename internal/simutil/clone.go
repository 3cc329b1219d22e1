package simutil

import "github.com/parkjaeuk0210/nebulous-game/internal/sim"

// CloneSnapshot returns a deep copy of the provided snapshot, including every
// player's cells, ejected pellet velocities and the leaderboard.
func CloneSnapshot(snapshot sim.Snapshot) sim.Snapshot {
	return sim.Snapshot{
		Tick:        snapshot.Tick,
		Width:       snapshot.Width,
		Height:      snapshot.Height,
		Players:     ClonePlayers(snapshot.Players),
		Food:        CloneFood(snapshot.Food),
		Leaderboard: CloneLeaderboard(snapshot.Leaderboard),
	}
}

// ClonePlayers returns a deep copy of the provided player slice.
func ClonePlayers(players []sim.Player) []sim.Player {
	if len(players) == 0 {
		return nil
	}
	cloned := make([]sim.Player, len(players))
	for i, player := range players {
		cloned[i] = ClonePlayer(player)
	}
	return cloned
}

// ClonePlayer returns a deep copy of the provided player.
func ClonePlayer(player sim.Player) sim.Player {
	cloned := player
	cloned.Cells = CloneCells(player.Cells)
	return cloned
}

func CloneCells(cells []sim.Cell) []sim.Cell {
	if len(cells) == 0 {
		return nil
	}
	cloned := make([]sim.Cell, len(cells))
	copy(cloned, cells)
	return cloned
}

// CloneFood returns a deep copy of the provided pellets. Velocity pointers are
// reallocated so ejected pellets stay independent.
func CloneFood(food []sim.Food) []sim.Food {
	if len(food) == 0 {
		return nil
	}
	cloned := make([]sim.Food, len(food))
	for i, pellet := range food {
		cloned[i] = pellet
		cloned[i].VX = cloneFloat(pellet.VX)
		cloned[i].VY = cloneFloat(pellet.VY)
	}
	return cloned
}

func CloneLeaderboard(entries []sim.LeaderboardEntry) []sim.LeaderboardEntry {
	if len(entries) == 0 {
		return nil
	}
	cloned := make([]sim.LeaderboardEntry, len(entries))
	copy(cloned, entries)
	return cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
