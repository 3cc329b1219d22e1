package sim

import (
	"math"
	"sort"
)

type LeaderboardEntry struct {
	ID    string `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Score int64  `json:"score" msgpack:"score"`
}

func cellMass(radius float64) float64 {
	return math.Pi * radius * radius
}

// BuildLeaderboard scores every player by total cell mass rounded to the
// nearest integer and orders them descending. Ties keep input order.
func BuildLeaderboard(players []Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, player := range players {
		entries = append(entries, LeaderboardEntry{
			ID:    player.ID,
			Name:  player.Name,
			Score: int64(math.Round(player.Mass())),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// TopEntries returns at most n leading entries.
func TopEntries(entries []LeaderboardEntry, n int) []LeaderboardEntry {
	if n < 0 || len(entries) <= n {
		return entries
	}
	return entries[:n]
}
