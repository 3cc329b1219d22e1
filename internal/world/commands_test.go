package world

import (
	"math"
	"strings"
	"testing"

	logginggameplay "github.com/parkjaeuk0210/nebulous-game/logging/gameplay"
	logginglifecycle "github.com/parkjaeuk0210/nebulous-game/logging/lifecycle"
)

func TestJoinCreatesStarterCell(t *testing.T) {
	pub := &recordingPublisher{}
	w := newTestWorld(t, Config{Width: 300, Height: 200}, pub)

	for i := 0; i < 50; i++ {
		player := w.Join("pilot")
		if len(player.Cells) != 1 {
			t.Fatalf("expected one starter cell, got %d", len(player.Cells))
		}
		cell := player.Cells[0]
		if cell.Radius != DefaultStartRadius {
			t.Fatalf("expected radius %f, got %f", DefaultStartRadius, cell.Radius)
		}
		if cell.X < cell.Radius || cell.X > 300-cell.Radius || cell.Y < cell.Radius || cell.Y > 200-cell.Radius {
			t.Fatalf("starter cell spawned outside bounds: %+v", cell)
		}
		if cell.VX != 0 || cell.VY != 0 {
			t.Fatalf("expected starter cell at rest, got %+v", cell)
		}
		if player.Target != (Vec2{}) {
			t.Fatalf("expected target at origin, got %+v", player.Target)
		}
		if !strings.HasPrefix(player.Color, "hsl(") {
			t.Fatalf("unexpected colour %q", player.Color)
		}
	}
	if w.PlayerCount() != 50 {
		t.Fatalf("expected 50 distinct players, got %d", w.PlayerCount())
	}
	if got := len(pub.ofType(logginglifecycle.EventPlayerJoined)); got != 50 {
		t.Fatalf("expected 50 join events, got %d", got)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "", want: DefaultPlayerName},
		{in: "   ", want: DefaultPlayerName},
		{in: "  neo  ", want: "neo"},
		{in: "tab\tbed", want: "tabbed"},
		{in: strings.Repeat("x", 40), want: strings.Repeat("x", MaxNameLength)},
		{in: strings.Repeat("가", MaxNameLength+3), want: strings.Repeat("가", MaxNameLength)},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetTargetIgnoresUnknownPlayer(t *testing.T) {
	w := newTestWorld(t, Config{}, nil)
	player := w.Join("known")
	if w.SetTarget("ghost", 10, 10) {
		t.Fatalf("expected unknown player to be ignored")
	}
	if !w.SetTarget(player.ID, -50, 9000) {
		t.Fatalf("expected known player target to be set")
	}
	if player.Target != (Vec2{X: -50, Y: 9000}) {
		t.Fatalf("target should be stored unclamped, got %+v", player.Target)
	}
}

func TestSplitHalvesMassAndLaunchesTowardTarget(t *testing.T) {
	pub := &recordingPublisher{}
	w := newTestWorld(t, Config{}, pub)
	player := placePlayer(w, "p", &Cell{X: 100, Y: 100, Radius: 40})
	player.Target = Vec2{X: 200, Y: 100}
	before := totalMass(player)

	if created := w.Split("p"); created != 1 {
		t.Fatalf("expected one new cell, got %d", created)
	}
	if len(player.Cells) != 2 {
		t.Fatalf("expected two cells, got %d", len(player.Cells))
	}
	want := 40 / math.Sqrt2
	for i, cell := range player.Cells {
		if math.Abs(cell.Radius-want) > 1e-6 {
			t.Fatalf("cell %d radius %f want %f", i, cell.Radius, want)
		}
		if cell.X != 100 || cell.Y != 100 {
			t.Fatalf("cell %d should start at the parent position, got (%f,%f)", i, cell.X, cell.Y)
		}
	}
	parent, child := player.Cells[0], player.Cells[1]
	if math.Abs(child.VX-20) > 1e-9 || math.Abs(child.VY) > 1e-9 {
		t.Fatalf("new cell should move east at 20, got (%f,%f)", child.VX, child.VY)
	}
	if math.Abs(parent.VX+20) > 1e-9 || math.Abs(parent.VY) > 1e-9 {
		t.Fatalf("parent should recoil west at 20, got (%f,%f)", parent.VX, parent.VY)
	}
	if after := totalMass(player); math.Abs(after-before) > 1e-6 {
		t.Fatalf("split changed mass: before %f after %f", before, after)
	}
	if len(pub.ofType(logginggameplay.EventPlayerSplit)) != 1 {
		t.Fatalf("expected one split event")
	}
}

func TestSplitStarterSizedCellTowardEast(t *testing.T) {
	w := newTestWorld(t, Config{}, nil)
	player := placePlayer(w, "p", &Cell{X: 500, Y: 500, Radius: 30})
	player.Target = Vec2{X: 600, Y: 500}

	if created := w.Split("p"); created != 1 {
		t.Fatalf("expected one new cell, got %d", created)
	}
	if len(player.Cells) != 2 {
		t.Fatalf("expected two cells, got %d", len(player.Cells))
	}
	want := 30 / math.Sqrt2
	for i, cell := range player.Cells {
		if math.Abs(cell.Radius-want) > 1e-9 {
			t.Fatalf("cell %d radius %f want %f", i, cell.Radius, want)
		}
	}
	west, east := player.Cells[0], player.Cells[1]
	if east.VX <= 0 || math.Abs(east.VY) > 1e-9 {
		t.Fatalf("new cell should head east, got (%f,%f)", east.VX, east.VY)
	}
	if west.VX >= 0 || math.Abs(west.VY) > 1e-9 {
		t.Fatalf("original cell should head west, got (%f,%f)", west.VX, west.VY)
	}
	if math.Abs(math.Hypot(east.VX, east.VY)-math.Hypot(west.VX, west.VY)) > 1e-9 {
		t.Fatalf("expected equal speeds, got east %f west %f", east.VX, west.VX)
	}
	if math.Abs(totalMass(player)-Mass(30)) > 1e-6 {
		t.Fatalf("split changed mass: %f", totalMass(player))
	}
}

func TestSplitSkipsSmallCells(t *testing.T) {
	w := newTestWorld(t, Config{}, nil)
	player := placePlayer(w, "p",
		&Cell{X: 100, Y: 100, Radius: 20},
		&Cell{X: 300, Y: 100, Radius: 21},
	)
	if created := w.Split("p"); created != 1 {
		t.Fatalf("expected only the r>20 cell to split, got %d", created)
	}
	if player.Cells[0].Radius != 20 {
		t.Fatalf("cell at threshold should be untouched, got %f", player.Cells[0].Radius)
	}
	if w.Split("ghost") != 0 {
		t.Fatalf("split of unknown player should be a no-op")
	}
}

func TestSplitNeverExceedsCellCap(t *testing.T) {
	w := newTestWorld(t, Config{}, nil)
	cells := make([]*Cell, 0, 15)
	for i := 0; i < 15; i++ {
		cells = append(cells, &Cell{X: float64(100 + i*100), Y: 500, Radius: 40})
	}
	player := placePlayer(w, "p", cells...)
	before := totalMass(player)

	if created := w.Split("p"); created != 1 {
		t.Fatalf("expected split to stop at the cap after one cell, got %d", created)
	}
	if len(player.Cells) != DefaultMaxCellsPerPlayer {
		t.Fatalf("expected %d cells, got %d", DefaultMaxCellsPerPlayer, len(player.Cells))
	}
	if math.Abs(totalMass(player)-before) > 1e-6 {
		t.Fatalf("split changed mass")
	}

	if created := w.Split("p"); created != 0 {
		t.Fatalf("split at cap should be a no-op, created %d", created)
	}
	if len(player.Cells) != DefaultMaxCellsPerPlayer {
		t.Fatalf("cell count changed at cap: %d", len(player.Cells))
	}
}

func TestEjectSpawnsPelletAndShrinksCell(t *testing.T) {
	pub := &recordingPublisher{}
	w := newTestWorld(t, Config{}, pub)
	player := placePlayer(w, "p", &Cell{X: 1000, Y: 1000, Radius: 20})
	player.Target = Vec2{X: 1000, Y: 0}

	if pellets := w.Eject("p"); pellets != 1 {
		t.Fatalf("expected one pellet, got %d", pellets)
	}
	cell := player.Cells[0]
	if want := math.Sqrt(400 - 64); math.Abs(cell.Radius-want) > 1e-9 {
		t.Fatalf("expected radius %f, got %f", want, cell.Radius)
	}

	items := w.FoodItems()
	if len(items) != 1 {
		t.Fatalf("expected one food item, got %d", len(items))
	}
	pellet := items[0]
	if !pellet.Ejected || pellet.Radius != 8 || pellet.Color != player.Color {
		t.Fatalf("unexpected pellet %+v", pellet)
	}
	if math.Abs(pellet.X-1000) > 1e-9 || math.Abs(pellet.Y-980) > 1e-9 {
		t.Fatalf("pellet should spawn on the rim toward the target, got (%f,%f)", pellet.X, pellet.Y)
	}
	if math.Abs(pellet.VX) > 1e-9 || math.Abs(pellet.VY+30) > 1e-9 {
		t.Fatalf("pellet should fly north at 30, got (%f,%f)", pellet.VX, pellet.VY)
	}
	if len(pub.ofType(logginggameplay.EventMassEjected)) != 1 {
		t.Fatalf("expected one eject event")
	}
}

func TestEjectSkipsCellsAtThreshold(t *testing.T) {
	w := newTestWorld(t, Config{}, nil)
	player := placePlayer(w, "p", &Cell{X: 100, Y: 100, Radius: 15})
	if pellets := w.Eject("p"); pellets != 0 {
		t.Fatalf("expected no pellets from r=15 cell, got %d", pellets)
	}
	if player.Cells[0].Radius != 15 || w.FoodCount() != 0 {
		t.Fatalf("eject below threshold mutated the world")
	}
	if w.Eject("ghost") != 0 {
		t.Fatalf("eject of unknown player should be a no-op")
	}
}

func TestLeaveRemovesPlayerOnce(t *testing.T) {
	pub := &recordingPublisher{}
	w := newTestWorld(t, Config{}, pub)
	player := w.Join("leaver")

	if !w.Leave(player.ID, "closed") {
		t.Fatalf("expected leave to remove the player")
	}
	if w.Leave(player.ID, "closed") {
		t.Fatalf("second leave should be a no-op")
	}
	if _, ok := w.Player(player.ID); ok {
		t.Fatalf("player still present after leave")
	}
	events := pub.ofType(logginglifecycle.EventPlayerDisconnected)
	if len(events) != 1 {
		t.Fatalf("expected one disconnect event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(logginglifecycle.PlayerDisconnectedPayload)
	if !ok || payload.Reason != "closed" {
		t.Fatalf("unexpected disconnect payload %+v", events[0].Payload)
	}
}
