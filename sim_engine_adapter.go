package nebulous

import (
	"context"
	"errors"
	"fmt"

	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
	"github.com/parkjaeuk0210/nebulous-game/internal/world"
	"github.com/parkjaeuk0210/nebulous-game/logging"
	loggingsimulation "github.com/parkjaeuk0210/nebulous-game/logging/simulation"
)

// worldEngineAdapter drives a world.World on behalf of sim.Loop. Every
// method runs on the loop goroutine.
type worldEngineAdapter struct {
	world *world.World
	deps  sim.Deps
	// base carries the tuning constants that resets keep.
	base world.Config
}

func newWorldEngineAdapter(w *world.World, deps sim.Deps) *worldEngineAdapter {
	return &worldEngineAdapter{world: w, deps: deps, base: w.Config()}
}

func (a *worldEngineAdapter) Deps() sim.Deps {
	if a == nil {
		return sim.Deps{}
	}
	return a.deps
}

// Apply executes staged commands in arrival order. A command that fails is
// reported and skipped; the rest still run.
func (a *worldEngineAdapter) Apply(cmds []sim.Command) error {
	if a == nil || a.world == nil {
		return nil
	}
	var errs []error
	for _, cmd := range cmds {
		if err := a.applyCommand(cmd); err != nil {
			errs = append(errs, err)
			loggingsimulation.CommandFailed(
				context.Background(),
				a.world.Publisher(),
				a.world.Tick(),
				logging.PlayerRef(cmd.ActorID),
				loggingsimulation.CommandFailedPayload{CommandType: string(cmd.Type), Error: err.Error()},
			)
			a.addMetric("sim.commands.failed", 1)
		}
	}
	return errors.Join(errs...)
}

func (a *worldEngineAdapter) applyCommand(cmd sim.Command) error {
	switch cmd.Type {
	case sim.CommandJoin:
		if cmd.Join == nil {
			return fmt.Errorf("join command missing payload")
		}
		player := a.world.Join(cmd.Join.Name)
		if cmd.Join.Reply != nil {
			select {
			case cmd.Join.Reply <- sim.JoinResult{PlayerID: player.ID}:
			default:
			}
		}
	case sim.CommandMove:
		if cmd.Move == nil {
			return fmt.Errorf("move command for %s missing payload", cmd.ActorID)
		}
		if !a.world.SetTarget(cmd.ActorID, cmd.Move.X, cmd.Move.Y) {
			a.ignored(cmd)
		}
	case sim.CommandSplit:
		if _, ok := a.world.Player(cmd.ActorID); !ok {
			a.ignored(cmd)
			return nil
		}
		a.world.Split(cmd.ActorID)
	case sim.CommandEject:
		if _, ok := a.world.Player(cmd.ActorID); !ok {
			a.ignored(cmd)
			return nil
		}
		a.world.Eject(cmd.ActorID)
	case sim.CommandReset:
		if cmd.Reset == nil {
			return fmt.Errorf("reset command missing payload")
		}
		dropped := a.world.Reset(configFromSettings(a.base, cmd.Reset.Settings))
		if cmd.Reset.Reply != nil {
			select {
			case cmd.Reset.Reply <- sim.ResetResult{Settings: settingsFromConfig(a.world.Config()), Dropped: dropped}:
			default:
			}
		}
	default:
		return fmt.Errorf("unsupported command type %q", cmd.Type)
	}
	return nil
}

func (a *worldEngineAdapter) ignored(cmd sim.Command) {
	loggingsimulation.CommandIgnored(
		context.Background(),
		a.world.Publisher(),
		a.world.Tick(),
		logging.PlayerRef(cmd.ActorID),
		loggingsimulation.CommandIgnoredPayload{CommandType: string(cmd.Type)},
	)
	a.addMetric("sim.commands.ignored", 1)
}

func (a *worldEngineAdapter) RemovePlayers(ids []string, reason string) []string {
	if a == nil || a.world == nil {
		return nil
	}
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if a.world.Leave(id, reason) {
			removed = append(removed, id)
		}
	}
	return removed
}

func (a *worldEngineAdapter) Step() sim.StepSummary {
	if a == nil || a.world == nil {
		return sim.StepSummary{}
	}
	result := a.world.Step()
	return sim.StepSummary{
		FoodEaten:   result.FoodEaten,
		FoodSpawned: result.FoodSpawned,
		Absorptions: result.Absorptions,
		Merges:      result.Merges,
		Eliminated:  result.Eliminated,
	}
}

// Snapshot deep-copies the world so the result can cross goroutines.
func (a *worldEngineAdapter) Snapshot() sim.Snapshot {
	if a == nil || a.world == nil {
		return sim.Snapshot{}
	}
	width, height := a.world.Dimensions()
	players := simPlayersFromWorld(a.world.Players())
	return sim.Snapshot{
		Tick:        a.world.Tick(),
		Width:       width,
		Height:      height,
		Players:     players,
		Food:        simFoodFromWorld(a.world.FoodItems()),
		Leaderboard: sim.BuildLeaderboard(players),
	}
}

func (a *worldEngineAdapter) addMetric(key string, delta uint64) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.Add(key, delta)
	}
}

func simPlayersFromWorld(players []*world.Player) []sim.Player {
	out := make([]sim.Player, 0, len(players))
	for _, player := range players {
		if player == nil {
			continue
		}
		cells := make([]sim.Cell, 0, len(player.Cells))
		for _, cell := range player.Cells {
			cells = append(cells, sim.Cell{
				X:      cell.X,
				Y:      cell.Y,
				Radius: cell.Radius,
				VX:     cell.VX,
				VY:     cell.VY,
			})
		}
		out = append(out, sim.Player{
			ID:     player.ID,
			Name:   player.Name,
			Color:  player.Color,
			Cells:  cells,
			Target: sim.Point{X: player.Target.X, Y: player.Target.Y},
		})
	}
	return out
}

func simFoodFromWorld(food []*world.Food) []sim.Food {
	out := make([]sim.Food, 0, len(food))
	for _, item := range food {
		if item == nil {
			continue
		}
		converted := sim.Food{
			ID:     item.ID,
			X:      item.X,
			Y:      item.Y,
			Radius: item.Radius,
			Color:  item.Color,
		}
		if item.Ejected {
			vx, vy := item.VX, item.VY
			converted.VX = &vx
			converted.VY = &vy
		}
		out = append(out, converted)
	}
	return out
}

// settingsFromConfig reports the operator-facing subset of cfg. A world
// without food reports world.NoFood so the value survives another reset.
func settingsFromConfig(cfg world.Config) sim.WorldSettings {
	return sim.WorldSettings{
		Seed:      cfg.Seed,
		Width:     cfg.Width,
		Height:    cfg.Height,
		FoodCount: cfg.FoodCount,
		MaxCells:  cfg.MaxCells,
	}
}

func configFromSettings(base world.Config, settings sim.WorldSettings) world.Config {
	cfg := base
	cfg.Seed = settings.Seed
	cfg.Width = settings.Width
	cfg.Height = settings.Height
	cfg.FoodCount = settings.FoodCount
	cfg.MaxCells = settings.MaxCells
	return cfg.Normalized()
}
