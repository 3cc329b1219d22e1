package intake

import (
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
)

// Queue is the staging surface commands are pushed into.
type Queue interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine    Queue
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand converts a validated client message into a simulation
// command for playerID and stages it. Join is handled by the hub directly.
func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, sim.CommandRejectInvalidCommand
	}

	switch command.Type {
	case sim.CommandMove:
		if command.Move == nil {
			return zero, false, sim.CommandRejectInvalidCommand
		}
	case sim.CommandSplit, sim.CommandEject:
	default:
		return zero, false, sim.CommandRejectInvalidCommand
	}

	if playerID == "" {
		return zero, false, sim.CommandRejectUnknownActor
	}
	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, sim.CommandRejectUnknownActor
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
