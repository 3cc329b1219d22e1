package intake

import (
	"testing"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
)

type fakeQueue struct {
	enqueueOK     bool
	enqueueReason string
	commands      []sim.Command
}

func (f *fakeQueue) Enqueue(cmd sim.Command) (bool, string) {
	f.commands = append(f.commands, cmd)
	if f.enqueueOK {
		return true, ""
	}
	if f.enqueueReason == "" {
		f.enqueueReason = sim.CommandRejectQueueLimit
	}
	return false, f.enqueueReason
}

func coords(x, y float64) (*float64, *float64) {
	return &x, &y
}

func TestStageClientCommandAcceptsMove(t *testing.T) {
	queue := &fakeQueue{enqueueOK: true}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{
		Engine:    queue,
		HasPlayer: func(id string) bool { return id == "player-1" },
		Tick:      func() uint64 { return 42 },
		Now:       func() time.Time { return issuedAt },
	}

	x, y := coords(10, -20)
	cmd, ok, reason := StageClientCommand(ctx, "player-1", proto.ClientMessage{Type: proto.TypeMove, X: x, Y: y})
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.ActorID != "player-1" {
		t.Fatalf("expected ActorID to be set, got %q", cmd.ActorID)
	}
	if cmd.OriginTick != 42 {
		t.Fatalf("expected OriginTick to be 42, got %d", cmd.OriginTick)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if cmd.Move == nil || cmd.Move.X != 10 || cmd.Move.Y != -20 {
		t.Fatalf("unexpected move payload %+v", cmd.Move)
	}
	if len(queue.commands) != 1 {
		t.Fatalf("expected queue to record command, got %d", len(queue.commands))
	}
}

func TestStageClientCommandSplitAndEject(t *testing.T) {
	for _, tc := range []struct {
		msgType string
		want    sim.CommandType
	}{
		{proto.TypeSplit, sim.CommandSplit},
		{proto.TypeEject, sim.CommandEject},
	} {
		t.Run(tc.msgType, func(t *testing.T) {
			queue := &fakeQueue{enqueueOK: true}
			cmd, ok, _ := StageClientCommand(CommandContext{Engine: queue}, "p", proto.ClientMessage{Type: tc.msgType})
			if !ok || cmd.Type != tc.want {
				t.Fatalf("expected %s command, got %+v", tc.want, cmd)
			}
			if cmd.IssuedAt.IsZero() {
				t.Fatalf("expected IssuedAt to default to now")
			}
		})
	}
}

func TestStageClientCommandRejectsJoinAndUnknownTypes(t *testing.T) {
	queue := &fakeQueue{enqueueOK: true}
	for _, msgType := range []string{proto.TypeJoin, "teleport"} {
		_, ok, reason := StageClientCommand(CommandContext{Engine: queue}, "p", proto.ClientMessage{Type: msgType})
		if ok || reason != sim.CommandRejectInvalidCommand {
			t.Fatalf("%s: expected invalid_command, got ok=%v reason=%q", msgType, ok, reason)
		}
	}
	if len(queue.commands) != 0 {
		t.Fatalf("rejected messages must not reach the queue")
	}
}

func TestStageClientCommandRequiresJoinedPlayer(t *testing.T) {
	queue := &fakeQueue{enqueueOK: true}
	_, ok, reason := StageClientCommand(CommandContext{Engine: queue}, "", proto.ClientMessage{Type: proto.TypeSplit})
	if ok || reason != sim.CommandRejectUnknownActor {
		t.Fatalf("expected unknown_actor before join, got ok=%v reason=%q", ok, reason)
	}

	ctx := CommandContext{Engine: queue, HasPlayer: func(string) bool { return false }}
	_, ok, reason = StageClientCommand(ctx, "gone", proto.ClientMessage{Type: proto.TypeSplit})
	if ok || reason != sim.CommandRejectUnknownActor {
		t.Fatalf("expected unknown_actor for missing player, got ok=%v reason=%q", ok, reason)
	}
}

func TestStageClientCommandPropagatesQueueRejection(t *testing.T) {
	queue := &fakeQueue{enqueueReason: sim.CommandRejectQueueFull}
	_, ok, reason := StageClientCommand(CommandContext{Engine: queue}, "p", proto.ClientMessage{Type: proto.TypeEject})
	if ok || reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected queue_full, got ok=%v reason=%q", ok, reason)
	}

	_, ok, reason = StageClientCommand(CommandContext{}, "p", proto.ClientMessage{Type: proto.TypeEject})
	if ok || reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected queue_full without a queue, got ok=%v reason=%q", ok, reason)
	}
}
