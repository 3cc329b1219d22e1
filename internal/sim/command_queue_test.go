package sim

import (
	"reflect"
	"testing"
)

type metricsRecorder struct {
	added  map[string]uint64
	stored map[string]uint64
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{added: make(map[string]uint64), stored: make(map[string]uint64)}
}

func (m *metricsRecorder) Add(key string, delta uint64)   { m.added[key] += delta }
func (m *metricsRecorder) Store(key string, value uint64) { m.stored[key] = value }

func commandTypes(cmds []Command) []CommandType {
	types := make([]CommandType, len(cmds))
	for i, cmd := range cmds {
		types[i] = cmd.Type
	}
	return types
}

func TestCommandQueueKeepsRepliesAcrossWraparound(t *testing.T) {
	queue := NewCommandQueue(3, 0, nil)

	// Advance the ring head so the next batch straddles the end of the slice.
	queue.Stage(Command{ActorID: "p1", Type: CommandMove, Move: &MoveCommand{X: 1, Y: 1}})
	queue.Stage(Command{ActorID: "p1", Type: CommandSplit})
	if drained := queue.Drain(); len(drained) != 2 {
		t.Fatalf("expected 2 commands in first batch, got %d", len(drained))
	}

	joinReply := make(chan JoinResult, 1)
	resetReply := make(chan ResetResult, 1)
	staged := []Command{
		{Type: CommandJoin, Join: &JoinCommand{Name: "Alice", Reply: joinReply}},
		{ActorID: "p1", Type: CommandEject},
		{Type: CommandReset, Reset: &ResetCommand{Settings: WorldSettings{Seed: "next"}, Reply: resetReply}},
	}
	for _, cmd := range staged {
		if admission := queue.Stage(cmd); !admission.Accepted {
			t.Fatalf("expected %s to be staged, got %+v", cmd.Type, admission)
		}
	}

	drained := queue.Drain()
	if got := commandTypes(drained); !reflect.DeepEqual(got, []CommandType{CommandJoin, CommandEject, CommandReset}) {
		t.Fatalf("unexpected order after wraparound: %v", got)
	}
	if drained[0].Join == nil || drained[0].Join.Name != "Alice" {
		t.Fatalf("join payload lost: %+v", drained[0])
	}

	drained[0].Join.Reply <- JoinResult{PlayerID: "abc"}
	if result := <-joinReply; result.PlayerID != "abc" {
		t.Fatalf("join reply did not reach the producer's channel")
	}
	drained[2].Reset.Reply <- ResetResult{Settings: WorldSettings{Seed: "next"}}
	if result := <-resetReply; result.Settings.Seed != "next" {
		t.Fatalf("reset reply did not reach the producer's channel")
	}

	if queue.Len() != 0 || queue.Drain() != nil {
		t.Fatalf("expected queue to be empty after drain")
	}
}

func TestCommandQueueThrottlesActorsButNotAnonymousCommands(t *testing.T) {
	queue := NewCommandQueue(8, 2, nil)

	for i := 0; i < 2; i++ {
		if admission := queue.Stage(Command{ActorID: "spammer", Type: CommandMove}); !admission.Accepted {
			t.Fatalf("expected move %d to be staged, got %+v", i, admission)
		}
	}
	for want := uint64(1); want <= 2; want++ {
		admission := queue.Stage(Command{ActorID: "spammer", Type: CommandSplit})
		if admission.Accepted || admission.Reason != CommandRejectQueueLimit || admission.Drops != want {
			t.Fatalf("expected queue_limit rejection #%d, got %+v", want, admission)
		}
	}
	for i := 0; i < 3; i++ {
		if admission := queue.Stage(Command{Type: CommandJoin, Join: &JoinCommand{}}); !admission.Accepted {
			t.Fatalf("joins carry no actor and should only be bounded by capacity, got %+v", admission)
		}
	}
	if queue.Staged("spammer") != 2 {
		t.Fatalf("expected 2 staged for spammer, got %d", queue.Staged("spammer"))
	}

	queue.Drain()
	if queue.Staged("spammer") != 0 {
		t.Fatalf("expected budget to reset after drain")
	}
	admission := queue.Stage(Command{ActorID: "spammer", Type: CommandMove})
	if !admission.Accepted || admission.Depth != 1 {
		t.Fatalf("expected fresh budget after drain, got %+v", admission)
	}
}

func TestCommandQueueRejectsWhenFull(t *testing.T) {
	metrics := newMetricsRecorder()
	queue := NewCommandQueue(2, 0, metrics)

	queue.Stage(Command{ActorID: "a", Type: CommandMove})
	queue.Stage(Command{Type: CommandReset, Reset: &ResetCommand{}})
	if metrics.stored[commandQueueDepthMetricKey] != 2 {
		t.Fatalf("expected depth metric 2, got %d", metrics.stored[commandQueueDepthMetricKey])
	}

	admission := queue.Stage(Command{ActorID: "a", Type: CommandEject})
	if admission.Accepted || admission.Reason != CommandRejectQueueFull || admission.Depth != 2 {
		t.Fatalf("expected queue_full rejection, got %+v", admission)
	}
	if queue.Staged("a") != 1 {
		t.Fatalf("rejected command should not consume the actor budget")
	}
	if metrics.added[commandQueueRejectedMetricKey] != 1 {
		t.Fatalf("expected one rejection metric, got %d", metrics.added[commandQueueRejectedMetricKey])
	}

	queue.Drain()
	if metrics.stored[commandQueueDepthMetricKey] != 0 {
		t.Fatalf("expected depth metric to drop to 0 after drain")
	}
}

func TestCommandQueueClampsCapacity(t *testing.T) {
	queue := NewCommandQueue(0, -3, nil)
	if queue.Capacity() != 1 {
		t.Fatalf("expected minimum capacity 1, got %d", queue.Capacity())
	}
	queue.Stage(Command{ActorID: "a"})
	if admission := queue.Stage(Command{ActorID: "b"}); admission.Reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full, got %+v", admission)
	}
}
