package sim

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type fakeCore struct {
	mu       sync.Mutex
	calls    []string
	applied  [][]Command
	removed  [][]string
	applyErr error
	steps    int
}

func (f *fakeCore) Deps() Deps { return Deps{} }

func (f *fakeCore) Apply(cmds []Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "apply")
	f.applied = append(f.applied, cmds)
	return f.applyErr
}

func (f *fakeCore) RemovePlayers(ids []string, reason string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove:"+reason)
	f.removed = append(f.removed, ids)
	return ids
}

func (f *fakeCore) Step() StepSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "step")
	f.steps++
	return StepSummary{FoodEaten: f.steps}
}

func (f *fakeCore) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "snapshot")
	return Snapshot{Tick: uint64(f.steps)}
}

func (f *fakeCore) stepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func TestAdvanceAppliesCommandsThenLeavesThenSteps(t *testing.T) {
	core := &fakeCore{}
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})

	loop.Enqueue(Command{ActorID: "a", Type: CommandMove, Move: &MoveCommand{X: 1}})
	loop.Enqueue(Command{ActorID: "b", Type: CommandSplit})
	loop.Remove("c")

	result := loop.Advance(LoopTickContext{Tick: 7})
	want := []string{"apply", "remove:" + LeaveReasonDisconnected, "step", "snapshot"}
	if !reflect.DeepEqual(core.calls, want) {
		t.Fatalf("unexpected call order %v want %v", core.calls, want)
	}
	if len(result.Commands) != 2 || result.Commands[0].ActorID != "a" || result.Commands[1].ActorID != "b" {
		t.Fatalf("commands not applied in arrival order: %+v", result.Commands)
	}
	if !reflect.DeepEqual(result.Left, []string{"c"}) {
		t.Fatalf("unexpected left players %v", result.Left)
	}
	if result.Tick != 7 || result.Snapshot.Tick != 1 || result.Summary.FoodEaten != 1 {
		t.Fatalf("unexpected step result %+v", result)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected queue drained, %d pending", loop.Pending())
	}
}

func TestAdvanceSkipsRemovalWhenNoLeaves(t *testing.T) {
	core := &fakeCore{}
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})
	loop.Advance(LoopTickContext{Tick: 1})
	want := []string{"apply", "step", "snapshot"}
	if !reflect.DeepEqual(core.calls, want) {
		t.Fatalf("unexpected call order %v want %v", core.calls, want)
	}
}

func TestAdvanceReportsApplyErrorWithoutHalting(t *testing.T) {
	core := &fakeCore{applyErr: errors.New("boom")}
	var logged []string
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})
	loop.logger = loggerFunc(func(format string, args ...any) { logged = append(logged, format) })

	result := loop.Advance(LoopTickContext{Tick: 3})
	if result.ApplyErr == nil {
		t.Fatalf("expected apply error to be surfaced")
	}
	if core.stepCount() != 1 {
		t.Fatalf("expected step to run despite apply error")
	}
	if len(logged) != 1 {
		t.Fatalf("expected apply error to be logged once, got %d", len(logged))
	}
}

type loggerFunc func(format string, args ...any)

func (f loggerFunc) Printf(format string, args ...any) { f(format, args...) }

func TestEnqueueThrottlesPerActor(t *testing.T) {
	var drops []string
	loop := NewLoop(&fakeCore{}, LoopConfig{PerActorLimit: 2}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) { drops = append(drops, reason) },
	})

	for i := 0; i < 2; i++ {
		if ok, reason := loop.Enqueue(Command{ActorID: "spammer", Type: CommandMove}); !ok {
			t.Fatalf("expected command %d to be accepted, got %s", i, reason)
		}
	}
	ok, reason := loop.Enqueue(Command{ActorID: "spammer", Type: CommandMove})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue_limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "other", Type: CommandMove}); !ok {
		t.Fatalf("other actors should not be throttled")
	}
	if ok, _ := loop.Enqueue(Command{Type: CommandJoin, Join: &JoinCommand{}}); !ok {
		t.Fatalf("commands without an actor should bypass per-actor limits")
	}
	if !reflect.DeepEqual(drops, []string{CommandRejectQueueLimit}) {
		t.Fatalf("unexpected drop hooks %v", drops)
	}

	loop.Advance(LoopTickContext{Tick: 1})
	if ok, _ := loop.Enqueue(Command{ActorID: "spammer", Type: CommandMove}); !ok {
		t.Fatalf("per-actor budget should reset every tick")
	}
}

func TestEnqueueRejectsWhenBufferFull(t *testing.T) {
	loop := NewLoop(&fakeCore{}, LoopConfig{CommandCapacity: 2}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "a"})
	loop.Enqueue(Command{ActorID: "b"})
	ok, reason := loop.Enqueue(Command{ActorID: "c"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestEnqueueWarnsAtStep(t *testing.T) {
	var warnings []int
	loop := NewLoop(&fakeCore{}, LoopConfig{WarningStep: 2}, LoopHooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})
	for i := 0; i < 5; i++ {
		loop.Enqueue(Command{Type: CommandMove})
	}
	if !reflect.DeepEqual(warnings, []int{2, 4}) {
		t.Fatalf("unexpected warnings %v", warnings)
	}
}

func TestRemoveCollapsesDuplicatesAndNeverDrops(t *testing.T) {
	core := &fakeCore{}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 1}, LoopHooks{})
	loop.Enqueue(Command{ActorID: "filler"})

	for i := 0; i < 3; i++ {
		loop.Remove("gone")
	}
	loop.Remove("")
	loop.Remove("also-gone")

	result := loop.Advance(LoopTickContext{Tick: 1})
	if !reflect.DeepEqual(result.Left, []string{"gone", "also-gone"}) {
		t.Fatalf("unexpected removals %v", result.Left)
	}

	loop.Remove("gone")
	result = loop.Advance(LoopTickContext{Tick: 2})
	if !reflect.DeepEqual(result.Left, []string{"gone"}) {
		t.Fatalf("expected id to be removable again after drain, got %v", result.Left)
	}
}

func TestRunStepsUntilStopped(t *testing.T) {
	core := &fakeCore{}
	results := make(chan LoopStepResult, 64)
	loop := NewLoop(core, LoopConfig{TickRate: 200}, LoopHooks{
		AfterStep: func(result LoopStepResult) {
			select {
			case results <- result:
			default:
			}
		},
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	var last uint64
	for i := 0; i < 3; i++ {
		select {
		case result := <-results:
			if result.Tick <= last {
				t.Fatalf("ticks not increasing: %d after %d", result.Tick, last)
			}
			if result.Budget != 5*time.Millisecond {
				t.Fatalf("unexpected budget %s", result.Budget)
			}
			last = result.Tick
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick %d", i)
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
}

func TestNewEngineResolvesCore(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, ErrMissingWorld) {
		t.Fatalf("expected ErrMissingWorld, got %v", err)
	}
	if _, err := NewEngine(struct{}{}); !errors.Is(err, ErrUnsupportedWorld) {
		t.Fatalf("expected ErrUnsupportedWorld, got %v", err)
	}
	loop, err := NewEngine(&fakeCore{}, WithLoopConfig(LoopConfig{TickRate: 10}))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	if loop.Config().TickRate != 10 {
		t.Fatalf("expected tick rate override, got %d", loop.Config().TickRate)
	}
	if loop.Config().CommandCapacity == 0 {
		t.Fatalf("expected default command capacity")
	}
}
