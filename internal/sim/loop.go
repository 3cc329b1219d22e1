package sim

import (
	"sync"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectUnknownActor indicates the sender has not joined yet.
	CommandRejectUnknownActor = "unknown_actor"
	// CommandRejectInvalidCommand indicates the message does not map to a
	// simulation command.
	CommandRejectInvalidCommand = "invalid_command"

	// DefaultTickRate is the number of simulation steps per second.
	DefaultTickRate = 30

	LeaveReasonDisconnected = "disconnected"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// LoopTickContext describes the tick about to be simulated.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult is handed to AfterStep once a tick has been simulated.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
	Snapshot     Snapshot
	Commands     []Command
	Left         []string
	Summary      StepSummary
	ApplyErr     error
}

// LoopHooks are optional callbacks invoked on the loop goroutine, except
// OnQueueWarning and OnCommandDrop which run on the producer's goroutine.
type LoopHooks struct {
	Prepare        func(LoopTickContext)
	NextTick       func() uint64
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(int)
	OnCommandDrop  func(reason string, cmd Command)
}

// Loop coordinates command ingestion and the fixed-timestep simulation runner.
type Loop struct {
	core    EngineCore
	queue   *CommandQueue
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	leaveMu    sync.Mutex
	leaves     []string
	leaveIndex map[string]struct{}

	tick uint64
}

// NewLoop wraps the provided engine core with a staging queue and loop.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 1024
	}
	deps := core.Deps()
	return &Loop{
		core:       core,
		queue:      NewCommandQueue(cfg.CommandCapacity, cfg.PerActorLimit, deps.Metrics),
		hooks:      hooks,
		config:     cfg,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		leaveIndex: make(map[string]struct{}),
	}
}

// Deps returns the injected dependencies for the underlying engine.
func (l *Loop) Deps() Deps {
	if l == nil {
		return Deps{}
	}
	return l.core.Deps()
}

// Config reports the loop configuration after defaults.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Apply delegates to the underlying engine.
func (l *Loop) Apply(cmds []Command) error {
	if l == nil {
		return nil
	}
	return l.core.Apply(cmds)
}

// Step delegates to the underlying engine.
func (l *Loop) Step() StepSummary {
	if l == nil {
		return StepSummary{}
	}
	return l.core.Step()
}

// Snapshot delegates to the underlying engine.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	return l.core.Snapshot()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.queue.Len()
}

// DrainCommands clears the staged command queue without advancing the engine.
func (l *Loop) DrainCommands() []Command {
	if l == nil {
		return nil
	}
	return l.drainCommands()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	admission := l.queue.Stage(cmd)
	if !admission.Accepted {
		l.reportDrop(admission.Reason, cmd, admission.Drops)
		return false, admission.Reason
	}
	if step := l.config.WarningStep; step > 0 && admission.Depth >= step && admission.Depth%step == 0 {
		l.warnQueue(admission.Depth)
	}
	return true, ""
}

// Remove schedules the player for removal before the next step. Unlike
// Enqueue it never drops, and repeated calls for the same id collapse.
func (l *Loop) Remove(playerID string) {
	if l == nil || playerID == "" {
		return
	}
	l.leaveMu.Lock()
	defer l.leaveMu.Unlock()
	if _, queued := l.leaveIndex[playerID]; queued {
		return
	}
	l.leaveIndex[playerID] = struct{}{}
	l.leaves = append(l.leaves, playerID)
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	applyErr := l.core.Apply(commands)
	if applyErr != nil && l.logger != nil {
		l.logger.Printf("[sim] tick %d: %v", ctx.Tick, applyErr)
	}
	var left []string
	if leaves := l.drainLeaves(); len(leaves) > 0 {
		left = l.core.RemovePlayers(leaves, LeaveReasonDisconnected)
	}
	summary := l.core.Step()
	return LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Snapshot: l.core.Snapshot(),
		Commands: commands,
		Left:     left,
		Summary:  summary,
		ApplyErr: applyErr,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	budgetDuration := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(budgetDuration)
	defer ticker.Stop()

	deps := l.core.Deps()
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			var tick uint64
			if l.hooks.NextTick != nil {
				tick = l.hooks.NextTick()
			} else {
				l.tick++
				tick = l.tick
			}

			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budgetDuration
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	return l.queue.Drain()
}

func (l *Loop) drainLeaves() []string {
	l.leaveMu.Lock()
	defer l.leaveMu.Unlock()
	if len(l.leaves) == 0 {
		return nil
	}
	leaves := l.leaves
	l.leaves = nil
	l.leaveIndex = make(map[string]struct{}, len(leaves))
	return leaves
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count > 0 && count&(count-1) == 0 {
		if l.logger != nil {
			l.logger.Printf(
				"[backpressure] dropping command actor=%s type=%s reason=%s count=%d limit=%d",
				cmd.ActorID,
				cmd.Type,
				reason,
				count,
				l.config.PerActorLimit,
			)
		}
	}
}

// Ensure Loop implements Engine.
var _ Engine = (*Loop)(nil)

// Ensure we depend on telemetry interfaces only for metric plumbing.
var _ telemetryMetrics = (telemetry.Metrics)(nil)
