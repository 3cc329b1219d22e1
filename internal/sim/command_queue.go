package sim

import "sync"

const (
	commandQueueDepthMetricKey    = "sim.command_queue_depth"
	commandQueueRejectedMetricKey = "sim.command_queue_rejected"
)

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// Admission is the outcome of staging one command.
type Admission struct {
	Accepted bool
	Reason   string
	// Depth is the number of staged commands after the attempt.
	Depth int
	// Drops counts how often the actor has been rejected since the queue was
	// created. Zero for anonymous commands.
	Drops uint64
}

// CommandQueue stages commands between producers and the simulation
// goroutine. Commands are kept in arrival order inside a fixed ring, and each
// actor may stage at most perActorLimit commands per drain. Commands without
// an actor (joins, resets) are only bounded by capacity.
type CommandQueue struct {
	mu            sync.Mutex
	ring          []Command
	head          int
	depth         int
	perActorLimit int
	staged        map[string]int
	drops         map[string]uint64
	metrics       telemetryMetrics
}

// NewCommandQueue builds a queue holding up to capacity commands. A
// perActorLimit of zero disables per-actor throttling.
func NewCommandQueue(capacity, perActorLimit int, metrics telemetryMetrics) *CommandQueue {
	if capacity < 1 {
		capacity = 1
	}
	if perActorLimit < 0 {
		perActorLimit = 0
	}
	return &CommandQueue{
		ring:          make([]Command, capacity),
		perActorLimit: perActorLimit,
		staged:        make(map[string]int),
		drops:         make(map[string]uint64),
		metrics:       metrics,
	}
}

func (q *CommandQueue) Capacity() int {
	if q == nil {
		return 0
	}
	return len(q.ring)
}

// Stage appends cmd unless the actor is over its per-drain budget or the
// ring is full.
func (q *CommandQueue) Stage(cmd Command) Admission {
	if q == nil {
		return Admission{Reason: CommandRejectQueueFull}
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	actor := cmd.ActorID
	switch {
	case actor != "" && q.perActorLimit > 0 && q.staged[actor] >= q.perActorLimit:
		return q.rejectLocked(actor, CommandRejectQueueLimit)
	case q.depth == len(q.ring):
		return q.rejectLocked(actor, CommandRejectQueueFull)
	}

	q.ring[(q.head+q.depth)%len(q.ring)] = cmd
	q.depth++
	if actor != "" {
		q.staged[actor]++
	}
	q.storeDepthLocked()
	return Admission{Accepted: true, Depth: q.depth}
}

// Drain hands every staged command to the caller in arrival order and
// restores each actor's budget.
func (q *CommandQueue) Drain() []Command {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.staged) > 0 {
		clear(q.staged)
	}
	if q.depth == 0 {
		return nil
	}
	out := make([]Command, q.depth)
	for i := range out {
		slot := (q.head + i) % len(q.ring)
		out[i] = q.ring[slot]
		q.ring[slot] = Command{}
	}
	// The next producer continues where this batch ended so slots are reused
	// round-robin.
	q.head = (q.head + q.depth) % len(q.ring)
	q.depth = 0
	q.storeDepthLocked()
	return out
}

// Len reports the number of staged commands.
func (q *CommandQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth
}

// Staged reports how many commands actor has queued since the last drain.
func (q *CommandQueue) Staged(actor string) int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.staged[actor]
}

func (q *CommandQueue) rejectLocked(actor, reason string) Admission {
	var drops uint64
	if actor != "" {
		drops = q.drops[actor] + 1
		q.drops[actor] = drops
	}
	if q.metrics != nil {
		q.metrics.Add(commandQueueRejectedMetricKey, 1)
	}
	return Admission{Reason: reason, Depth: q.depth, Drops: drops}
}

func (q *CommandQueue) storeDepthLocked() {
	if q.metrics == nil {
		return
	}
	q.metrics.Store(commandQueueDepthMetricKey, uint64(q.depth))
}
