package nebulous

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/net/proto"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
	"github.com/parkjaeuk0210/nebulous-game/internal/simutil"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/internal/world"
	"github.com/parkjaeuk0210/nebulous-game/logging"
	loggingnetwork "github.com/parkjaeuk0210/nebulous-game/logging/network"
	loggingsimulation "github.com/parkjaeuk0210/nebulous-game/logging/simulation"
)

var (
	// ErrCommandRejected wraps the queue reason when a command cannot be staged.
	ErrCommandRejected = errors.New("command rejected")
	// ErrSubscriberClosed is returned when sending to a removed subscriber.
	ErrSubscriberClosed = errors.New("subscriber closed")
)

// StepRecorder receives every completed tick on the simulation goroutine.
type StepRecorder interface {
	Record(result sim.LoopStepResult)
}

// HubConfig wires the hub's world, loop and ambient dependencies.
type HubConfig struct {
	World          world.Config
	Loop           sim.LoopConfig
	Logger         telemetry.Logger
	Publisher      logging.Publisher
	Metrics        *logging.Metrics
	Clock          logging.Clock
	IDs            world.IDSource
	Recorder       StepRecorder
	OutboundBuffer int
	JoinTimeout    time.Duration
}

// DefaultHubConfig returns the standard 30 Hz configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		World: world.DefaultConfig(),
		Loop: sim.LoopConfig{
			TickRate:        sim.DefaultTickRate,
			CommandCapacity: defaultCommandQueue,
			PerActorLimit:   defaultPerActorLimit,
			WarningStep:     defaultQueueWarning,
		},
		OutboundBuffer: defaultOutboundBuffer,
		JoinTimeout:    defaultJoinTimeout,
	}
}

// Hub owns the simulation loop and every connected subscriber.
type Hub struct {
	loop      *sim.Loop
	engine    *worldEngineAdapter
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   *logging.Metrics
	telemetry *telemetryCounters
	recorder  StepRecorder

	outboundBuffer int
	joinTimeout    time.Duration

	mu          sync.Mutex
	subscribers map[uint64]*Subscriber
	nextSub     atomic.Uint64

	latest   atomic.Pointer[sim.Snapshot]
	settings atomic.Pointer[sim.WorldSettings]

	// Touched only from AfterStep.
	overrunStreak uint64

	done     chan struct{}
	doneOnce sync.Once
}

// NewHubWithConfig builds the world and wraps it in a simulation loop. The
// loop does not run until RunSimulation is called.
func NewHubWithConfig(cfg HubConfig) (*Hub, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &logging.Metrics{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	outbound := cfg.OutboundBuffer
	if outbound <= 0 {
		outbound = defaultOutboundBuffer
	}
	joinTimeout := cfg.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}

	w, err := world.New(cfg.World, world.Deps{Publisher: publisher, IDs: cfg.IDs})
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}

	hub := &Hub{
		logger:         logger,
		publisher:      publisher,
		metrics:        metrics,
		telemetry:      newTelemetryCounters(),
		recorder:       cfg.Recorder,
		outboundBuffer: outbound,
		joinTimeout:    joinTimeout,
		subscribers:    make(map[uint64]*Subscriber),
		done:           make(chan struct{}),
	}

	deps := sim.Deps{
		Logger:  logger,
		Metrics: telemetry.WrapMetrics(metrics),
		Clock:   clock,
		RNG:     w.RNG(),
	}
	hub.engine = newWorldEngineAdapter(w, deps)

	loop, err := sim.NewEngine(
		hub.engine,
		sim.WithDeps(deps),
		sim.WithLoopConfig(cfg.Loop),
		sim.WithLoopHooks(sim.LoopHooks{
			AfterStep:      hub.afterStep,
			OnQueueWarning: hub.onQueueWarning,
			OnCommandDrop:  hub.onCommandDrop,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build simulation loop: %w", err)
	}
	hub.loop = loop

	initial := hub.engine.Snapshot()
	hub.latest.Store(&initial)
	settings := settingsFromConfig(w.Config())
	hub.settings.Store(&settings)
	return hub, nil
}

// RunSimulation drives the fixed-rate loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	defer h.doneOnce.Do(func() { close(h.done) })
	h.loop.Run(stop)
}

// Join stages a new player and waits for the loop to assign its id. If ctx
// ends first, the player is removed as soon as it materializes.
func (h *Hub) Join(ctx context.Context, name string) (string, error) {
	reply := make(chan sim.JoinResult, 1)
	cmd := sim.Command{
		OriginTick: h.Tick(),
		Type:       sim.CommandJoin,
		IssuedAt:   time.Now(),
		Join:       &sim.JoinCommand{Name: name, Reply: reply},
	}
	if ok, reason := h.loop.Enqueue(cmd); !ok {
		return "", fmt.Errorf("%w: %s", ErrCommandRejected, reason)
	}

	ctx, cancel := context.WithTimeout(ctx, h.joinTimeout)
	defer cancel()

	select {
	case result := <-reply:
		return result.PlayerID, result.Err
	case <-ctx.Done():
		go h.reapJoin(reply)
		return "", fmt.Errorf("join: %w", ctx.Err())
	}
}

func (h *Hub) reapJoin(reply <-chan sim.JoinResult) {
	select {
	case result := <-reply:
		if result.PlayerID != "" {
			h.loop.Remove(result.PlayerID)
		}
	case <-h.done:
	}
}

// Enqueue stages a player command for the next tick.
func (h *Hub) Enqueue(cmd sim.Command) (bool, string) {
	return h.loop.Enqueue(cmd)
}

// Disconnect schedules the player's removal before the next step.
func (h *Hub) Disconnect(playerID string) {
	h.loop.Remove(playerID)
}

// ResetWorld rebuilds the world on the loop goroutine. Every connected player
// is dropped.
func (h *Hub) ResetWorld(ctx context.Context, settings sim.WorldSettings) (sim.ResetResult, error) {
	reply := make(chan sim.ResetResult, 1)
	cmd := sim.Command{
		OriginTick: h.Tick(),
		Type:       sim.CommandReset,
		IssuedAt:   time.Now(),
		Reset:      &sim.ResetCommand{Settings: settings, Reply: reply},
	}
	if ok, reason := h.loop.Enqueue(cmd); !ok {
		return sim.ResetResult{}, fmt.Errorf("%w: %s", ErrCommandRejected, reason)
	}
	select {
	case result := <-reply:
		applied := result.Settings
		h.settings.Store(&applied)
		h.logger.Printf("[world] reset seed=%s dropped=%d", applied.Seed, len(result.Dropped))
		return result, nil
	case <-ctx.Done():
		return sim.ResetResult{}, fmt.Errorf("reset: %w", ctx.Err())
	}
}

// CurrentSettings reports the settings of the live world.
func (h *Hub) CurrentSettings() sim.WorldSettings {
	if settings := h.settings.Load(); settings != nil {
		return *settings
	}
	return sim.WorldSettings{}
}

// LatestSnapshot returns a private copy of the most recent published tick.
func (h *Hub) LatestSnapshot() sim.Snapshot {
	if snapshot := h.latest.Load(); snapshot != nil {
		return simutil.CloneSnapshot(*snapshot)
	}
	return sim.Snapshot{}
}

func (h *Hub) Tick() uint64 {
	if snapshot := h.latest.Load(); snapshot != nil {
		return snapshot.Tick
	}
	return 0
}

func (h *Hub) TickRate() int {
	return h.loop.Config().TickRate
}

func (h *Hub) Logger() telemetry.Logger {
	return h.logger
}

func (h *Hub) Publisher() logging.Publisher {
	return h.publisher
}

// Subscribe registers a connection for per-tick state frames.
func (h *Hub) Subscribe(codec proto.Codec) *Subscriber {
	sub := &Subscriber{
		id:    h.nextSub.Add(1),
		codec: codec,
		send:  make(chan []byte, h.outboundBuffer),
		done:  make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	h.telemetry.AddSubscribers(1)
	return sub
}

// Unsubscribe stops broadcasts to sub and releases its writer.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subscribers[sub.id]
	delete(h.subscribers, sub.id)
	h.mu.Unlock()
	if ok {
		h.telemetry.AddSubscribers(-1)
	}
	sub.close()
}

// RecordMessageRejected accounts an inbound frame that was discarded.
func (h *Hub) RecordMessageRejected(playerID, messageType, reason string) {
	h.telemetry.IncrementMessagesRejected()
	h.metrics.TelemetryAdd("network.messages_rejected", 1)
	loggingnetwork.MessageRejected(
		context.Background(),
		h.publisher,
		h.Tick(),
		connectionRef(playerID),
		loggingnetwork.MessageRejectedPayload{MessageType: messageType, Reason: reason},
	)
}

func (h *Hub) DiagnosticsSnapshot() []diagnosticsPlayer {
	snapshot := h.LatestSnapshot()
	scores := make(map[string]int64, len(snapshot.Leaderboard))
	for _, entry := range snapshot.Leaderboard {
		scores[entry.ID] = entry.Score
	}
	players := make([]diagnosticsPlayer, 0, len(snapshot.Players))
	for _, player := range snapshot.Players {
		players = append(players, diagnosticsPlayer{
			Ver:   ProtocolVersion,
			ID:    player.ID,
			Name:  player.Name,
			Cells: len(player.Cells),
			Score: scores[player.ID],
		})
	}
	return players
}

func (h *Hub) TelemetrySnapshot() telemetrySnapshot {
	return h.telemetry.Snapshot()
}

// MetricsSnapshot exposes the keyed counters collected by the loop.
func (h *Hub) MetricsSnapshot() map[string]uint64 {
	return h.metrics.Snapshot()
}

func (h *Hub) afterStep(result sim.LoopStepResult) {
	snapshot := result.Snapshot
	h.latest.Store(&snapshot)

	overrun := result.Budget > 0 && result.Duration > result.Budget
	h.telemetry.RecordTickDuration(result.Duration, overrun)
	if overrun {
		h.overrunStreak++
		loggingsimulation.TickBudgetOverrun(
			context.Background(),
			h.publisher,
			snapshot.Tick,
			loggingsimulation.TickBudgetOverrunPayload{
				DurationMillis: result.Duration.Milliseconds(),
				BudgetMillis:   result.Budget.Milliseconds(),
				Ratio:          float64(result.Duration) / float64(result.Budget),
				Streak:         h.overrunStreak,
			},
		)
	} else {
		h.overrunStreak = 0
	}

	h.metrics.TelemetryStore("sim.tick", snapshot.Tick)
	h.metrics.TelemetryStore("world.players", uint64(len(snapshot.Players)))
	h.metrics.TelemetryStore("world.food", uint64(len(snapshot.Food)))
	h.metrics.TelemetryAdd("world.food_eaten", uint64(result.Summary.FoodEaten))
	h.metrics.TelemetryAdd("world.absorptions", uint64(result.Summary.Absorptions))
	h.metrics.TelemetryAdd("world.merges", uint64(result.Summary.Merges))

	h.broadcast(snapshot)

	if h.recorder != nil {
		h.recorder.Record(result)
	}
}

// broadcast encodes the snapshot once per codec and hands the frame to each
// subscriber without blocking.
func (h *Hub) broadcast(snapshot sim.Snapshot) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	type fanout struct {
		frame     []byte
		delivered int
		dropped   int
	}
	frames := make(map[proto.Codec]*fanout, 2)
	for _, sub := range subs {
		out, ok := frames[sub.codec]
		if !ok {
			frame, err := proto.EncodeState(sub.codec, snapshot)
			if err != nil {
				h.logger.Printf("failed to encode %s state for tick %d: %v", sub.codec, snapshot.Tick, err)
			}
			out = &fanout{frame: frame}
			frames[sub.codec] = out
		}
		if out.frame == nil {
			continue
		}
		if sub.deliver(out.frame) {
			out.delivered++
			continue
		}
		out.dropped++
		if count := sub.dropped.Add(1); count&(count-1) == 0 {
			loggingnetwork.SubscriberLagging(
				context.Background(),
				h.publisher,
				snapshot.Tick,
				connectionRef(sub.PlayerID()),
				loggingnetwork.SubscriberLaggingPayload{DroppedFrames: count},
			)
		}
	}
	for _, out := range frames {
		h.telemetry.RecordBroadcast(len(out.frame), out.delivered, out.dropped)
	}
}

func (h *Hub) onQueueWarning(length int) {
	h.logger.Printf("[backpressure] command queue length=%d", length)
}

func (h *Hub) onCommandDrop(reason string, cmd sim.Command) {
	h.telemetry.IncrementCommandsDropped()
	h.metrics.TelemetryAdd("sim.commands.dropped", 1)
	loggingnetwork.CommandDropped(
		context.Background(),
		h.publisher,
		h.Tick(),
		logging.PlayerRef(cmd.ActorID),
		loggingnetwork.CommandDroppedPayload{
			CommandType: string(cmd.Type),
			Reason:      reason,
			Count:       h.telemetry.commandsDropped.Load(),
		},
	)
}

func connectionRef(playerID string) logging.EntityRef {
	return logging.EntityRef{ID: playerID, Kind: logging.EntityKindConnection}
}

// Subscriber is one connection's view of the broadcast stream. Frames are
// consumed by a single writer goroutine.
type Subscriber struct {
	id    uint64
	codec proto.Codec
	send  chan []byte
	done  chan struct{}

	closeOnce sync.Once
	playerMu  sync.Mutex
	playerID  string
	dropped   atomic.Uint64
}

func (s *Subscriber) Codec() proto.Codec {
	return s.codec
}

// Outbound yields frames for the connection writer.
func (s *Subscriber) Outbound() <-chan []byte {
	return s.send
}

// Done closes once the hub stops broadcasting to the subscriber.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Send queues a direct reply, waiting for buffer space.
func (s *Subscriber) Send(ctx context.Context, frame []byte) error {
	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return ErrSubscriberClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Subscriber) deliver(frame []byte) bool {
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Subscriber) PlayerID() string {
	s.playerMu.Lock()
	defer s.playerMu.Unlock()
	return s.playerID
}

func (s *Subscriber) SetPlayerID(id string) {
	s.playerMu.Lock()
	s.playerID = id
	s.playerMu.Unlock()
}

// Dropped reports how many broadcast frames were skipped for this subscriber.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
