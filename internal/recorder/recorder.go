// Package recorder archives per-tick summaries as zstd-compressed parquet
// batches.
package recorder

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
)

const (
	DefaultBatchTicks = 300
	pendingBatches    = 4
)

type Config struct {
	Dir        string
	BatchTicks int
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
	Now        func() time.Time
}

// Recorder collects rows on the simulation goroutine and hands full batches
// to a background writer. Batches that arrive while the writer is behind are
// dropped rather than stalling the tick.
type Recorder struct {
	dir        string
	batchTicks int
	logger     telemetry.Logger
	metrics    telemetry.Metrics
	now        func() time.Time

	pending []TickRow
	batches chan []TickRow
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once

	mu      sync.Mutex
	written []string
	seq     uint64

	droppedBatches atomic.Uint64
}

func New(cfg Config) (*Recorder, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("recorder dir is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		dir = cfg.Dir
	}
	batchTicks := cfg.BatchTicks
	if batchTicks <= 0 {
		batchTicks = DefaultBatchTicks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := &Recorder{
		dir:        dir,
		batchTicks: batchTicks,
		logger:     logger,
		metrics:    cfg.Metrics,
		now:        now,
		pending:    make([]TickRow, 0, batchTicks),
		batches:    make(chan []TickRow, pendingBatches),
		done:       make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Record converts a completed tick into a row. It must be called from a
// single goroutine.
func (r *Recorder) Record(result sim.LoopStepResult) {
	if r == nil || r.closed.Load() {
		return
	}
	r.pending = append(r.pending, rowFromResult(result))
	if len(r.pending) < r.batchTicks {
		return
	}
	batch := r.pending
	r.pending = make([]TickRow, 0, r.batchTicks)
	select {
	case r.batches <- batch:
	default:
		dropped := r.droppedBatches.Add(1)
		r.addMetric("recorder.batches_dropped", 1)
		r.logger.Printf("[recorder] writer behind, dropped batch of %d rows (total dropped=%d)", len(batch), dropped)
	}
}

// Close flushes buffered rows and waits for the writer to finish. It must not
// race with Record.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.closed.Store(true)
		if len(r.pending) > 0 {
			select {
			case r.batches <- r.pending:
			case <-ctx.Done():
				r.logger.Printf("[recorder] discarded %d rows on close: %v", len(r.pending), ctx.Err())
			}
			r.pending = nil
		}
		close(r.batches)
	})
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder close: %w", ctx.Err())
	}
}

// Files lists the batches published so far.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.written...)
}

func (r *Recorder) DroppedBatches() uint64 {
	return r.droppedBatches.Load()
}

func (r *Recorder) run() {
	defer close(r.done)
	for batch := range r.batches {
		path, rows, err := r.writeBatch(batch)
		if err != nil {
			r.addMetric("recorder.write_errors", 1)
			r.logger.Printf("[recorder] failed to write batch: %v", err)
			continue
		}
		if path == "" {
			continue
		}
		r.mu.Lock()
		r.written = append(r.written, path)
		r.mu.Unlock()
		r.addMetric("recorder.rows_written", uint64(rows))
	}
}

func (r *Recorder) writeBatch(batch []TickRow) (string, int, error) {
	r.seq++
	writer, err := newBatchWriter(r.dir, r.now(), r.seq)
	if err != nil {
		return "", 0, err
	}
	if err := writer.write(batch); err != nil {
		writer.finalize()
		return "", 0, fmt.Errorf("write rows: %w", err)
	}
	return writer.finalize()
}

func (r *Recorder) addMetric(key string, delta uint64) {
	if r.metrics != nil {
		r.metrics.Add(key, delta)
	}
}

func rowFromResult(result sim.LoopStepResult) TickRow {
	snapshot := result.Snapshot
	cells := 0
	for _, player := range snapshot.Players {
		cells += len(player.Cells)
	}
	row := TickRow{
		Tick:           int64(result.Tick),
		UnixMillis:     result.Now.UnixMilli(),
		DurationMicros: result.Duration.Microseconds(),
		Overrun:        result.Budget > 0 && result.Duration > result.Budget,
		Players:        int32(len(snapshot.Players)),
		Cells:          int32(cells),
		Food:           int32(len(snapshot.Food)),
		Commands:       int32(len(result.Commands)),
		Left:           int32(len(result.Left)),
		FoodEaten:      int32(result.Summary.FoodEaten),
		FoodSpawned:    int32(result.Summary.FoodSpawned),
		Absorptions:    int32(result.Summary.Absorptions),
		Merges:         int32(result.Summary.Merges),
		Eliminated:     int32(len(result.Summary.Eliminated)),
	}
	if len(snapshot.Leaderboard) > 0 {
		leader := snapshot.Leaderboard[0]
		row.LeaderID = leader.ID
		row.LeaderName = leader.Name
		row.LeaderScore = leader.Score
	}
	return row
}
