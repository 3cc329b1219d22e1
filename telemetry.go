package nebulous

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	bytesSent          atomic.Uint64
	framesSent         atomic.Uint64
	framesDropped      atomic.Uint64
	ticks              atomic.Uint64
	tickDurationMillis atomic.Int64
	tickOverruns       atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	commandsDropped    atomic.Uint64
	messagesRejected   atomic.Uint64
	subscribers        atomic.Int64
	debug              bool
}

type telemetrySnapshot struct {
	BytesSent        uint64 `json:"bytesSent"`
	FramesSent       uint64 `json:"framesSent"`
	FramesDropped    uint64 `json:"framesDropped"`
	Ticks            uint64 `json:"ticks"`
	TickDuration     int64  `json:"tickDurationMillis"`
	TickOverruns     uint64 `json:"tickOverruns"`
	CommandsDropped  uint64 `json:"commandsDropped"`
	MessagesRejected uint64 `json:"messagesRejected"`
	Subscribers      int64  `json:"subscribers"`
}

func newTelemetryCounters() *telemetryCounters {
	t := &telemetryCounters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

// RecordBroadcast accounts one frame fanned out to delivered subscribers.
func (t *telemetryCounters) RecordBroadcast(bytes, delivered, dropped int) {
	if bytes < 0 {
		bytes = 0
	}
	if delivered < 0 {
		delivered = 0
	}
	if dropped < 0 {
		dropped = 0
	}
	t.bytesSent.Add(uint64(bytes) * uint64(delivered))
	t.framesSent.Add(uint64(delivered))
	t.framesDropped.Add(uint64(dropped))
	t.lastBroadcastBytes.Store(uint64(bytes))
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration, overrun bool) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.ticks.Add(1)
	t.tickDurationMillis.Store(millis)
	if overrun {
		t.tickOverruns.Add(1)
	}
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms bytes=%d totalBytes=%d frames=%d dropped=%d\n",
			millis,
			t.lastBroadcastBytes.Load(),
			t.bytesSent.Load(),
			t.framesSent.Load(),
			t.framesDropped.Load(),
		)
	}
}

func (t *telemetryCounters) IncrementCommandsDropped() {
	t.commandsDropped.Add(1)
}

func (t *telemetryCounters) IncrementMessagesRejected() {
	t.messagesRejected.Add(1)
}

func (t *telemetryCounters) AddSubscribers(delta int64) {
	t.subscribers.Add(delta)
}

func (t *telemetryCounters) DebugEnabled() bool {
	return t.debug
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:        t.bytesSent.Load(),
		FramesSent:       t.framesSent.Load(),
		FramesDropped:    t.framesDropped.Load(),
		Ticks:            t.ticks.Load(),
		TickDuration:     t.tickDurationMillis.Load(),
		TickOverruns:     t.tickOverruns.Load(),
		CommandsDropped:  t.commandsDropped.Load(),
		MessagesRejected: t.messagesRejected.Load(),
		Subscribers:      t.subscribers.Load(),
	}
}
