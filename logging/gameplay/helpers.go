package gameplay

import (
	"context"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	EventPlayerSplit  logging.EventType = "gameplay.player_split"
	EventMassEjected  logging.EventType = "gameplay.mass_ejected"
	EventCellAbsorbed logging.EventType = "gameplay.cell_absorbed"
	EventCellsMerged  logging.EventType = "gameplay.cells_merged"
)

type SplitPayload struct {
	CellsBefore int `json:"cellsBefore"`
	CellsAfter  int `json:"cellsAfter"`
}

type EjectPayload struct {
	Pellets int     `json:"pellets"`
	Mass    float64 `json:"mass"`
}

// AbsorbPayload describes one cell consuming another. Radii are the
// pre-absorption values.
type AbsorbPayload struct {
	WinnerRadius float64 `json:"winnerRadius"`
	LoserRadius  float64 `json:"loserRadius"`
	ResultRadius float64 `json:"resultRadius"`
}

type MergePayload struct {
	ResultRadius float64 `json:"resultRadius"`
	CellsLeft    int     `json:"cellsLeft"`
}

func PlayerSplit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SplitPayload) {
	publish(ctx, pub, logging.Event{Type: EventPlayerSplit, Tick: tick, Actor: actor, Payload: payload})
}

func MassEjected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EjectPayload) {
	publish(ctx, pub, logging.Event{Type: EventMassEjected, Tick: tick, Actor: actor, Payload: payload})
}

// CellAbsorbed reports actor's cell consuming a cell owned by victim.
func CellAbsorbed(ctx context.Context, pub logging.Publisher, tick uint64, actor, victim logging.EntityRef, payload AbsorbPayload) {
	publish(ctx, pub, logging.Event{
		Type:    EventCellAbsorbed,
		Tick:    tick,
		Actor:   actor,
		Targets: []logging.EntityRef{victim},
		Payload: payload,
	})
}

func CellsMerged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MergePayload) {
	publish(ctx, pub, logging.Event{Type: EventCellsMerged, Tick: tick, Actor: actor, Payload: payload})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Severity = logging.SeverityDebug
	event.Category = logging.CategoryGameplay
	pub.Publish(ctx, event)
}
