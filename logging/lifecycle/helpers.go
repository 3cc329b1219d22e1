package lifecycle

import (
	"context"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	// EventPlayerJoined is emitted when a player joins the world.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player's connection goes away.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventPlayerEliminated is emitted when a player loses its last cell.
	EventPlayerEliminated logging.EventType = "lifecycle.player_eliminated"
	// EventWorldReset is emitted when the world is rebuilt from a new config.
	EventWorldReset logging.EventType = "lifecycle.world_reset"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	Name   string  `json:"name"`
	SpawnX float64 `json:"spawnX"`
	SpawnY float64 `json:"spawnY"`
}

// PlayerDisconnectedPayload captures the reason a player left.
type PlayerDisconnectedPayload struct {
	Reason string `json:"reason"`
}

// WorldResetPayload records the seed and population of a rebuilt world.
type WorldResetPayload struct {
	Seed      string `json:"seed"`
	FoodCount int    `json:"foodCount"`
	Dropped   int    `json:"droppedPlayers"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// PlayerDisconnected publishes a player disconnect event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// PlayerEliminated publishes an elimination event.
func PlayerEliminated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerEliminated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
	})
}

// WorldReset publishes a world reset event.
func WorldReset(ctx context.Context, pub logging.Publisher, tick uint64, payload WorldResetPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventWorldReset,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLifecycle
	pub.Publish(ctx, event)
}
