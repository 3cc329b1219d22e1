package simulation

import (
	"context"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its period.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventCommandFailed is emitted when a staged command could not be applied.
	EventCommandFailed logging.EventType = "simulation.command_failed"
	// EventCommandIgnored is emitted when a command targets a player that no longer exists.
	EventCommandIgnored logging.EventType = "simulation.command_ignored"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// CommandFailedPayload describes a command the engine refused.
type CommandFailedPayload struct {
	CommandType string `json:"commandType"`
	Error       string `json:"error"`
}

// CommandIgnoredPayload describes a command that had no target.
type CommandIgnoredPayload struct {
	CommandType string `json:"commandType"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// CommandFailed publishes an error for a command that could not be applied.
func CommandFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// CommandIgnored publishes a debug event for a command whose actor is unknown.
func CommandIgnored(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandIgnoredPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandIgnored,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
