package network

import (
	"context"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	// EventMessageRejected is emitted when an inbound frame cannot be decoded or validated.
	EventMessageRejected logging.EventType = "network.message_rejected"
	// EventCommandDropped is emitted when the command queue refuses a command.
	EventCommandDropped logging.EventType = "network.command_dropped"
	// EventSubscriberLagging is emitted when a connection cannot keep up with broadcasts.
	EventSubscriberLagging logging.EventType = "network.subscriber_lagging"
)

// MessageRejectedPayload captures why an inbound message was discarded.
type MessageRejectedPayload struct {
	MessageType string `json:"messageType,omitempty"`
	Reason      string `json:"reason"`
}

// CommandDroppedPayload captures queue backpressure details.
type CommandDroppedPayload struct {
	CommandType string `json:"commandType"`
	Reason      string `json:"reason"`
	Count       uint64 `json:"count"`
}

// SubscriberLaggingPayload captures how many frames a slow connection missed.
type SubscriberLaggingPayload struct {
	DroppedFrames uint64 `json:"droppedFrames"`
}

// MessageRejected publishes a warning for a discarded inbound message.
func MessageRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessageRejectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventMessageRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// CommandDropped publishes a warning when backpressure drops a command.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// SubscriberLagging publishes a debug event when frames are skipped for a connection.
func SubscriberLagging(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SubscriberLaggingPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSubscriberLagging,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryNetwork
	pub.Publish(ctx, event)
}
