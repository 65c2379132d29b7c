package interfaces

import "yieldgate/internal/events"

// IntentRelay abstracts the transport that carries transfer intents between
// ledger instances. The NATS client implements it in production; tests use
// an in-memory fake. Delivery is at-least-once, so receivers must
// deduplicate by messageId.
type IntentRelay interface {
	// PublishIntent ships a burned intent towards its destination chain.
	PublishIntent(intent *events.TransferIntentMessage) error

	// PublishRouteExecuted reports a route call result back to the source chain.
	PublishRouteExecuted(ack *events.RouteExecutedMessage) error
}

// IntentSink is implemented by the gateway service; the relay client feeds
// inbound messages into it.
type IntentSink interface {
	// OnIntentDelivered mints an inbound intent exactly once.
	OnIntentDelivered(msg *events.TransferIntentMessage) error
}
