package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"yieldgate/internal/config"
	"yieldgate/internal/events"
	"yieldgate/internal/interfaces"
	"yieldgate/internal/metrics"
	"yieldgate/internal/services"

	"github.com/nats-io/nats.go"
)

// RelayClient carries transfer intents over NATS. It implements
// interfaces.IntentRelay on the send side and feeds inbound intents into an
// interfaces.IntentSink on the receive side.
type RelayClient struct {
	conn    *nats.Conn
	chainID uint32
	sub     *nats.Subscription
}

// NewRelayClient connects to the NATS server for this chain instance.
func NewRelayClient(url string, chainID uint32) (*RelayClient, error) {
	connectTimeout := 10 * time.Second
	reconnectWait := 5 * time.Second
	maxReconnects := -1
	if config.AppConfig != nil {
		if config.AppConfig.NATS.Timeout > 0 {
			connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
		}
		if config.AppConfig.NATS.ReconnectWait > 0 {
			reconnectWait = time.Duration(config.AppConfig.NATS.ReconnectWait) * time.Second
		}
		if config.AppConfig.NATS.MaxReconnects > 0 {
			maxReconnects = config.AppConfig.NATS.MaxReconnects
		}
	}

	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	log.Printf("✅ NATS relay connected for chain %d", chainID)
	return &RelayClient{conn: conn, chainID: chainID}, nil
}

// PublishIntent ships a burned intent towards its destination chain.
func (c *RelayClient) PublishIntent(intent *events.TransferIntentMessage) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}
	subject := events.TransferSubject(intent.DestChainID)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish intent to %s: %w", subject, err)
	}
	log.Printf("📤 [Relay] Published intent %s to %s", intent.MessageID, subject)
	return nil
}

// PublishRouteExecuted reports a route call result back to the source chain.
func (c *RelayClient) PublishRouteExecuted(ack *events.RouteExecutedMessage) error {
	data, err := json.Marshal(ack)
	if err != nil {
		return fmt.Errorf("failed to marshal route ack: %w", err)
	}
	subject := events.RouteExecutedSubject(ack.DestChainID)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish route ack to %s: %w", subject, err)
	}
	return nil
}

// SubscribeInbound starts consuming intents addressed to this chain and
// dispatching them to sink. Duplicates are dropped silently; other
// failures leave the message unacked so NATS redelivers it.
func (c *RelayClient) SubscribeInbound(sink interfaces.IntentSink) error {
	subject := events.TransferSubject(c.chainID)
	sub, err := c.conn.QueueSubscribe(subject, fmt.Sprintf("yieldgate-%d", c.chainID), func(msg *nats.Msg) {
		metrics.NATSMessagesReceived.WithLabelValues(subject).Inc()

		var intent events.TransferIntentMessage
		if err := json.Unmarshal(msg.Data, &intent); err != nil {
			metrics.NATSMessagesFailed.WithLabelValues(subject, "decode").Inc()
			log.Printf("❌ [Relay] Malformed intent on %s: %v", subject, err)
			return
		}

		if err := sink.OnIntentDelivered(&intent); err != nil {
			if errors.Is(err, services.ErrDuplicateMessage) {
				log.Printf("🔁 [Relay] Duplicate intent %s, ignoring", intent.MessageID)
				return
			}
			metrics.NATSMessagesFailed.WithLabelValues(subject, "process").Inc()
			log.Printf("❌ [Relay] Failed to process intent %s: %v", intent.MessageID, err)
			return
		}
		log.Printf("📥 [Relay] Minted inbound intent %s from chain %d", intent.MessageID, intent.SourceChainID)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	c.sub = sub
	log.Printf("✅ [Relay] Subscribed to %s", subject)
	return nil
}

// Close drains the subscription and closes the connection.
func (c *RelayClient) Close() {
	if c.sub != nil {
		c.sub.Drain()
	}
	if c.conn != nil {
		c.conn.Drain()
		c.conn.Close()
	}
	metrics.NATSConnectionStatus.Set(0)
	log.Printf("🛑 NATS relay closed")
}
