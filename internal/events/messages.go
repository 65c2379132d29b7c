// Package events defines the wire messages exchanged between ledger
// instances over the relay. Kept free of service imports so clients,
// services and interfaces can all share the types.
package events

import "fmt"

// Subject prefixes. Each instance subscribes to its own chain id.
const (
	TransferSubjectPrefix      = "gateway.transfer"
	RouteExecutedSubjectPrefix = "gateway.route.executed"
)

// TransferSubject is the subject a destination chain listens on for
// inbound intents.
func TransferSubject(destChainID uint32) string {
	return fmt.Sprintf("%s.%d", TransferSubjectPrefix, destChainID)
}

// RouteExecutedSubject is the subject a source chain listens on for route
// execution acknowledgements.
func RouteExecutedSubject(sourceChainID uint32) string {
	return fmt.Sprintf("%s.%d", RouteExecutedSubjectPrefix, sourceChainID)
}

// TransferIntentMessage is the burn-then-mint intent as it travels over the
// relay. Recipients and Amounts have equal length; a plain transfer carries
// one element, a batch carries the full list.
type TransferIntentMessage struct {
	MessageID      string   `json:"message_id"`
	SourceChainID  uint32   `json:"source_chain_id"`
	DestChainID    uint32   `json:"dest_chain_id"`
	Sender         string   `json:"sender"`
	Recipients     []string `json:"recipients"`
	Amounts        []string `json:"amounts"` // decimal strings
	TotalAmount    string   `json:"total_amount"`
	CarriedRateBps uint32   `json:"carried_rate_bps"`
	RouteTargetRef string   `json:"route_target_ref,omitempty"`
	RoutePayload   string   `json:"route_payload,omitempty"`
	SentAtUnix     int64    `json:"sent_at_unix"`
}

// RouteExecutedMessage acknowledges a route call on the destination chain.
type RouteExecutedMessage struct {
	MessageID      string `json:"message_id"`
	DestChainID    uint32 `json:"dest_chain_id"`
	TargetRef      string `json:"target_ref"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ExecutedAtUnix int64  `json:"executed_at_unix"`
}

// Validate rejects structurally malformed intents before they reach the
// gateway. Business checks (allowlist, bounds, duplicates) live in the
// gateway service.
func (m *TransferIntentMessage) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("missing message_id")
	}
	if len(m.Recipients) == 0 {
		return fmt.Errorf("intent %s has no recipients", m.MessageID)
	}
	if len(m.Recipients) != len(m.Amounts) {
		return fmt.Errorf("intent %s has %d recipients but %d amounts",
			m.MessageID, len(m.Recipients), len(m.Amounts))
	}
	if m.TotalAmount == "" {
		return fmt.Errorf("intent %s missing total_amount", m.MessageID)
	}
	return nil
}
