// Package adapter defines the boundary to downstream systems.
//
// Two event types leave the process: exchange_captured, published for every
// classified exchange (statistics export and archive), and context_changed,
// published for every world aggregate change (notifications). Delivery is
// fire-and-forget; see Dispatcher.
package adapter

import (
	"context"
	"time"

	"github.com/justapithecus/logbook/types"
)

// Event types.
const (
	EventExchangeCaptured = "exchange_captured"
	EventContextChanged   = "context_changed"
)

// Event is the payload published to downstream systems.
type Event struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"`
	SessionID       string `json:"session_id"`
	Timestamp       string `json:"timestamp"` // RFC 3339

	// Exchange is set for exchange_captured.
	Exchange *ExchangeRecord `json:"exchange,omitempty"`
	// Change is set for context_changed.
	Change *ChangeRecord `json:"change,omitempty"`
}

// ExchangeRecord is the raw tuple of one classified exchange.
type ExchangeRecord struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Path         string `json:"path"`
	DataType     string `json:"data_type"`
	RequestBody  string `json:"request_body,omitempty"`
	ResponseBody string `json:"response_body"` // inflated
	CapturedAt   string `json:"captured_at"`
}

// ChangeRecord identifies one changed world aggregate.
type ChangeRecord struct {
	Aggregate string                 `json:"aggregate"`
	Version   uint64                 `json:"version"`
	DataType  string                 `json:"data_type,omitempty"`
	Samples   []types.ResourceSample `json:"samples,omitempty"`
}

// NewExchangeEvent builds an exchange_captured event. body is the inflated
// response body.
func NewExchangeEvent(sessionID string, dt types.DataType, ex *types.Exchange, body []byte) *Event {
	return &Event{
		ContractVersion: types.ContractVersion,
		EventType:       EventExchangeCaptured,
		SessionID:       sessionID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Exchange: &ExchangeRecord{
			ID:           ex.ID,
			URL:          ex.URL,
			Path:         ex.Path,
			DataType:     dt.String(),
			RequestBody:  string(ex.RequestBody),
			ResponseBody: string(body),
			CapturedAt:   ex.CompletedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// NewChangeEvent builds a context_changed event.
func NewChangeEvent(sessionID string, change ChangeRecord) *Event {
	return &Event{
		ContractVersion: types.ContractVersion,
		EventType:       EventContextChanged,
		SessionID:       sessionID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Change:          &change,
	}
}

// Adapter publishes events to a downstream system.
type Adapter interface {
	// Publish sends one event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *Event) error

	// Close releases adapter resources.
	Close() error
}
