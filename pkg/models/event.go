package models

// EventDirection indicates whether a communication event was inbound
// (from the client) or outbound (from the representative).
type EventDirection string

const (
	DirectionInbound  EventDirection = "inbound"
	DirectionOutbound EventDirection = "outbound"
)

// EventChannel is the medium a communication event arrived on.
type EventChannel string

const (
	ChannelEmail EventChannel = "email"
	ChannelSMS   EventChannel = "sms"
	ChannelChat  EventChannel = "chat"
	ChannelCall  EventChannel = "call"
	ChannelOther EventChannel = "other"
)

// EventSource records how the event entered the system.
type EventSource string

const (
	SourceManual  EventSource = "manual"
	SourceWebhook EventSource = "webhook"
)

// CommunicationEvent is one inbound or outbound contact touchpoint tied to
// a deal. Events are append-only: never mutated or deleted.
type CommunicationEvent struct {
	Direction EventDirection `json:"direction"`
	Channel   EventChannel   `json:"channel"`
	Source    EventSource    `json:"source"`

	// DedupKey is the external identifier from webhook-synced events.
	// When present it is unique across all events; ingesting a duplicate
	// key is a no-op. Empty for manually logged events.
	DedupKey string `json:"dedup_key,omitempty"`

	ID              int64 `json:"id"`
	DealID          int64 `json:"deal_id"`
	OccurredAtEpoch int64 `json:"occurred_at_epoch"`
}
